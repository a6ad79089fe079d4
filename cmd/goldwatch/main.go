package main

import (
	"os"

	"github.com/user/goldwatch/internal/delivery/cli"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	os.Exit(cli.Execute())
}

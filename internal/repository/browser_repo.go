package repository

import "context"

// BrowserLauncher acquires a browser session for the duration of a capture stage.
type BrowserLauncher interface {
	// Launch starts a browser session. The caller must Close it.
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a single automated browser session. It is navigated
// sequentially and must not be used concurrently.
type Browser interface {
	// Screenshot navigates to url, waits for the network to settle plus the
	// configured settle delay, and returns a full-page raster image.
	Screenshot(ctx context.Context, url string) ([]byte, error)
	// Close releases the session.
	Close() error
}

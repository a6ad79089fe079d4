package entity

// Target is a named price source whose page is captured on every run.
type Target struct {
	ID  string
	URL string
}

// DefaultTargets is the deployed target registry. Order matters: it fixes
// the capture order and the order recovered texts enter the corpus.
var DefaultTargets = []Target{
	{
		ID:  "ctf",
		URL: "https://www.chowtaifook.com/zh-hk/eshop/realtime-gold-price.html/?tab=goldPellet",
	},
	{
		ID:  "bochk",
		URL: "https://www.bochk.com/en/investment/rates/metal.html",
	},
	{
		ID:  "emperio",
		URL: "https://emperiogoldcoins.com/zh_HK/%E9%BB%83%E9%87%91%E7%94%A2%E5%93%81/%E9%BB%83%E9%87%91%E7%8F%BE%E5%83%B9%E5%B9%A3/%E8%B3%80%E5%88%A9%E6%B0%8F-99-99-%E6%A8%A1%E9%91%84%E9%87%91%E6%A2%9D-1%E5%85%AC%E6%96%A4-%E9%99%84%E8%B3%80%E5%88%A9%E6%B0%8F%E8%AD%89%E6%9B%B8",
	},
	{
		ID:  "heraeus",
		URL: "https://www.heraeus-gold.hk/1kg-gold-cast-bar-999.9",
	},
}

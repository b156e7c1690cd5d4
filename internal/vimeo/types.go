package vimeo

type ProgressiveFile struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
}

type CDN struct {
	URL string `json:"url"`
}

// StreamFiles describes one adaptive delivery method (HLS or DASH) from
// the player config.
type StreamFiles struct {
	DefaultCDN string         `json:"default_cdn"`
	Cdns       map[string]CDN `json:"cdns"`
}

// VideoConfig is the subset of the player config endpoint response needed
// to pick a download source.
type VideoConfig struct {
	Request struct {
		Files struct {
			Progressive []ProgressiveFile `json:"progressive"`
			HLS         StreamFiles       `json:"hls"`
			Dash        StreamFiles       `json:"dash"`
		} `json:"files"`
	} `json:"request"`
	Video struct {
		Title    string `json:"title"`
		Duration int    `json:"duration"`
	} `json:"video"`
}

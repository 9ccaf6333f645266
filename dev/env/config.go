package devenv

// LiveConfigFile is read by tests that talk to the real booking platform.
const LiveConfigFile = "live.json5"

type LiveConfig struct {
	BaseUrl         string `json:"base_url"`
	SubscriptionKey string `json:"subscription_key"`
	LocationID      int64  `json:"location_id"`
	PageUrl         string `json:"page_url"`
	Timezone        string `json:"timezone"`
	BrowserExecPath string `json:"browser_exec_path"`
}

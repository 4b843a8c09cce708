package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/sigfeed/internal/flagx"
	"github.com/dmitrijs2005/sigfeed/internal/timex"
)

// jsonConfig mirrors Config for JSON unmarshalling. Duration fields use
// timex.Duration so both "10s" strings and integer nanoseconds parse.
type jsonConfig struct {
	ServerURL      string         `json:"server_url"`
	KeyringDir     string         `json:"keyring_dir"`
	Prefetch       int            `json:"prefetch"`
	PageSize       int            `json:"page_size"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJSON overlays configuration from the JSON file named by the -c or
// -config flags, if any.
func parseJSON(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc jsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.KeyringDir = jc.KeyringDir
	cfg.Prefetch = jc.Prefetch
	cfg.PageSize = jc.PageSize
	cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
}

package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/divvyauth/internal/flagx"
	"github.com/dmitrijs2005/divvyauth/internal/timex"
)

// JsonConfig is the on-disk shape of the client config file.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	SessionDSN         string         `json:"session_dsn"`
}

// parseJson loads the file named by -c/-config, if any. Unreadable or
// invalid files panic.
func parseJson(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = c.ServerEndpointAddr
	}
	if c.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.SessionDSN != "" {
		cfg.SessionDSN = c.SessionDSN
	}
}

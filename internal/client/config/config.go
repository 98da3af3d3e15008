package config

import "time"

// Config holds runtime settings for the divvyauth CLI.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	SessionDSN         string
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8000"
	c.RequestTimeout = 10 * time.Second
	c.SessionDSN = "divvy_session.db"
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// flags. It returns the config and the positional arguments left after the
// flags (the command and its operands).
func LoadConfig(args []string) (*Config, []string) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	rest := parseFlags(cfg, args)
	return cfg, rest
}

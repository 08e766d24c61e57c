package config

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/filex"
	"github.com/hengadev/errsx"
)

// Config holds runtime settings for the MedKeeper CLI.
type Config struct {
	// ServerEndpointAddr is host:port of the registry gRPC endpoint.
	ServerEndpointAddr string
	// DataDir holds the local store with the sealed private key and token.
	DataDir string
	// Timeout bounds each command's calls to the server and content store.
	Timeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DataDir = filex.DefaultDataDir()
	c.Timeout = 30 * time.Second
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs errsx.Map

	if c.ServerEndpointAddr == "" {
		errs.Set("server_endpoint_addr", errors.New("must not be empty"))
	}
	if c.DataDir == "" {
		errs.Set("data_dir", errors.New("must not be empty"))
	}
	if c.Timeout <= 0 {
		errs.Set("timeout", errors.New("must be positive"))
	}

	return errs.AsError()
}

// LoadConfig applies defaults and then the file at path, if path is not
// empty. Flags are layered on afterwards by the command line.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Flag names shared by every client command.
const (
	FlagServer  = "server"
	FlagDataDir = "data-dir"
	FlagTimeout = "timeout"
)

// BindFlags registers the overridable settings on fs. Defaults shown in
// help are the built-in ones; Overlay applies only flags the user set.
func BindFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagServer, "a", d.ServerEndpointAddr, "address and port of the registry server")
	fs.String(FlagDataDir, d.DataDir, "directory of the local key store")
	fs.Duration(FlagTimeout, d.Timeout, "per-command timeout")
}

// Overlay copies explicitly set flags from fs into cfg and validates the
// result.
func Overlay(cfg *Config, fs *pflag.FlagSet) error {
	var err error

	if fs.Changed(FlagServer) {
		if cfg.ServerEndpointAddr, err = fs.GetString(FlagServer); err != nil {
			return err
		}
	}
	if fs.Changed(FlagDataDir) {
		if cfg.DataDir, err = fs.GetString(FlagDataDir); err != nil {
			return err
		}
	}
	if fs.Changed(FlagTimeout) {
		var t time.Duration
		if t, err = fs.GetDuration(FlagTimeout); err != nil {
			return err
		}
		cfg.Timeout = t
	}

	return cfg.Validate()
}

// Package config loads runtime configuration for the MedKeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file named by --config.
//  3. Command-line flags registered with BindFlags, which override earlier
//     values only when set explicitly.
//
// # File schema
//
// Durations accept strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "data_dir": "/home/alice/.medkeeper",
//	  "timeout": "10s"
//	}
package config

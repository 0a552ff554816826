// Package config handles configuration loading for sai-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults;
// Default() yields a runnable in-memory configuration for config-file-less
// startup.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from SAI_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/sai/gateway.yaml
//  3. ~/.config/sai/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	search:
//	  base_url: "${SAI_SEARCH_URL}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to empty strings.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	search:
//	  timeout: "10s"
package config

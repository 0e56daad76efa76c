// Package config provides configuration structures and utilities for sitescan.
// Settings come from defaults, the .sitescan YAML file, .env files and
// SITESCAN_* environment variables, and finally CLI flags.
package config

// Package config loads contriblog configuration.
//
// Precedence is defaults, then the YAML file, then CONTRIBLOG_* environment
// variables, then command-line flags (applied by the CLI). Files are checked
// against schema.cue before decoding.
package config

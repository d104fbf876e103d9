// Package config loads and saves the wiretap configuration file.
//
// The file is YAML and optional. Values are resolved in three layers:
// built-in defaults (Default), then the file (Load), then flags the user set
// explicitly on the command line, which the cmd layer applies last.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/wiretap/config.yaml or $HOME/.config/wiretap/config.yaml
//   - macOS: $HOME/.config/wiretap/config.yaml
//   - Windows: %LOCALAPPDATA%\wiretap\config.yaml
//
// # Example
//
//	version: 1
//	server:
//	  host: ""
//	  port: 8080
//	  mode: http
//	  read_timeout: 10s
//	  connect_timeout: 3s
//	  wiretap: true
//	capture:
//	  dir: ./captures
//	log:
//	  level: debug
//
// Save writes through a temporary file and a rename so a crash never leaves a
// truncated file behind.
package config

// Package config loads burrow's settings.
//
// Settings come from three layers, later layers overriding earlier ones:
//
//	┌─────────────────────────────┐
//	│  3. Environment (BURROW_*)  │  ← Highest priority
//	├─────────────────────────────┤
//	│  2. User file               │  ← ~/.config/burrow/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// A missing user file is not an error. Unknown keys in the file are
// rejected so typos surface instead of silently falling back to defaults.
//
// Example file:
//
//	[tunnel]
//	shell = "sh"
//	timeout = "30s"
//
//	[log]
//	level = "debug"
//	format = "json"
package config

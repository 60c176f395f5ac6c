// Package config provides debugger settings and the abstract configuration
// store used to persist breakpoints and source files between sessions.
//
// # Settings
//
// Settings are read from a TOML file and then overridden by STEPWISE_*
// environment variables:
//
//	[debugger]
//	search_paths = ["src", "lib"]
//	source_id_threshold = 0
//	auto_open_current = true
//
//	[store]
//	kind = "toml"           # memory | toml | yaml | sqlite
//	path = ".stepwise/session.toml"
//
//	[watch]
//	enabled = true
//	debounce = "200ms"
//
//	[logging]
//	level = "info"
//	file = ""
//
// # Stores
//
// A Store holds named groups of parallel indexed fields. Index i of every
// field in a group describes record i. The store package provides memory,
// TOML, YAML and SQLite implementations.
package config

// Package config handles configuration loading for coven-chatops.
//
// # Configuration File
//
// Default location (in order):
//
//  1. Path from COVEN_CHATOPS_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/chatops.toml
//  3. ~/.config/coven/chatops.toml
//
// Files ending in .yaml or .yml are read as YAML, anything else as TOML.
//
// # Environment Variable Expansion
//
// A .env file beside the config, or in the working directory, is loaded
// first. Values can then reference environment variables:
//
//	[ai]
//	api_key = "${ANTHROPIC_API_KEY}"
//
// # Sections
//
//	[bot]
//	command_prefix = "!"
//	history_window = 10
//	spam_threshold = 1000
//	typing_indicator = true
//
//	[ai]
//	provider = "anthropic"       # anthropic, openai
//	api_key = "${ANTHROPIC_API_KEY}"
//	model = "claude-3-opus-20240229"
//	max_tokens = 1024
//	system_prompt = ""
//	timeout = "60s"
//
//	[matrix]
//	enabled = true
//	homeserver = "https://matrix.org"
//	username = "bot"
//	password = "${MATRIX_PASSWORD}"
//	recovery_key = ""            # enables E2EE when set
//	allowed_rooms = []
//	admin_power_level = 50
//	auto_join = true
//
//	[discord]
//	enabled = false
//	token = "${DISCORD_TOKEN}"
//	allowed_channels = []
//
//	[audit]
//	enabled = true
//	path = ""                    # defaults to $XDG_DATA_HOME/coven/audit.db
//
//	[logging]
//	level = "info"               # debug, info, warn, error
//	format = "text"              # text, json
package config

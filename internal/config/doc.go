// Package config manages the toonctl configuration file.
//
// The file is YAML and lives in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/toonapp/config.yaml or $HOME/.config/toonapp/config.yaml
//   - macOS: $HOME/.config/toonapp/config.yaml
//   - Windows: %LOCALAPPDATA%\toonapp\config.yaml
//
// # Security
//
// The account password is NEVER written to the file. It is read from
// TOONAPP_PASSWORD or prompted for interactively.
//
// # Environment Overrides
//
// ApplyEnv lets the environment take precedence over the file:
//   - TOONAPP_USERNAME
//   - TOONAPP_ENDPOINT
//   - TOONAPP_TIMEOUT (milliseconds, or a Go duration such as "5s")
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.ApplyEnv(os.Getenv); err != nil {
//	    log.Fatal(err)
//	}
//	client, err := toon.New(cfg.ToonOptions(password))
package config

// Package config manages user-level settings stored at ~/.extsync/config.yaml.
// Values resolve in order flag, EXTSYNC_* environment variable, config file,
// built-in default. It covers the marketplace URL, manifest and output
// locations, concurrency limits and logging.
package config

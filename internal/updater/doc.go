// Package updater brings the extension manifest up to date with the
// marketplace. A run probes every recorded extension for its latest version,
// selects the ones that are behind, downloads them all, and only when every
// download succeeded rewrites the manifest. A summary of the last run is
// kept in the config directory for the status command.
package updater

// Package manifest loads, validates and persists the extension manifest: a
// JSON array of {name, version} records naming the marketplace extensions to
// keep in sync. Saves replace the whole file atomically so the file on disk
// is always a consistent snapshot.
package manifest

package manifest

// Record is one manifest entry.
type Record struct {
	// Name is the marketplace identifier, "publisher.name".
	Name string `json:"name"`
	// Version is the last downloaded version. Not necessarily semver.
	Version string `json:"version"`
}

// Manifest is the ordered list of records. Duplicates are allowed.
type Manifest []Record

package ingest

import (
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// FileResult is the per-file scan outcome.
type FileResult struct {
	Path         string
	Ext          string
	Size         int64
	HashHex      string
	DocType      constants.DocumentType // inferred from the path, empty when unknown
	ModifiedAt   time.Time
	Deduplicated bool // same content as an earlier file of the scan
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

package models

import "time"

// RawRow is one source row keyed by its header. Values are string, float64,
// time.Time or nil depending on what the extract format can express.
type RawRow map[string]any

// Table is a decoded source file: the header in source order plus its rows.
type Table struct {
	Columns []string
	Rows    []RawRow
}

// RemoteFile describes an entry exposed by the remote file source.
type RemoteFile struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ClassifiedFile is a remote file tagged with the domain it feeds.
type ClassifiedFile struct {
	RemoteFile
	Domain DomainType `json:"domain"`
}

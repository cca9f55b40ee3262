package models

// DomainResult is the write outcome of one domain in a run.
type DomainResult struct {
	Domain   DomainType `json:"domain"`
	Files    []string   `json:"files"`
	Written  int        `json:"written"`
	Inserted int        `json:"inserted,omitempty"`
	Updated  int        `json:"updated,omitempty"`
	Skipped  int        `json:"skipped"`
	Errors   []string   `json:"errors,omitempty"`
	// Failed marks a domain-level failure, as opposed to isolated batch errors.
	Failed bool `json:"failed"`
}

// FileResult describes what the version ledger did for one file.
type FileResult struct {
	Filename     string     `json:"filename"`
	Domain       DomainType `json:"domain"`
	Checksum     string     `json:"checksum,omitempty"`
	VersionLabel string     `json:"version_label,omitempty"`
	Unchanged    bool       `json:"unchanged,omitempty"`
}

// RunSummary is stored on the import log and sent with the completed event.
type RunSummary struct {
	Domains []DomainResult `json:"domains"`
	Files   []FileResult   `json:"files,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
}

// CountsByDomain flattens the written counts for notifications.
func (s RunSummary) CountsByDomain() map[DomainType]int {
	counts := make(map[DomainType]int, len(s.Domains))
	for _, d := range s.Domains {
		counts[d.Domain] += d.Written
	}
	return counts
}

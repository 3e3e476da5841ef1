package ingest

import "log/slog"

// Skip records one row or group the pipeline refused, with enough context to
// trace it back to the source file.
type Skip struct {
	Line   int    `json:"line,omitempty"`
	UserID int64  `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// Report is the only externally observable output of an ingestion run besides
// the persisted rows.
type Report struct {
	Migrated int
	Skips    []Skip
}

func (r *Report) skip(log *slog.Logger, s Skip) {
	r.Skips = append(r.Skips, s)
	if log != nil {
		log.Warn("skipping record",
			"line", s.Line, "userId", s.UserID, "name", s.Name, "reason", s.Reason)
	}
}

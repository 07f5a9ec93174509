package audit

import "time"

// Entry is a single audit log record: one executed line.
type Entry struct {
	Seq      uint64     `json:"seq"`
	ID       string     `json:"id"` // run id, shared with the line's log records
	Time     time.Time  `json:"ts"`
	PrevHash string     `json:"prev_hash"`
	Line     string     `json:"line"`            // the line as typed
	Stages   [][]string `json:"stages"`          // argv of each command that ran
	Statuses []int      `json:"statuses"`        // exit status of each command
	ExitCode int        `json:"exit_code"`       // status of the line
	Error    string     `json:"error,omitempty"` // joined error messages
	Duration float64    `json:"duration_ms"`     // execution time in milliseconds
	Cwd      string     `json:"cwd"`
	Policy   string     `json:"policy,omitempty"` // "allow", "deny", or "error"
	Hash     string     `json:"hash"`             // SHA-256 of this entry with hash empty
}

// Record is what the caller knows about an executed line. The Logger adds
// sequencing, timing and chaining.
type Record struct {
	ID       string // empty generates a new one
	Line     string
	Stages   [][]string
	Statuses []int
	ExitCode int
	Err      error
	Duration time.Duration
	Cwd      string
	Policy   string
}

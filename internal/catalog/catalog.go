package catalog

import (
	"encoding/json"
	"os"
	"time"
)

/*
The catalog is a record of what one run did: which system, how many
providers answered, and how many records they reported. It is written next
to the run's reports and is the primitive for auditing and for the status
server.
*/

// Run summarizes one monitoring run of one system.
type Run struct {
	RunID     string    `json:"run_id"`
	System    string    `json:"system"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Providers    int   `json:"providers"`
	Skipped      int   `json:"skipped"`
	Rows         int   `json:"rows"`
	Available    int   `json:"available"`
	Unavailable  int   `json:"unavailable"`
	TotalRecords int64 `json:"total_records"`

	Completed bool   `json:"completed"`
	Error     string `json:"error,omitempty"`
}

// WriteFile persists the run record as JSON.
func (r Run) WriteFile(path string) error {
	bs, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0o644)
}

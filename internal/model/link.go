package model

import "time"

// LinkReference associates a test execution with an external URL,
// optionally flagged as a defect reported against that execution.
type LinkReference struct {
	ID          string    `json:"id" db:"id"`
	ExecutionID int       `json:"execution_id" db:"execution_id"`
	Name        string    `json:"name" db:"name"`
	URL         string    `json:"url" db:"url"`
	IsDefect    bool      `json:"is_defect" db:"is_defect"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

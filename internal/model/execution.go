package model

// TestCase is the part of a test case a tracker needs to file an issue.
type TestCase struct {
	ID      int    `json:"id"`
	Summary string `json:"summary"`

	// Text is the scenario text at the version the execution ran against.
	Text string `json:"text"`
}

// TestExecution is a single run of a test case inside a test run.
type TestExecution struct {
	ID int `json:"id"`

	// URL is the absolute URL of the execution in the host application.
	URL string `json:"url"`

	RunID      int      `json:"run_id"`
	RunSummary string   `json:"run_summary"`
	Case       TestCase `json:"case"`
	Product    string   `json:"product"`
	Version    string   `json:"version"`
	Build      string   `json:"build"`
	Components []string `json:"components,omitempty"`
}

// User is the host application user on whose behalf an issue is filed.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

package bitbucket

import "time"

// Content is the rendered-text wrapper Bitbucket uses for issue bodies,
// comments and change messages.
type Content struct {
	Raw    string `json:"raw"`
	Markup string `json:"markup,omitempty"`
	HTML   string `json:"html,omitempty"`
}

// IssueRequest is the body of a create-issue call.
type IssueRequest struct {
	Title    string   `json:"title"`
	Kind     string   `json:"kind,omitempty"`     // bug, enhancement, proposal, task
	Priority string   `json:"priority,omitempty"` // trivial, minor, major, critical, blocker
	Content  *Content `json:"content,omitempty"`
}

// Issue represents a Bitbucket Cloud issue.
type Issue struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	State     string    `json:"state"` // new, open, resolved, on hold, invalid, duplicate, wontfix, closed
	Kind      string    `json:"kind"`
	Priority  string    `json:"priority"`
	Content   *Content  `json:"content"`
	Reporter  *User     `json:"reporter,omitempty"`
	Assignee  *User     `json:"assignee,omitempty"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
	Links     Links     `json:"links"`
}

// IssueChangeRequest is the body of an issue-change call. Only the fields
// present in Changes are modified.
type IssueChangeRequest struct {
	Changes map[string]FieldChange `json:"changes"`
	Message *Content               `json:"message,omitempty"`
}

// FieldChange carries the new value of a single issue field.
type FieldChange struct {
	New string `json:"new"`
	Old string `json:"old,omitempty"`
}

// IssueChange is a recorded change to an issue.
type IssueChange struct {
	ID        int                    `json:"id"`
	Changes   map[string]FieldChange `json:"changes"`
	Message   *Content               `json:"message,omitempty"`
	User      *User                  `json:"user,omitempty"`
	CreatedOn time.Time              `json:"created_on"`
}

// CommentRequest is the body of an add-comment call.
type CommentRequest struct {
	Content Content `json:"content"`
}

// Comment represents a comment on a Bitbucket Cloud issue.
type Comment struct {
	ID        int       `json:"id"`
	Content   Content   `json:"content"`
	User      *User     `json:"user,omitempty"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
	Links     Links     `json:"links"`
}

// CommentPage is a single page of issue comments.
type CommentPage struct {
	Size    int       `json:"size"`
	Page    int       `json:"page"`
	Pagelen int       `json:"pagelen"`
	Next    string    `json:"next,omitempty"`
	Values  []Comment `json:"values"`
}

// User represents a Bitbucket Cloud account.
type User struct {
	UUID        string `json:"uuid"`
	DisplayName string `json:"display_name"`
	Nickname    string `json:"nickname,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
}

// Links holds the hypermedia links of a resource.
type Links struct {
	Self *Link `json:"self,omitempty"`
	HTML *Link `json:"html,omitempty"`
}

// Link is a single hypermedia link.
type Link struct {
	Href string `json:"href"`
}

// ErrorResponse is the Bitbucket Cloud error response format.
type ErrorResponse struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the error entry within an ErrorResponse.
type ErrorDetail struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

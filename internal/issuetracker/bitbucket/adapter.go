package bitbucket

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/issuetracker/internal/issuetracker"
	"github.com/nhle/issuetracker/internal/model"
)

var _ issuetracker.IssueTracker = (*Tracker)(nil)

func init() {
	issuetracker.Register(model.TrackerTypeBitbucket, func(
		system model.BugSystem,
		password string,
		links issuetracker.LinkStore,
	) (issuetracker.IssueTracker, error) {
		return NewTracker(system, password, links), nil
	})
}

// Tracker implements issuetracker.IssueTracker for Bitbucket Cloud.
//
// The configured base URL is the repository URL, e.g.
// https://bitbucket.org/{workspace}/{repository}. The username is the
// Bitbucket login and the password an app password with Issues read and
// write permission.
type Tracker struct {
	system     model.BugSystem
	password   string
	links      issuetracker.LinkStore
	log        logrus.FieldLogger
	clientOpts []ClientOption
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets the logger used for degraded-path reporting.
func WithLogger(log logrus.FieldLogger) TrackerOption {
	return func(t *Tracker) {
		t.log = log
	}
}

// WithClientOptions passes options to every Client the tracker creates.
func WithClientOptions(opts ...ClientOption) TrackerOption {
	return func(t *Tracker) {
		t.clientOpts = append(t.clientOpts, opts...)
	}
}

// NewTracker creates a Bitbucket tracker. The repository URL is not
// validated until the first remote call.
func NewTracker(
	system model.BugSystem,
	password string,
	links issuetracker.LinkStore,
	opts ...TrackerOption,
) *Tracker {
	t := &Tracker{
		system:   system,
		password: password,
		links:    links,
		log:      logrus.StandardLogger(),
	}
	if system.APIURL != "" {
		t.clientOpts = append(t.clientOpts, WithAPIBaseURL(system.APIURL))
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.WithFields(logrus.Fields{
		"tracker":    model.TrackerTypeBitbucket,
		"bug_system": system.ID,
	})
	return t
}

// rpc builds the endpoint client from the held configuration.
func (t *Tracker) rpc() (*Client, error) {
	return NewClient(
		t.system.BaseURL, t.system.APIUsername, t.password, t.clientOpts...,
	)
}

// IsAddingTestCaseToIssueDisabled reports whether any of the base URL,
// username or password is missing.
func (t *Tracker) IsAddingTestCaseToIssueDisabled() bool {
	return t.system.BaseURL == "" || t.system.APIUsername == "" || t.password == ""
}

// ReportIssue creates an issue for a failed execution and links the
// execution to it. When the remote side fails for any reason the issue is
// nil and the URL points at the manual issue form instead. Errors outside
// the remote failure taxonomy, such as a failing link store or a cancelled
// or expired context, are returned; if the issue was already created it is returned
// alongside the error.
func (t *Tracker) ReportIssue(
	ctx context.Context,
	execution model.TestExecution,
	user model.User,
) (*issuetracker.Issue, string, error) {
	description := issuetracker.ReportComment(execution, user)
	data := IssueRequest{
		Title:    "Failed test: " + execution.Case.Summary,
		Kind:     "bug",
		Priority: "major",
		Content: &Content{
			Raw: strings.ReplaceAll(description, "\n", "\r\n"),
		},
	}

	issue, issueURL, err := t.reportIssue(ctx, execution, data)
	if err == nil {
		return issue, issueURL, nil
	}
	// A cancelled or expired caller context is returned; the client's own
	// timeout is a transport failure and falls back.
	if ctx.Err() != nil || !issuetracker.IsRemoteError(err) {
		return issue, issueURL, err
	}

	fallback := t.newIssueURL()
	t.log.WithError(err).WithFields(logrus.Fields{
		"execution_id": execution.ID,
		"fallback_url": fallback,
	}).Warn("reporting issue failed, falling back to manual entry")

	return nil, fallback, nil
}

func (t *Tracker) reportIssue(
	ctx context.Context,
	execution model.TestExecution,
	data IssueRequest,
) (*issuetracker.Issue, string, error) {
	rpc, err := t.rpc()
	if err != nil {
		return nil, "", err
	}

	created, err := rpc.CreateIssue(ctx, data)
	if err != nil {
		return nil, "", fmt.Errorf("creating issue: %w", err)
	}
	if created.ID == 0 {
		return nil, "", &issuetracker.ShapeError{Object: "create issue", Field: "id"}
	}

	issue := &issuetracker.Issue{
		ID:    created.ID,
		Title: created.Title,
		State: created.State,
	}
	issueURL := fmt.Sprintf("%s/issues/%d", t.system.BaseURL, created.ID)

	_, _, err = t.links.GetOrCreateLink(ctx, model.LinkReference{
		ExecutionID: execution.ID,
		Name:        fmt.Sprintf("Bitbucket issue #%d", created.ID),
		URL:         issueURL,
		IsDefect:    true,
	})
	if err != nil {
		return issue, issueURL, fmt.Errorf("linking execution %d to %s: %w", execution.ID, issueURL, err)
	}

	return issue, issueURL, nil
}

// newIssueURL returns the form where a user can file an issue by hand.
func (t *Tracker) newIssueURL() string {
	url := t.system.BaseURL
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url + "issues/new"
}

// PostComment adds the execution summary as a comment on an issue.
// Failures are returned unchanged.
func (t *Tracker) PostComment(
	ctx context.Context,
	execution model.TestExecution,
	issueID int,
) error {
	rpc, err := t.rpc()
	if err != nil {
		return err
	}

	body := CommentRequest{
		Content: Content{
			Raw: strings.ReplaceAll(issuetracker.Text(execution), "\n", "\n\n"),
		},
	}
	if _, err := rpc.AddComment(ctx, issueID, body); err != nil {
		return fmt.Errorf("commenting on issue %d: %w", issueID, err)
	}
	return nil
}

// Details fetches the issue behind a display URL.
func (t *Tracker) Details(ctx context.Context, url string) (*issuetracker.Details, error) {
	rpc, issueID, err := t.rpcFor(url)
	if err != nil {
		return nil, err
	}

	issue, err := rpc.GetIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("fetching issue %d: %w", issueID, err)
	}

	switch {
	case issue.ID == 0:
		return nil, &issuetracker.ShapeError{Object: "issue", Field: "id"}
	case issue.Content == nil:
		return nil, &issuetracker.ShapeError{Object: "issue", Field: "content"}
	case issue.State == "":
		return nil, &issuetracker.ShapeError{Object: "issue", Field: "state"}
	case issue.Title == "":
		return nil, &issuetracker.ShapeError{Object: "issue", Field: "title"}
	}

	return &issuetracker.Details{
		ID:          issue.ID,
		Description: issue.Content.Raw,
		Status:      issue.State,
		Title:       issue.Title,
		URL:         url,
	}, nil
}

// Comments returns the first page of comments on the issue behind url,
// most recently updated first.
func (t *Tracker) Comments(ctx context.Context, url string) ([]Comment, error) {
	rpc, issueID, err := t.rpcFor(url)
	if err != nil {
		return nil, err
	}

	page, err := rpc.GetComments(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("listing comments of issue %d: %w", issueID, err)
	}
	return page.Values, nil
}

// DeleteComment removes a comment from the issue behind url.
func (t *Tracker) DeleteComment(ctx context.Context, url string, commentID int) error {
	rpc, issueID, err := t.rpcFor(url)
	if err != nil {
		return err
	}

	if _, err := rpc.DeleteComment(ctx, issueID, commentID); err != nil {
		return fmt.Errorf("deleting comment %d of issue %d: %w", commentID, issueID, err)
	}
	return nil
}

// ChangeState moves the issue behind url to state, e.g. "resolved",
// with an optional message.
func (t *Tracker) ChangeState(
	ctx context.Context,
	url string,
	state string,
	message string,
) (*IssueChange, error) {
	rpc, issueID, err := t.rpcFor(url)
	if err != nil {
		return nil, err
	}

	req := IssueChangeRequest{
		Changes: map[string]FieldChange{
			"state": {New: state},
		},
	}
	if message != "" {
		req.Message = &Content{Raw: message}
	}

	change, err := rpc.UpdateIssue(ctx, issueID, req)
	if err != nil {
		return nil, fmt.Errorf("changing state of issue %d: %w", issueID, err)
	}
	return change, nil
}

func (t *Tracker) rpcFor(url string) (*Client, int, error) {
	issueID, err := issuetracker.BugIDFromURL(url)
	if err != nil {
		return nil, 0, err
	}
	rpc, err := t.rpc()
	if err != nil {
		return nil, 0, err
	}
	return rpc, issueID, nil
}

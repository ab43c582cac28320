package issuetracker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nhle/issuetracker/internal/model"
)

// Details is the issue summary shown by the host UI.
type Details struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	URL         string `json:"url"`
}

// Issue is the remote representation of a freshly reported issue.
type Issue struct {
	ID    int
	Title string
	State string
}

// LinkStore persists the association between an execution and an
// external URL.
type LinkStore interface {
	GetOrCreateLink(ctx context.Context, link model.LinkReference) (*model.LinkReference, bool, error)
}

// IssueTracker defines the contract that every external bug-tracking
// backend must implement.
type IssueTracker interface {
	// IsAddingTestCaseToIssueDisabled reports whether the tracker lacks the
	// configuration needed to modify remote issues.
	IsAddingTestCaseToIssueDisabled() bool

	// ReportIssue files a new issue for a failed execution. It returns the
	// created issue and its URL, or a nil issue and a URL where the user can
	// file the issue manually when the remote call fails.
	ReportIssue(ctx context.Context, execution model.TestExecution, user model.User) (*Issue, string, error)

	// PostComment adds a comment describing the execution to an issue.
	PostComment(ctx context.Context, execution model.TestExecution, issueID int) error

	// Details fetches the issue behind a display URL.
	Details(ctx context.Context, url string) (*Details, error)
}

// Factory builds a tracker for a configured bug system.
type Factory func(system model.BugSystem, password string, links LinkStore) (IssueTracker, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[model.TrackerType]Factory)
)

// Register makes a tracker backend available under the given type.
// It panics when the same type is registered twice.
func Register(trackerType model.TrackerType, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[trackerType]; dup {
		panic(fmt.Sprintf("issuetracker: Register called twice for %q", trackerType))
	}
	registry[trackerType] = factory
}

// Types returns the registered tracker types in sorted order.
func Types() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// New builds the tracker registered for system.TrackerType.
func New(system model.BugSystem, password string, links LinkStore) (IssueTracker, error) {
	registryMu.RLock()
	factory, ok := registry[system.TrackerType]
	registryMu.RUnlock()

	if !ok {
		return nil, &ConfigError{
			Field:   "tracker_type",
			Value:   string(system.TrackerType),
			Message: "no such tracker backend",
		}
	}
	return factory(system, password, links)
}

// AddTestExecutionToIssue comments on the issue behind issueURL once per
// execution and links each execution to it as a defect. It does nothing
// when the tracker cannot modify issues.
func AddTestExecutionToIssue(
	ctx context.Context,
	tracker IssueTracker,
	links LinkStore,
	executions []model.TestExecution,
	issueURL string,
) error {
	if tracker.IsAddingTestCaseToIssueDisabled() {
		return nil
	}

	issueID, err := BugIDFromURL(issueURL)
	if err != nil {
		return err
	}

	for _, execution := range executions {
		if err := tracker.PostComment(ctx, execution, issueID); err != nil {
			return fmt.Errorf("commenting on issue %d for execution %d: %w", issueID, execution.ID, err)
		}
		_, _, err := links.GetOrCreateLink(ctx, model.LinkReference{
			ExecutionID: execution.ID,
			URL:         issueURL,
			IsDefect:    true,
		})
		if err != nil {
			return fmt.Errorf("linking execution %d: %w", execution.ID, err)
		}
	}

	return nil
}

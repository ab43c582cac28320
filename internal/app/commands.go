package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/nhle/issuetracker/internal/issuetracker"
	"github.com/nhle/issuetracker/internal/model"
	"github.com/nhle/issuetracker/internal/store"
)

// Report files an issue for the execution described in executionPath.
func (a *App) Report(
	ctx context.Context,
	bugSystemID string,
	executionPath string,
	user model.User,
	stdin io.Reader,
) error {
	execution, err := readExecution(executionPath, json.NewDecoder(stdin))
	if err != nil {
		return err
	}

	tr, err := a.tracker(bugSystemID)
	if err != nil {
		return err
	}

	issue, url, err := tr.ReportIssue(ctx, execution, user)
	if err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{
		"bug_system":   bugSystemID,
		"execution_id": execution.ID,
		"url":          url,
		"created":      issue != nil,
	}).Debug("reported issue")

	fmt.Fprintln(a.out, renderReport(issue, url))
	return nil
}

// Comment adds each execution to the issue at issueURL: one comment and
// one defect link per execution.
func (a *App) Comment(
	ctx context.Context,
	bugSystemID string,
	issueURL string,
	executionPaths []string,
	stdin io.Reader,
) error {
	dec := json.NewDecoder(stdin)
	executions := make([]model.TestExecution, 0, len(executionPaths))
	for _, path := range executionPaths {
		execution, err := readExecution(path, dec)
		if err != nil {
			return err
		}
		executions = append(executions, execution)
	}

	tr, err := a.tracker(bugSystemID)
	if err != nil {
		return err
	}
	if tr.IsAddingTestCaseToIssueDisabled() {
		return fmt.Errorf("bug system %q is missing a base URL, username or password", bugSystemID)
	}

	if err := issuetracker.AddTestExecutionToIssue(ctx, tr, a.store, executions, issueURL); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "added %d execution(s) to %s\n", len(executions), issueURL)
	return nil
}

// Details prints the issue behind url.
func (a *App) Details(ctx context.Context, bugSystemID, url string) error {
	tr, err := a.tracker(bugSystemID)
	if err != nil {
		return err
	}

	details, err := tr.Details(ctx, url)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, renderDetails(details))
	return nil
}

// Comments prints the latest comments of the issue behind url.
func (a *App) Comments(ctx context.Context, bugSystemID, url string) error {
	tr, err := a.bitbucketTracker(bugSystemID)
	if err != nil {
		return err
	}

	comments, err := tr.Comments(ctx, url)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, renderComments(comments))
	return nil
}

// DeleteComment removes a comment from the issue behind url.
func (a *App) DeleteComment(ctx context.Context, bugSystemID, url string, commentID int) error {
	tr, err := a.bitbucketTracker(bugSystemID)
	if err != nil {
		return err
	}

	if err := tr.DeleteComment(ctx, url, commentID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "deleted comment %d\n", commentID)
	return nil
}

// ChangeState moves the issue behind url to state.
func (a *App) ChangeState(ctx context.Context, bugSystemID, url, state, message string) error {
	tr, err := a.bitbucketTracker(bugSystemID)
	if err != nil {
		return err
	}

	change, err := tr.ChangeState(ctx, url, state, message)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s is now %s\n", url, change.Changes["state"].New)
	return nil
}

// Links prints stored link records, optionally only those of one
// execution.
func (a *App) Links(ctx context.Context, executionID int, defectsOnly bool) error {
	filter := store.LinkFilter{DefectsOnly: defectsOnly}
	if executionID > 0 {
		filter.ExecutionID = &executionID
	}

	links, err := a.store.GetLinks(ctx, filter)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, renderLinks(links))
	return nil
}

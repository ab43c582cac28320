package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/nhle/issuetracker/internal/model"
	"github.com/nhle/issuetracker/internal/store"
	"github.com/nhle/issuetracker/tests/testutil"
)

const repoURL = "https://bitbucket.org/ws1/repo1"

type appFixture struct {
	app *App
	out *bytes.Buffer
	dir string
}

// newAppFixture builds an App with one bug system "bb1" whose API host is
// a test server running handler. A nil handler yields no API host.
func newAppFixture(t *testing.T, password string, handler http.HandlerFunc) *appFixture {
	t.Helper()

	system := model.BugSystem{
		ID:          "bb1",
		Name:        "Main repo",
		TrackerType: model.TrackerTypeBitbucket,
		BaseURL:     repoURL,
		APIUsername: "alice",
	}
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		system.APIURL = srv.URL
	}

	logger, _ := logtest.NewNullLogger()
	dir := t.TempDir()
	out := &bytes.Buffer{}

	cfg := defaultTestConfig()
	cfg.SetBugSystem(system)

	return &appFixture{
		app: &App{
			cfgPath: filepath.Join(dir, "config.yaml"),
			cfg:     cfg,
			store:   testutil.NewTestStore(t),
			log:     logger,
			out:     out,
			password: func(id string) (string, error) {
				require.Equal(t, "bb1", id)
				return password, nil
			},
		},
		out: out,
		dir: dir,
	}
}

func defaultTestConfig() *model.AppConfig {
	return &model.AppConfig{
		Log: model.LogConfig{Level: "info", Format: "text"},
	}
}

func (f *appFixture) writeExecution(t *testing.T, execution model.TestExecution) string {
	t.Helper()

	data, err := json.Marshal(execution)
	require.NoError(t, err)

	path := filepath.Join(f.dir, "execution.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func testExecution() model.TestExecution {
	return model.TestExecution{
		ID:         11,
		URL:        "https://tcms.example.com/runs/5/#caserun_11",
		RunID:      5,
		RunSummary: "Nightly",
		Case:       model.TestCase{ID: 3, Summary: "Login works", Text: "open page"},
		Product:    "Portal",
	}
}

func TestReportCreatesIssueAndLink(t *testing.T) {
	f := newAppFixture(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/2.0/repositories/ws1/repo1/issues", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 42, "title": "Failed test: Login works", "state": "new"}`))
	})
	path := f.writeExecution(t, testExecution())

	err := f.app.Report(context.Background(), "bb1", path, model.User{Username: "bob"}, nil)
	require.NoError(t, err)

	out := f.out.String()
	require.Contains(t, out, "#42 Failed test: Login works")
	require.Contains(t, out, repoURL+"/issues/42")

	links, err := f.app.store.GetLinks(context.Background(), store.LinkFilter{})
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, 11, links[0].ExecutionID)
	require.True(t, links[0].IsDefect)
}

func TestReportFallsBackToManualEntry(t *testing.T) {
	f := newAppFixture(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := f.app.Report(
		context.Background(), "bb1", "-", model.User{},
		strings.NewReader(`{"id": 11, "case": {"id": 3, "summary": "Login works"}}`),
	)
	require.NoError(t, err)

	out := f.out.String()
	require.Contains(t, out, "Could not create the issue automatically.")
	require.Contains(t, out, repoURL+"/issues/new")

	links, err := f.app.store.GetLinks(context.Background(), store.LinkFilter{})
	require.NoError(t, err)
	require.Empty(t, links)
}

func TestReportErrors(t *testing.T) {
	f := newAppFixture(t, "secret", nil)

	err := f.app.Report(context.Background(), "missing", "-", model.User{}, strings.NewReader(`{}`))
	require.ErrorContains(t, err, `bug system "missing" is not configured`)

	err = f.app.Report(context.Background(), "bb1", "-", model.User{}, strings.NewReader(`not json`))
	require.ErrorContains(t, err, "decoding execution")

	err = f.app.Report(context.Background(), "bb1", filepath.Join(f.dir, "nope.json"), model.User{}, nil)
	require.ErrorContains(t, err, "opening execution file")
}

func TestReportPasswordLookupFails(t *testing.T) {
	f := newAppFixture(t, "", nil)
	f.app.password = func(string) (string, error) {
		return "", errors.New("keyring locked")
	}

	err := f.app.Report(context.Background(), "bb1", "-", model.User{}, strings.NewReader(`{}`))
	require.ErrorContains(t, err, "keyring locked")
}

func TestCommentAddsExecutions(t *testing.T) {
	f := newAppFixture(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/2.0/repositories/ws1/repo1/issues/7/comments/", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 1}`))
	})
	path := f.writeExecution(t, testExecution())

	err := f.app.Comment(context.Background(), "bb1", repoURL+"/issues/7", []string{path}, nil)
	require.NoError(t, err)
	require.Contains(t, f.out.String(), "added 1 execution(s)")

	links, err := f.app.store.GetLinks(context.Background(), store.LinkFilter{DefectsOnly: true})
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, repoURL+"/issues/7", links[0].URL)
}

func TestCommentReadsSeveralExecutionsFromStdin(t *testing.T) {
	f := newAppFixture(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1}`))
	})

	stdin := strings.NewReader(`{"id": 1, "case": {"id": 3}}
{"id": 2, "case": {"id": 4}}
`)
	err := f.app.Comment(context.Background(), "bb1", repoURL+"/issues/7", []string{"-", "-"}, stdin)
	require.NoError(t, err)
	require.Contains(t, f.out.String(), "added 2 execution(s)")

	links, err := f.app.store.GetLinks(context.Background(), store.LinkFilter{})
	require.NoError(t, err)
	require.Len(t, links, 2)
	require.ElementsMatch(t, []int{1, 2}, []int{links[0].ExecutionID, links[1].ExecutionID})
}

func TestCommentStdinRunsOut(t *testing.T) {
	f := newAppFixture(t, "secret", nil)

	err := f.app.Comment(context.Background(), "bb1", repoURL+"/issues/7", []string{"-", "-"}, strings.NewReader(`{"id": 1}`))
	require.ErrorContains(t, err, "decoding execution -")
}

func TestCommentDisabledWithoutPassword(t *testing.T) {
	f := newAppFixture(t, "", nil)
	path := f.writeExecution(t, testExecution())

	err := f.app.Comment(context.Background(), "bb1", repoURL+"/issues/7", []string{path}, nil)
	require.ErrorContains(t, err, "missing a base URL, username or password")
}

func TestDetails(t *testing.T) {
	f := newAppFixture(t, "", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2.0/repositories/ws1/repo1/issues/7", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 7,
			"title": "Crash on login",
			"state": "open",
			"content": {"raw": "Stack trace attached"}
		}`))
	})

	err := f.app.Details(context.Background(), "bb1", repoURL+"/issues/7")
	require.NoError(t, err)

	out := f.out.String()
	require.Contains(t, out, "#7 Crash on login")
	require.Contains(t, out, "open")
	require.Contains(t, out, "Stack trace attached")
}

func TestCommentsAndDelete(t *testing.T) {
	f := newAppFixture(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"values": [
				{"id": 2, "content": {"raw": "second"}, "user": {"display_name": "Bob"}},
				{"id": 1, "content": {"raw": "first"}}
			]}`))
		case http.MethodDelete:
			require.Equal(t, "/2.0/repositories/ws1/repo1/issues/7/comments/2", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	})

	require.NoError(t, f.app.Comments(context.Background(), "bb1", repoURL+"/issues/7"))
	out := f.out.String()
	require.Contains(t, out, "#2 by Bob")
	require.Contains(t, out, "#1 by unknown")
	require.Contains(t, out, "second")

	f.out.Reset()
	require.NoError(t, f.app.DeleteComment(context.Background(), "bb1", repoURL+"/issues/7", 2))
	require.Equal(t, "deleted comment 2\n", f.out.String())
}

func TestChangeState(t *testing.T) {
	f := newAppFixture(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2.0/repositories/ws1/repo1/issues/7/changes", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 3, "changes": {"state": {"new": "resolved", "old": "open"}}}`))
	})

	err := f.app.ChangeState(context.Background(), "bb1", repoURL+"/issues/7", "resolved", "fixed")
	require.NoError(t, err)
	require.Equal(t, repoURL+"/issues/7 is now resolved\n", f.out.String())
}

func TestLinks(t *testing.T) {
	f := newAppFixture(t, "", nil)
	ctx := context.Background()

	require.NoError(t, f.app.Links(ctx, 0, false))
	require.Contains(t, f.out.String(), "no links")

	for _, l := range []model.LinkReference{
		{ExecutionID: 1, Name: "a", URL: repoURL + "/issues/1", IsDefect: true},
		{ExecutionID: 1, Name: "b", URL: "https://wiki.example.com/page"},
		{ExecutionID: 2, Name: "c", URL: repoURL + "/issues/2", IsDefect: true},
	} {
		_, _, err := f.app.store.GetOrCreateLink(ctx, l)
		require.NoError(t, err)
	}

	f.out.Reset()
	require.NoError(t, f.app.Links(ctx, 1, false))
	out := f.out.String()
	require.Contains(t, out, repoURL+"/issues/1")
	require.Contains(t, out, "https://wiki.example.com/page")
	require.NotContains(t, out, repoURL+"/issues/2")

	f.out.Reset()
	require.NoError(t, f.app.Links(ctx, 0, true))
	out = f.out.String()
	require.Contains(t, out, repoURL+"/issues/2")
	require.NotContains(t, out, "wiki.example.com")
}

func TestConfigureNonInteractive(t *testing.T) {
	f := newAppFixture(t, "", nil)

	err := f.app.Configure(ConfigureOptions{
		ID:          "bb2",
		BaseURL:     "https://bitbucket.org/ws2/repo2/",
		APIUsername: "carol",
	}, false)
	require.NoError(t, err)
	require.Contains(t, f.out.String(), `saved bug system "bb2"`)

	loaded, err := model.LoadConfig(f.app.cfgPath)
	require.NoError(t, err)

	bs, ok := loaded.BugSystem("bb2")
	require.True(t, ok)
	require.Equal(t, "bb2", bs.Name)
	require.Equal(t, "https://bitbucket.org/ws2/repo2", bs.BaseURL)
	require.Equal(t, model.TrackerTypeBitbucket, bs.TrackerType)

	_, ok = loaded.BugSystem("bb1")
	require.True(t, ok)
}

func TestConfigureKeepsExistingFields(t *testing.T) {
	f := newAppFixture(t, "", nil)

	require.NoError(t, f.app.Configure(ConfigureOptions{ID: "bb1", Name: "Renamed"}, false))

	bs, ok := f.app.cfg.BugSystem("bb1")
	require.True(t, ok)
	require.Equal(t, "Renamed", bs.Name)
	require.Equal(t, repoURL, bs.BaseURL)
	require.Equal(t, "alice", bs.APIUsername)
}

func TestConfigureRejectsBadInput(t *testing.T) {
	f := newAppFixture(t, "", nil)

	err := f.app.Configure(ConfigureOptions{BaseURL: repoURL}, false)
	require.ErrorContains(t, err, "ID is required")

	err = f.app.Configure(ConfigureOptions{ID: "bb2", BaseURL: "https://bitbucket.org/ws2"}, false)
	require.Error(t, err)
}

func TestValidateRepoURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid", url: "https://bitbucket.org/ws/repo"},
		{name: "trailing slash", url: "https://bitbucket.org/ws/repo/"},
		{name: "empty", url: " ", wantErr: true},
		{name: "plain http", url: "http://bitbucket.org/ws/repo", wantErr: true},
		{name: "missing repository", url: "https://bitbucket.org/ws", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRepoURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	logger, _ := logtest.NewNullLogger()

	require.NoError(t, configureLogger(logger, model.LogConfig{Level: "debug", Format: "json"}))
	require.Equal(t, "debug", logger.GetLevel().String())

	require.Error(t, configureLogger(logger, model.LogConfig{Level: "loud"}))
	require.Error(t, configureLogger(logger, model.LogConfig{Level: "info", Format: "xml"}))
}

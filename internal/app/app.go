package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/issuetracker/internal/credential"
	"github.com/nhle/issuetracker/internal/issuetracker"
	"github.com/nhle/issuetracker/internal/issuetracker/bitbucket"
	"github.com/nhle/issuetracker/internal/model"
	"github.com/nhle/issuetracker/internal/store"
)

// App holds the configuration, link store and logger shared by all
// commands.
type App struct {
	cfgPath string
	cfg     *model.AppConfig
	store   *store.SQLiteStore
	log     *logrus.Logger
	out     io.Writer

	// password looks up the API password of a bug system.
	password func(bugSystemID string) (string, error)
}

// New loads the configuration at cfgPath, configures logging and opens
// the link store.
func New(cfgPath string, out io.Writer) (*App, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	log := logrus.StandardLogger()
	if err := configureLogger(log, cfg.Log); err != nil {
		return nil, err
	}

	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening link store %s: %w", cfg.Store.Path, err)
	}

	return &App{
		cfgPath:  cfgPath,
		cfg:      cfg,
		store:    s,
		log:      log,
		out:      out,
		password: lookupPassword,
	}, nil
}

// Close releases the link store.
func (a *App) Close() error {
	return a.store.Close()
}

// configureLogger applies the log section of the config. Trackers log
// through the standard logger, so New configures that one.
func configureLogger(log *logrus.Logger, cfg model.LogConfig) error {
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return nil
}

// lookupPassword reads a bug system's API password from the keyring. A
// missing entry yields an empty password, which leaves the tracker in its
// read-only, adding-disabled state.
func lookupPassword(bugSystemID string) (string, error) {
	password, err := credential.Get(credential.BugSystemKey(bugSystemID))
	if errors.Is(err, credential.ErrNotFound) {
		return "", nil
	}
	return password, err
}

// tracker builds the tracker for the configured bug system id.
func (a *App) tracker(bugSystemID string) (issuetracker.IssueTracker, error) {
	system, ok := a.cfg.BugSystem(bugSystemID)
	if !ok {
		return nil, fmt.Errorf("bug system %q is not configured", bugSystemID)
	}

	password, err := a.password(bugSystemID)
	if err != nil {
		return nil, err
	}

	return issuetracker.New(system, password, a.store)
}

// bitbucketTracker builds the tracker for bugSystemID and requires it to
// be a Bitbucket one.
func (a *App) bitbucketTracker(bugSystemID string) (*bitbucket.Tracker, error) {
	tr, err := a.tracker(bugSystemID)
	if err != nil {
		return nil, err
	}
	bb, ok := tr.(*bitbucket.Tracker)
	if !ok {
		return nil, fmt.Errorf("bug system %q is not a Bitbucket tracker", bugSystemID)
	}
	return bb, nil
}

// readExecution decodes a test execution from a JSON file, or from the
// stdin decoder when path is "-". Sharing one stdin decoder lets several
// executions be piped in as a stream of objects.
func readExecution(path string, stdin *json.Decoder) (model.TestExecution, error) {
	dec := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return model.TestExecution{}, fmt.Errorf("opening execution file: %w", err)
		}
		defer f.Close()
		dec = json.NewDecoder(f)
	}

	var execution model.TestExecution
	if err := dec.Decode(&execution); err != nil {
		return model.TestExecution{}, fmt.Errorf("decoding execution %s: %w", path, err)
	}
	return execution, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/sirupsen/logrus"

	"github.com/nhle/issuetracker/internal/app"
	"github.com/nhle/issuetracker/internal/model"
)

var (
	cli        = kingpin.New("issuetracker", "File and follow up Bitbucket issues for failed test executions.")
	configPath = cli.Flag("config", "path to config file").Short('c').Default(model.DefaultConfigPath()).String()

	configureCmd      = cli.Command("configure", "Add or update a Bitbucket bug system.")
	configureID       = configureCmd.Flag("id", "bug system identifier").String()
	configureName     = configureCmd.Flag("name", "bug system label").String()
	configureBaseURL  = configureCmd.Flag("base-url", "repository URL, e.g. https://bitbucket.org/{workspace}/{repository}").String()
	configureUsername = configureCmd.Flag("username", "Bitbucket username").String()
	configurePassword = configureCmd.Flag("password", "Bitbucket app password").Envar("ISSUETRACKER_PASSWORD").String()
	configureNoInput  = configureCmd.Flag("no-input", "do not prompt for missing values").Bool()

	reportCmd       = cli.Command("report", "Report an issue for a failed test execution.")
	reportBugSystem = reportCmd.Arg("bug-system", "bug system id").Required().String()
	reportExecution = reportCmd.Flag("execution", "execution JSON file, - for stdin").Short('e').Default("-").String()
	reportUser      = reportCmd.Flag("user", "reporter username").Default(os.Getenv("USER")).String()
	reportEmail     = reportCmd.Flag("email", "reporter email").String()

	commentCmd        = cli.Command("comment", "Add test executions to an existing issue.")
	commentBugSystem  = commentCmd.Arg("bug-system", "bug system id").Required().String()
	commentIssueURL   = commentCmd.Arg("issue-url", "issue URL").Required().String()
	commentExecutions = commentCmd.Flag("execution", "execution JSON file, - for stdin; repeatable, each - reads the next object from stdin").Short('e').Required().Strings()

	detailsCmd       = cli.Command("details", "Show an issue.")
	detailsBugSystem = detailsCmd.Arg("bug-system", "bug system id").Required().String()
	detailsIssueURL  = detailsCmd.Arg("issue-url", "issue URL").Required().String()

	commentsCmd       = cli.Command("comments", "List the latest comments of an issue.")
	commentsBugSystem = commentsCmd.Arg("bug-system", "bug system id").Required().String()
	commentsIssueURL  = commentsCmd.Arg("issue-url", "issue URL").Required().String()

	deleteCommentCmd       = cli.Command("delete-comment", "Delete a comment from an issue.")
	deleteCommentBugSystem = deleteCommentCmd.Arg("bug-system", "bug system id").Required().String()
	deleteCommentIssueURL  = deleteCommentCmd.Arg("issue-url", "issue URL").Required().String()
	deleteCommentID        = deleteCommentCmd.Arg("comment-id", "comment id").Required().Int()

	resolveCmd       = cli.Command("resolve", "Change the state of an issue.")
	resolveBugSystem = resolveCmd.Arg("bug-system", "bug system id").Required().String()
	resolveIssueURL  = resolveCmd.Arg("issue-url", "issue URL").Required().String()
	resolveState     = resolveCmd.Flag("state", "new state").Default("resolved").
				Enum("new", "open", "resolved", "on hold", "invalid", "duplicate", "wontfix", "closed")
	resolveMessage = resolveCmd.Flag("message", "change message").Short('m').String()

	linksCmd       = cli.Command("links", "List stored links between executions and URLs.")
	linksExecution = linksCmd.Flag("execution", "only links of this execution id").Int()
	linksDefects   = linksCmd.Flag("defects", "only defect links").Bool()
)

func main() {
	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, command); err != nil {
		logrus.WithError(err).Error("command failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	a, err := app.New(*configPath, os.Stdout)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer a.Close()

	switch command {
	case configureCmd.FullCommand():
		return a.Configure(app.ConfigureOptions{
			ID:          *configureID,
			Name:        *configureName,
			BaseURL:     *configureBaseURL,
			APIUsername: *configureUsername,
			APIPassword: *configurePassword,
		}, !*configureNoInput)

	case reportCmd.FullCommand():
		user := model.User{Username: *reportUser, Email: *reportEmail}
		return a.Report(ctx, *reportBugSystem, *reportExecution, user, os.Stdin)

	case commentCmd.FullCommand():
		return a.Comment(ctx, *commentBugSystem, *commentIssueURL, *commentExecutions, os.Stdin)

	case detailsCmd.FullCommand():
		return a.Details(ctx, *detailsBugSystem, *detailsIssueURL)

	case commentsCmd.FullCommand():
		return a.Comments(ctx, *commentsBugSystem, *commentsIssueURL)

	case deleteCommentCmd.FullCommand():
		return a.DeleteComment(ctx, *deleteCommentBugSystem, *deleteCommentIssueURL, *deleteCommentID)

	case resolveCmd.FullCommand():
		return a.ChangeState(ctx, *resolveBugSystem, *resolveIssueURL, *resolveState, *resolveMessage)

	case linksCmd.FullCommand():
		return a.Links(ctx, *linksExecution, *linksDefects)
	}

	return fmt.Errorf("unknown command %q", command)
}

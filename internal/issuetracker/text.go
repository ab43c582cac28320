package issuetracker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/nhle/issuetracker/internal/model"
)

var trailingIntPattern = regexp.MustCompile(`/(\d+)/?$`)

// BugIDFromURL extracts the issue number held by the last path segment of
// an issue display URL, e.g. https://bitbucket.org/ws/repo/issues/42 yields
// 42. Digits glued to other text, as in a repository name, do not count.
func BugIDFromURL(url string) (int, error) {
	m := trailingIntPattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return 0, fmt.Errorf("no issue id at the end of %q", url)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parsing issue id from %q: %w", url, err)
	}
	return id, nil
}

var reportTmpl = template.Must(template.New("report").Parse(
	`Filed from execution {{.Execution.URL}}

Reporter: {{.User.Username}}
Product: {{.Execution.Product}}
Component(s): {{.Components}}
Version-Release number (if applicable): {{.Execution.Version}}
Build: {{.Execution.Build}}

Steps to reproduce:
{{.Execution.Case.Text}}

Actual results:
<describe what happened>
`))

var textTmpl = template.Must(template.New("text").Parse(
	`Confirmed via test execution TE-{{.ID}} from TR-{{.RunID}}: {{.RunSummary}}
{{.URL}}
TC-{{.Case.ID}}: {{.Case.Summary}}
`))

// ReportComment renders the description of a new issue filed for a
// failed execution.
func ReportComment(execution model.TestExecution, user model.User) string {
	components := strings.Join(execution.Components, ", ")
	if components == "" {
		components = "-"
	}

	var b strings.Builder
	_ = reportTmpl.Execute(&b, struct {
		Execution  model.TestExecution
		User       model.User
		Components string
	}{execution, user, components})
	return b.String()
}

// Text renders the comment added to an existing issue for an execution.
func Text(execution model.TestExecution) string {
	var b strings.Builder
	_ = textTmpl.Execute(&b, execution)
	return b.String()
}

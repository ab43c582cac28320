package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/issuetracker/internal/issuetracker"
	"github.com/nhle/issuetracker/internal/issuetracker/bitbucket"
	"github.com/nhle/issuetracker/internal/model"
	"github.com/nhle/issuetracker/internal/theme"
)

func renderReport(issue *issuetracker.Issue, url string) string {
	if issue == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.WarningStyle.Render("Could not create the issue automatically."),
			theme.HelpStyle.Render("File it by hand at:"),
			url,
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		theme.HeaderStyle.Render(fmt.Sprintf("#%d %s", issue.ID, issue.Title)),
		url,
	)
}

func renderDetails(d *issuetracker.Details) string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.HeaderStyle.Render(fmt.Sprintf("#%d %s", d.ID, d.Title)),
		theme.StatusStyle(d.Status).Render(d.Status),
	)

	parts := []string{header, theme.HelpStyle.Render(d.URL)}
	if strings.TrimSpace(d.Description) != "" {
		parts = append(parts, theme.PanelStyle.Render(d.Description))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderComments(comments []bitbucket.Comment) string {
	if len(comments) == 0 {
		return theme.HelpStyle.Render("no comments")
	}

	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		author := "unknown"
		if c.User != nil && c.User.DisplayName != "" {
			author = c.User.DisplayName
		}
		label := fmt.Sprintf("#%d by %s", c.ID, author)
		if !c.UpdatedOn.IsZero() {
			label += " on " + c.UpdatedOn.Format("2006-01-02 15:04")
		}
		parts = append(parts,
			theme.LabelStyle.Render(label),
			theme.PanelStyle.Render(c.Content.Raw),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderLinks(links []model.LinkReference) string {
	if len(links) == 0 {
		return theme.HelpStyle.Render("no links")
	}

	var b strings.Builder
	for i, l := range links {
		if i > 0 {
			b.WriteString("\n")
		}
		flag := "    "
		if l.IsDefect {
			flag = theme.DefectStyle.Render("bug ")
		}
		b.WriteString(fmt.Sprintf("%s%s TE-%d %s",
			flag,
			theme.LabelStyle.Render(l.CreatedAt.Format("2006-01-02")),
			l.ExecutionID,
			l.URL,
		))
	}
	return b.String()
}

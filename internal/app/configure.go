package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/issuetracker/internal/credential"
	"github.com/nhle/issuetracker/internal/issuetracker/bitbucket"
	"github.com/nhle/issuetracker/internal/model"
)

// ConfigureOptions carries the bug system settings collected from flags.
// Empty fields are prompted for when the form is shown.
type ConfigureOptions struct {
	ID          string
	Name        string
	BaseURL     string
	APIUsername string
	APIPassword string
}

// Configure adds or updates a Bitbucket bug system. The API password goes
// to the keyring; everything else to the config file.
func (a *App) Configure(opts ConfigureOptions, interactive bool) error {
	if existing, ok := a.cfg.BugSystem(opts.ID); ok {
		if opts.Name == "" {
			opts.Name = existing.Name
		}
		if opts.BaseURL == "" {
			opts.BaseURL = existing.BaseURL
		}
		if opts.APIUsername == "" {
			opts.APIUsername = existing.APIUsername
		}
	}

	if interactive {
		if err := buildConfigureForm(&opts).Run(); err != nil {
			return fmt.Errorf("reading bug system settings: %w", err)
		}
	}

	if err := validateRequired("ID")(opts.ID); err != nil {
		return err
	}
	if err := validateRepoURL(opts.BaseURL); err != nil {
		return err
	}

	system := model.BugSystem{
		ID:          opts.ID,
		Name:        opts.Name,
		TrackerType: model.TrackerTypeBitbucket,
		BaseURL:     strings.TrimRight(opts.BaseURL, "/"),
		APIUsername: opts.APIUsername,
	}
	if system.Name == "" {
		system.Name = system.ID
	}

	if opts.APIPassword != "" {
		if err := credential.Set(credential.BugSystemKey(system.ID), opts.APIPassword); err != nil {
			return err
		}
	}

	a.cfg.SetBugSystem(system)
	if err := model.SaveConfig(a.cfgPath, a.cfg); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "saved bug system %q (%s)\n", system.ID, system.BaseURL)
	return nil
}

func buildConfigureForm(opts *ConfigureOptions) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("ID").
				Description("Identifier used on the command line").
				Placeholder("bitbucket").
				Value(&opts.ID).
				Validate(validateRequired("ID")),
			huh.NewInput().
				Title("Name").
				Description("A label for this tracker").
				Placeholder("My Bitbucket").
				Value(&opts.Name),
			huh.NewInput().
				Title("Repository URL").
				Description("e.g. https://bitbucket.org/{workspace}/{repository}").
				Placeholder("https://bitbucket.org/workspace/repository").
				Value(&opts.BaseURL).
				Validate(validateRepoURL),
			huh.NewInput().
				Title("Username").
				Description("The Bitbucket username you log in with").
				Value(&opts.APIUsername).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("App password").
				Description("Needs Issues: Read and Write; leave empty to keep the stored one").
				EchoMode(huh.EchoModePassword).
				Value(&opts.APIPassword),
		),
	)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateRepoURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("repository URL is required")
	}
	if !strings.HasPrefix(s, "https://") {
		return fmt.Errorf("repository URL must start with https://")
	}
	_, err := bitbucket.EndpointURL(bitbucket.DefaultAPIBaseURL, s)
	return err
}

package githubapi

import "strings"

const (
	defaultBranchPatternConstant = "main"
	defaultApprovalsConstant     = 1
	defaultStaleDaysConstant     = 30
	defaultCloseCommentConstant  = "Closing this pull request because it has had no activity for %d days. Please reopen it if the change is still needed."
)

// CommandConfiguration captures the tools.github configuration section.
type CommandConfiguration struct {
	APIURL        string   `mapstructure:"api_url"`
	Token         string   `mapstructure:"token"`
	Organization  string   `mapstructure:"organization"`
	Branches      []string `mapstructure:"branches"`
	Approvals     int      `mapstructure:"approvals"`
	StatusChecks  []string `mapstructure:"checks"`
	EnforceAdmins bool     `mapstructure:"enforce_admins"`
	StaleDays     int      `mapstructure:"stale_days"`
	CloseComment  string   `mapstructure:"close_comment"`
}

// DefaultCommandConfiguration provides the built-in GitHub command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Branches:      []string{defaultBranchPatternConstant},
		Approvals:     defaultApprovalsConstant,
		EnforceAdmins: true,
		StaleDays:     defaultStaleDaysConstant,
		CloseComment:  defaultCloseCommentConstant,
	}
}

// Sanitize trims values and restores defaults for blank or non-positive settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.APIURL = strings.TrimSpace(configuration.APIURL)
	sanitized.Token = strings.TrimSpace(configuration.Token)
	sanitized.Organization = strings.TrimSpace(configuration.Organization)
	sanitized.Branches = trimValues(configuration.Branches)
	if len(sanitized.Branches) == 0 {
		sanitized.Branches = []string{defaultBranchPatternConstant}
	}
	if sanitized.Approvals < 0 {
		sanitized.Approvals = defaultApprovalsConstant
	}
	sanitized.StatusChecks = trimValues(configuration.StatusChecks)
	if sanitized.StaleDays < 1 {
		sanitized.StaleDays = defaultStaleDaysConstant
	}
	if len(strings.TrimSpace(sanitized.CloseComment)) == 0 {
		sanitized.CloseComment = defaultCloseCommentConstant
	}
	return sanitized
}

func trimValues(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, value := range values {
		if candidate := strings.TrimSpace(value); len(candidate) > 0 {
			trimmed = append(trimmed, candidate)
		}
	}
	return trimmed
}

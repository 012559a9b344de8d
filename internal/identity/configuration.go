package identity

import "strings"

const defaultRepositoryPathConstant = "."

// CommandConfiguration captures the tools.identity configuration section.
type CommandConfiguration struct {
	Shell          string `mapstructure:"shell"`
	RepositoryPath string `mapstructure:"repository"`
	AuthorMap      string `mapstructure:"author_map"`
}

// DefaultCommandConfiguration provides the built-in identity command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{Shell: string(ShellSh), RepositoryPath: defaultRepositoryPathConstant}
}

// Sanitize trims values and restores defaults for blank settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Shell = strings.ToLower(strings.TrimSpace(configuration.Shell))
	if len(sanitized.Shell) == 0 {
		sanitized.Shell = string(ShellSh)
	}
	sanitized.RepositoryPath = strings.TrimSpace(configuration.RepositoryPath)
	if len(sanitized.RepositoryPath) == 0 {
		sanitized.RepositoryPath = defaultRepositoryPathConstant
	}
	sanitized.AuthorMap = strings.TrimSpace(configuration.AuthorMap)
	return sanitized
}

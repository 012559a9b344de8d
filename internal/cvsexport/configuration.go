package cvsexport

import "strings"

const defaultRepositoryPathConstant = "."

// CommandConfiguration captures the tools.cvs configuration section.
type CommandConfiguration struct {
	CVSDirectory   string `mapstructure:"cvs_dir"`
	RepositoryPath string `mapstructure:"repository"`
	Verify         bool   `mapstructure:"verify"`
}

// DefaultCommandConfiguration provides the built-in cvs-export settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{RepositoryPath: defaultRepositoryPathConstant}
}

// Sanitize trims values and restores defaults for blank settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.CVSDirectory = strings.TrimSpace(configuration.CVSDirectory)
	sanitized.RepositoryPath = strings.TrimSpace(configuration.RepositoryPath)
	if len(sanitized.RepositoryPath) == 0 {
		sanitized.RepositoryPath = defaultRepositoryPathConstant
	}
	return sanitized
}

package modules

import (
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	defaultDirectoryConstant = "."
	defaultJobsConstant      = 4
)

// CommandConfiguration captures the tools.modules configuration section.
type CommandConfiguration struct {
	Directory  string `mapstructure:"directory"`
	Jobs       int    `mapstructure:"jobs"`
	RemoteName string `mapstructure:"remote"`
	Protocol   string `mapstructure:"protocol"`
}

// DefaultCommandConfiguration provides the built-in module command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Directory:  defaultDirectoryConstant,
		Jobs:       defaultJobsConstant,
		RemoteName: shared.DefaultRemoteName,
	}
}

// Sanitize trims values and restores defaults for blank or non-positive settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Directory = strings.TrimSpace(configuration.Directory)
	if len(sanitized.Directory) == 0 {
		sanitized.Directory = defaultDirectoryConstant
	}
	if sanitized.Jobs < 1 {
		sanitized.Jobs = defaultJobsConstant
	}
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = shared.DefaultRemoteName
	}
	sanitized.Protocol = strings.ToLower(strings.TrimSpace(configuration.Protocol))
	return sanitized
}

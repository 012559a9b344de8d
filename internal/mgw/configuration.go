package mgw

import (
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	defaultTargetBranchConstant = "main"
	defaultRepositoryConstant   = "."
)

// CommandConfiguration captures the tools.mgw configuration section.
type CommandConfiguration struct {
	TargetBranch   string `mapstructure:"target"`
	RemoteName     string `mapstructure:"remote"`
	Strategy       string `mapstructure:"strategy"`
	PushStrategy   string `mapstructure:"push_strategy"`
	Push           bool   `mapstructure:"push"`
	RepositoryPath string `mapstructure:"repository"`
}

// DefaultCommandConfiguration provides the built-in workflow settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		TargetBranch:   defaultTargetBranchConstant,
		RemoteName:     shared.DefaultRemoteName,
		Strategy:       string(StrategyAuto),
		PushStrategy:   string(StrategyRebase),
		Push:           true,
		RepositoryPath: defaultRepositoryConstant,
	}
}

// Sanitize trims values and restores defaults for blank settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration
	sanitized.TargetBranch = valueOrDefault(configuration.TargetBranch, defaults.TargetBranch)
	sanitized.RemoteName = valueOrDefault(configuration.RemoteName, defaults.RemoteName)
	sanitized.Strategy = strings.ToLower(valueOrDefault(configuration.Strategy, defaults.Strategy))
	sanitized.PushStrategy = strings.ToLower(valueOrDefault(configuration.PushStrategy, defaults.PushStrategy))
	sanitized.RepositoryPath = valueOrDefault(configuration.RepositoryPath, defaults.RepositoryPath)
	return sanitized
}

func valueOrDefault(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}

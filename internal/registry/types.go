package registry

import (
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
)

// Module is one git repository tracked by the tooling.
type Module struct {
	Name          string `mapstructure:"name" yaml:"name" json:"name"`
	Repository    string `mapstructure:"repository" yaml:"repository" json:"repository"`
	Host          string `mapstructure:"host" yaml:"host" json:"host"`
	RemoteURL     string `mapstructure:"remote_url" yaml:"remote_url" json:"remote_url"`
	DefaultBranch string `mapstructure:"default_branch" yaml:"default_branch" json:"default_branch"`
}

// Group is a named, ordered list of module or group names.
type Group struct {
	Name    string
	Members []string
}

// Configuration captures the registry settings loaded through the application configuration.
type Configuration struct {
	DefaultGroup    string              `mapstructure:"default_group"`
	DefaultHost     string              `mapstructure:"default_host"`
	DefaultBranch   string              `mapstructure:"default_branch"`
	DefaultProtocol string              `mapstructure:"protocol"`
	OverrideFile    string              `mapstructure:"override_file"`
	Modules         []Module            `mapstructure:"modules"`
	Groups          map[string][]string `mapstructure:"groups"`
}

// DefaultConfiguration returns the built-in registry settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		DefaultGroup:    defaultGroupNameConstant,
		DefaultHost:     defaultHostConstant,
		DefaultBranch:   defaultBranchConstant,
		DefaultProtocol: string(gitrepo.RemoteProtocolHTTPS),
		OverrideFile:    defaultOverrideFileConstant,
	}
}

// Sanitize fills blank settings from DefaultConfiguration.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	sanitized.DefaultGroup = valueOrDefault(configuration.DefaultGroup, defaults.DefaultGroup)
	sanitized.DefaultHost = valueOrDefault(configuration.DefaultHost, defaults.DefaultHost)
	sanitized.DefaultBranch = valueOrDefault(configuration.DefaultBranch, defaults.DefaultBranch)
	sanitized.DefaultProtocol = strings.ToLower(valueOrDefault(configuration.DefaultProtocol, defaults.DefaultProtocol))
	sanitized.OverrideFile = strings.TrimSpace(configuration.OverrideFile)
	return sanitized
}

func valueOrDefault(value string, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return defaultValue
	}
	return trimmed
}

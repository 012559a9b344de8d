package registry

import (
	"sort"
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
)

// Registry resolves module and group names to modules.
type Registry struct {
	configuration Configuration
	modules       map[string]Module
	groups        map[string][]string
}

// New builds a registry from the built-in table followed by modules and groups declared in configuration.
func New(configuration Configuration) (*Registry, error) {
	sanitized := configuration.Sanitize()
	registry := &Registry{
		configuration: sanitized,
		modules:       make(map[string]Module),
		groups:        make(map[string][]string),
	}

	builtin := Override{Modules: builtinModules(), Groups: builtinGroups}
	if applyError := registry.ApplyOverride(builtin); applyError != nil {
		return nil, applyError
	}

	configured := Override{Modules: sanitized.Modules, Groups: sanitized.Groups}
	if applyError := registry.ApplyOverride(configured); applyError != nil {
		return nil, applyError
	}
	return registry, nil
}

// ApplyOverride adds or replaces the override's modules and groups and, when set, its default group.
func (registry *Registry) ApplyOverride(override Override) error {
	normalizedModules := make([]Module, 0, len(override.Modules))
	for _, module := range override.Modules {
		normalized, normalizeError := registry.normalizeModule(module)
		if normalizeError != nil {
			return normalizeError
		}
		normalizedModules = append(normalizedModules, normalized)
	}

	for _, module := range normalizedModules {
		registry.modules[module.Name] = module
	}
	for groupName, members := range override.Groups {
		trimmedName := strings.TrimSpace(groupName)
		if len(trimmedName) == 0 {
			continue
		}
		registry.groups[trimmedName] = trimMembers(members)
	}
	if trimmedDefault := strings.TrimSpace(override.DefaultGroup); len(trimmedDefault) > 0 {
		registry.configuration.DefaultGroup = trimmedDefault
	}
	return nil
}

// DefaultGroup names the group resolved when no targets are given.
func (registry *Registry) DefaultGroup() string {
	return registry.configuration.DefaultGroup
}

// DefaultProtocol returns the configured clone protocol.
func (registry *Registry) DefaultProtocol() gitrepo.RemoteProtocol {
	return gitrepo.RemoteProtocol(registry.configuration.DefaultProtocol)
}

// Module looks up a module by name.
func (registry *Registry) Module(name string) (Module, bool) {
	module, exists := registry.modules[strings.TrimSpace(name)]
	return module, exists
}

// Group looks up a group by name.
func (registry *Registry) Group(name string) (Group, bool) {
	trimmedName := strings.TrimSpace(name)
	members, exists := registry.groups[trimmedName]
	if !exists {
		return Group{}, false
	}
	return Group{Name: trimmedName, Members: append([]string(nil), members...)}, true
}

// Modules returns every module sorted by name.
func (registry *Registry) Modules() []Module {
	modules := make([]Module, 0, len(registry.modules))
	for _, module := range registry.modules {
		modules = append(modules, module)
	}
	sort.Slice(modules, func(left int, right int) bool {
		return modules[left].Name < modules[right].Name
	})
	return modules
}

// Groups returns every group sorted by name.
func (registry *Registry) Groups() []Group {
	names := make([]string, 0, len(registry.groups))
	for name := range registry.groups {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, Group{Name: name, Members: append([]string(nil), registry.groups[name]...)})
	}
	return groups
}

// Resolve expands group and module names into an ordered, de-duplicated module list.
// Group names take precedence over module names. An empty target list resolves the
// default group. Every unknown name is reported in a single UnknownTargetError.
func (registry *Registry) Resolve(targets []string) ([]Module, error) {
	requested := trimMembers(targets)
	if len(requested) == 0 {
		requested = []string{registry.configuration.DefaultGroup}
	}

	expansion := &groupExpansion{registry: registry, seen: make(map[string]struct{}), unknownSeen: make(map[string]struct{})}
	for _, target := range requested {
		if expandError := expansion.expand(target, nil); expandError != nil {
			return nil, expandError
		}
	}
	if len(expansion.unknown) > 0 {
		return nil, UnknownTargetError{Names: expansion.unknown}
	}
	return expansion.modules, nil
}

// RemoteURL returns the module's explicit remote URL or one formatted for the protocol.
func (registry *Registry) RemoteURL(module Module, protocol gitrepo.RemoteProtocol) (string, error) {
	if explicit := strings.TrimSpace(module.RemoteURL); len(explicit) > 0 {
		return explicit, nil
	}
	owner, repository, parseError := gitrepo.ParseRepositoryName(module.Repository)
	if parseError != nil {
		return "", parseError
	}
	if len(protocol) == 0 {
		protocol = registry.DefaultProtocol()
	}
	return gitrepo.FormatRemoteURL(gitrepo.RemoteURL{Protocol: protocol, Host: module.Host, Owner: owner, Repository: repository})
}

func (registry *Registry) normalizeModule(module Module) (Module, error) {
	normalized := Module{
		Name:          strings.TrimSpace(module.Name),
		Repository:    strings.TrimSpace(module.Repository),
		Host:          strings.TrimSpace(module.Host),
		RemoteURL:     strings.TrimSpace(module.RemoteURL),
		DefaultBranch: strings.TrimSpace(module.DefaultBranch),
	}
	if len(normalized.Name) == 0 {
		return Module{}, InvalidModuleError{Name: module.Name, Reason: moduleNameRequiredConstant}
	}

	if len(normalized.Repository) == 0 && len(normalized.RemoteURL) > 0 {
		if parsed, parseError := gitrepo.ParseRemoteURL(normalized.RemoteURL); parseError == nil {
			normalized.Repository = parsed.FullName()
			if len(normalized.Host) == 0 {
				normalized.Host = parsed.Host
			}
		}
	}
	if len(normalized.Repository) == 0 && len(normalized.RemoteURL) == 0 {
		return Module{}, InvalidModuleError{Name: normalized.Name, Reason: moduleRepositoryRequiredMessage}
	}

	if len(normalized.Host) == 0 {
		normalized.Host = registry.configuration.DefaultHost
	}
	if len(normalized.DefaultBranch) == 0 {
		normalized.DefaultBranch = registry.configuration.DefaultBranch
	}
	return normalized, nil
}

type groupExpansion struct {
	registry    *Registry
	modules     []Module
	seen        map[string]struct{}
	unknown     []string
	unknownSeen map[string]struct{}
}

func (expansion *groupExpansion) expand(name string, path []string) error {
	if members, isGroup := expansion.registry.groups[name]; isGroup {
		for _, visited := range path {
			if visited == name {
				return GroupCycleError{Path: append(append([]string(nil), path...), name)}
			}
		}
		nestedPath := append(append([]string(nil), path...), name)
		for _, member := range members {
			if expandError := expansion.expand(member, nestedPath); expandError != nil {
				return expandError
			}
		}
		return nil
	}

	module, isModule := expansion.registry.modules[name]
	if !isModule {
		if _, reported := expansion.unknownSeen[name]; !reported {
			expansion.unknownSeen[name] = struct{}{}
			expansion.unknown = append(expansion.unknown, name)
		}
		return nil
	}
	if _, duplicate := expansion.seen[name]; duplicate {
		return nil
	}
	expansion.seen[name] = struct{}{}
	expansion.modules = append(expansion.modules, module)
	return nil
}

func trimMembers(members []string) []string {
	trimmed := make([]string, 0, len(members))
	for _, member := range members {
		if value := strings.TrimSpace(member); len(value) > 0 {
			trimmed = append(trimmed, value)
		}
	}
	return trimmed
}

package githubapi

import (
	"context"
	"errors"
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/registry"
)

// OrganizationLister lists the repositories of an organization.
type OrganizationLister interface {
	ListOrganizationRepositories(executionContext context.Context, organization string) ([]Repository, error)
}

// ResolveRepositories maps targets to repositories. A target containing a slash is a literal
// owner/name; any other target is a registry module or group. When organization is set its
// repositories are appended. Without targets or organization the registry default group is used.
// The result keeps first-seen order without duplicates.
func ResolveRepositories(executionContext context.Context, lister OrganizationLister, moduleRegistry *registry.Registry, targets []string, organization string) ([]Repository, error) {
	var resolved []Repository
	seen := make(map[string]struct{})
	add := func(repository Repository) {
		key := strings.ToLower(repository.FullName())
		if _, duplicate := seen[key]; duplicate {
			return
		}
		seen[key] = struct{}{}
		resolved = append(resolved, repository)
	}

	addModules := func(modules []registry.Module) error {
		for _, module := range modules {
			repository, parseError := ParseRepository(module.Repository)
			if parseError != nil {
				return parseError
			}
			add(repository)
		}
		return nil
	}

	organization = strings.TrimSpace(organization)
	if len(targets) == 0 && len(organization) == 0 {
		if moduleRegistry == nil {
			return nil, ErrRegistryNotConfigured
		}
		defaults, resolveError := moduleRegistry.Resolve(nil)
		if resolveError != nil {
			return nil, resolveError
		}
		if addError := addModules(defaults); addError != nil {
			return nil, addError
		}
	}

	var unknown []string
	for _, target := range targets {
		trimmed := strings.TrimSpace(target)
		if len(trimmed) == 0 {
			continue
		}
		if strings.Contains(trimmed, repositorySeparatorConstant) {
			repository, parseError := ParseRepository(trimmed)
			if parseError != nil {
				return nil, parseError
			}
			add(repository)
			continue
		}
		if moduleRegistry == nil {
			return nil, ErrRegistryNotConfigured
		}
		modules, resolveError := moduleRegistry.Resolve([]string{trimmed})
		var unknownError registry.UnknownTargetError
		if errors.As(resolveError, &unknownError) {
			unknown = append(unknown, unknownError.Names...)
			continue
		}
		if resolveError != nil {
			return nil, resolveError
		}
		if addError := addModules(modules); addError != nil {
			return nil, addError
		}
	}
	if len(unknown) > 0 {
		return nil, registry.UnknownTargetError{Names: unknown}
	}

	if len(organization) > 0 {
		if lister == nil {
			return nil, ErrClientNotConfigured
		}
		repositories, listError := lister.ListOrganizationRepositories(executionContext, organization)
		if listError != nil {
			return nil, listError
		}
		for _, repository := range repositories {
			add(repository)
		}
	}
	return resolved, nil
}

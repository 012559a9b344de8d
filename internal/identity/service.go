package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
	"github.com/Ensembl/ensembl-git-tools/internal/modules"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	gitExecutorMissingMessageConstant = "git executor not configured"
	mappingsRequiredMessageConstant   = "at least one author mapping must be provided"
	dirtyWorktreeMessageConstant      = "worktree has uncommitted changes; commit or stash them before rewriting history"
	identityNotFoundMessageConstant   = "no identity configured in the environment or git config"
	logFailureTemplateConstant        = "failed to read history: %w"
	rewriteFailureTemplateConstant    = "failed to rewrite history: %w"
	malformedLogLineTemplateConstant  = "unexpected git log line %q"
	rewritePromptTemplateConstant     = "Rewrite authorship of %s in %s? [y/N] "
	allBranchesDescriptionConstant    = "all branches"
	gitLogSubcommandConstant          = "log"
	gitLogFormatFlagConstant          = "--format=%H%x09%an%x09%ae%x09%cn%x09%ce"
	gitAllFlagConstant                = "--all"
	gitFilterBranchSubcommandConstant = "filter-branch"
	gitForceFlagConstant              = "-f"
	gitEnvFilterFlagConstant          = "--env-filter"
	gitRevisionSeparatorConstant      = "--"
	squelchWarningEnvironmentName     = "FILTER_BRANCH_SQUELCH_WARNING"
	squelchWarningValueConstant       = "1"
	logFieldSeparatorConstant         = "\t"
	logFieldCountConstant             = 5
	userNameConfigKeyConstant         = "user.name"
	userEmailConfigKeyConstant        = "user.email"
)

var (
	// ErrGitExecutorNotConfigured indicates the service was constructed without an executor.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)
	// ErrMappingsRequired indicates a rewrite without author mappings.
	ErrMappingsRequired = errors.New(mappingsRequiredMessageConstant)
	// ErrDirtyWorktree indicates history rewriting refused to run over uncommitted changes.
	ErrDirtyWorktree = errors.New(dirtyWorktreeMessageConstant)
	// ErrIdentityNotFound indicates neither the environment nor git config names an identity.
	ErrIdentityNotFound = errors.New(identityNotFoundMessageConstant)
)

// EnvironmentLookup reads an environment variable.
type EnvironmentLookup func(name string) (string, bool)

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	GitExecutor shared.GitExecutor
	Prompter    shared.ConfirmationPrompter
}

// Service rewrites and reports commit authorship.
type Service struct {
	executor     shared.GitExecutor
	repositories *gitrepo.RepositoryManager
	prompter     shared.ConfirmationPrompter
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	repositories, managerError := gitrepo.NewRepositoryManager(dependencies.GitExecutor)
	if managerError != nil {
		return nil, managerError
	}
	return &Service{executor: dependencies.GitExecutor, repositories: repositories, prompter: dependencies.Prompter}, nil
}

// PreviewEntry counts the commits one mapping would rewrite.
type PreviewEntry struct {
	Mapping   Mapping
	Authored  int
	Committed int
}

// Preview summarizes the effect of a rewrite without changing history.
type Preview struct {
	Commits   int
	Rewritten int
	Entries   []PreviewEntry
}

// Preview scans the selected history and counts the commits each mapping matches.
func (service *Service) Preview(executionContext context.Context, repositoryPath string, mappings []Mapping, revisionRange string) (Preview, error) {
	if len(mappings) == 0 {
		return Preview{}, ErrMappingsRequired
	}

	arguments := []string{gitLogSubcommandConstant, gitLogFormatFlagConstant}
	arguments = append(arguments, revisionArguments(revisionRange)...)
	result, logError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryPath})
	if logError != nil {
		return Preview{}, fmt.Errorf(logFailureTemplateConstant, logError)
	}

	preview := Preview{Entries: make([]PreviewEntry, len(mappings))}
	for mappingIndex, mapping := range mappings {
		preview.Entries[mappingIndex].Mapping = mapping
	}
	for _, line := range strings.Split(result.StandardOutput, "\n") {
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		fields := strings.Split(line, logFieldSeparatorConstant)
		if len(fields) != logFieldCountConstant {
			return Preview{}, fmt.Errorf(malformedLogLineTemplateConstant, line)
		}
		preview.Commits++

		rewritten := false
		if authorIndex := firstMatch(mappings, fields[1], fields[2]); authorIndex >= 0 {
			preview.Entries[authorIndex].Authored++
			rewritten = true
		}
		if committerIndex := firstMatch(mappings, fields[3], fields[4]); committerIndex >= 0 {
			preview.Entries[committerIndex].Committed++
			rewritten = true
		}
		if rewritten {
			preview.Rewritten++
		}
	}
	return preview, nil
}

// RewriteOptions configure Rewrite.
type RewriteOptions struct {
	RepositoryPath     string
	Mappings           []Mapping
	Range              string
	DryRun             bool
	ConfirmationPolicy shared.ConfirmationPolicy
}

// RewriteResult reports what Rewrite did.
type RewriteResult struct {
	Command  string
	Executed bool
	Declined bool
}

// Rewrite runs git filter-branch with an env-filter built from the mappings.
func (service *Service) Rewrite(executionContext context.Context, options RewriteOptions) (RewriteResult, error) {
	if len(options.Mappings) == 0 {
		return RewriteResult{}, ErrMappingsRequired
	}

	arguments := []string{gitFilterBranchSubcommandConstant, gitForceFlagConstant, gitEnvFilterFlagConstant, EnvFilterScript(options.Mappings), gitRevisionSeparatorConstant}
	arguments = append(arguments, revisionArguments(options.Range)...)
	details := execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     options.RepositoryPath,
		EnvironmentVariables: map[string]string{squelchWarningEnvironmentName: squelchWarningValueConstant},
	}
	result := RewriteResult{Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: details}.String()}
	if options.DryRun {
		return result, nil
	}

	clean, cleanError := service.repositories.CheckCleanWorktree(executionContext, options.RepositoryPath)
	if cleanError != nil {
		return result, cleanError
	}
	if !clean {
		return result, ErrDirtyWorktree
	}

	confirmed, confirmError := options.ConfirmationPolicy.Confirm(service.prompter, fmt.Sprintf(rewritePromptTemplateConstant, describeRange(options.Range), options.RepositoryPath))
	if confirmError != nil {
		return result, confirmError
	}
	if !confirmed {
		result.Declined = true
		return result, nil
	}

	if _, rewriteError := service.executor.ExecuteGit(executionContext, details); rewriteError != nil {
		return result, fmt.Errorf(rewriteFailureTemplateConstant, rewriteError)
	}
	result.Executed = true
	return result, nil
}

// IdentitySource names where an effective identity came from.
type IdentitySource string

// Identity sources reported by Effective.
const (
	SourceEnvironment IdentitySource = "environment"
	SourceGitConfig   IdentitySource = "git config"
)

// EffectiveIdentity is the identity git would record for new commits.
type EffectiveIdentity struct {
	Identity Identity
	Source   IdentitySource
}

// Effective resolves the author identity from GIT_AUTHOR_* variables, falling back to git config.
func (service *Service) Effective(executionContext context.Context, repositoryPath string, lookup EnvironmentLookup) (EffectiveIdentity, error) {
	if lookup != nil {
		name, nameFound := lookup(AuthorNameEnvironmentName)
		email, emailFound := lookup(AuthorEmailEnvironmentName)
		if nameFound && emailFound && len(strings.TrimSpace(name)) > 0 && len(strings.TrimSpace(email)) > 0 {
			return EffectiveIdentity{Identity: Identity{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}, Source: SourceEnvironment}, nil
		}
	}

	name, nameFound, nameError := service.repositories.ConfigValue(executionContext, repositoryPath, userNameConfigKeyConstant)
	if nameError != nil {
		return EffectiveIdentity{}, nameError
	}
	email, emailFound, emailError := service.repositories.ConfigValue(executionContext, repositoryPath, userEmailConfigKeyConstant)
	if emailError != nil {
		return EffectiveIdentity{}, emailError
	}
	if !nameFound || !emailFound || len(name) == 0 || len(email) == 0 {
		return EffectiveIdentity{}, ErrIdentityNotFound
	}
	return EffectiveIdentity{Identity: Identity{Name: name, Email: email}, Source: SourceGitConfig}, nil
}

// ConfigEntries returns the git config keys that make identity the local commit identity.
func ConfigEntries(identity Identity) []modules.ConfigEntry {
	return []modules.ConfigEntry{
		{Key: userNameConfigKeyConstant, Value: identity.Name},
		{Key: userEmailConfigKeyConstant, Value: identity.Email},
	}
}

func firstMatch(mappings []Mapping, name string, email string) int {
	for mappingIndex, mapping := range mappings {
		if mapping.From.Matches(name, email) {
			return mappingIndex
		}
	}
	return -1
}

func revisionArguments(revisionRange string) []string {
	trimmed := strings.TrimSpace(revisionRange)
	if len(trimmed) == 0 {
		return []string{gitAllFlagConstant}
	}
	return []string{trimmed}
}

func describeRange(revisionRange string) string {
	trimmed := strings.TrimSpace(revisionRange)
	if len(trimmed) == 0 {
		return allBranchesDescriptionConstant
	}
	return trimmed
}

package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	gitRevParseSubcommandConstant       = "rev-parse"
	gitAbbrevRefFlagConstant            = "--abbrev-ref"
	gitSymbolicFullNameFlagConstant     = "--symbolic-full-name"
	gitUpstreamReferenceConstant        = "@{u}"
	gitHeadReferenceConstant            = "HEAD"
	gitStatusSubcommandConstant         = "status"
	gitPorcelainFlagConstant            = "--porcelain"
	gitRevListSubcommandConstant        = "rev-list"
	gitLeftRightFlagConstant            = "--left-right"
	gitCountFlagConstant                = "--count"
	gitSymmetricRangeTemplateConstant   = "%s...%s"
	gitMergeBaseSubcommandConstant      = "merge-base"
	gitIsAncestorFlagConstant           = "--is-ancestor"
	gitShowRefSubcommandConstant        = "show-ref"
	gitVerifyFlagConstant               = "--verify"
	gitQuietFlagConstant                = "--quiet"
	gitLocalBranchReferenceTemplate     = "refs/heads/%s"
	gitRemoteBranchReferenceTemplate    = "refs/remotes/%s/%s"
	gitConfigSubcommandConstant         = "config"
	gitConfigGetFlagConstant            = "--get"
	gitNotFoundExitCodeConstant         = 1
	gitExecutorMissingMessageConstant   = "git executor not configured"
	detachedHeadMessageConstant         = "repository is in a detached HEAD state"
	aheadBehindParseErrorTemplate       = "unable to parse ahead/behind counts %q"
	currentBranchErrorTemplateConstant  = "failed to determine current branch: %w"
	worktreeStatusErrorTemplateConstant = "failed to read worktree status: %w"
	aheadBehindErrorTemplateConstant    = "failed to compare %s with %s: %w"
	ancestorErrorTemplateConstant       = "failed to check whether %s contains %s: %w"
	referenceErrorTemplateConstant      = "failed to look up %s: %w"
	configReadErrorTemplateConstant     = "failed to read git config %s: %w"
	configWriteErrorTemplateConstant    = "failed to write git config %s: %w"
	revisionListErrorTemplateConstant   = "failed to list revisions for %s: %w"
)

var (
	// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)
	// ErrDetachedHead indicates HEAD does not point at a branch.
	ErrDetachedHead = errors.New(detachedHeadMessageConstant)
)

// RepositoryManager runs read-mostly git queries against a working tree.
type RepositoryManager struct {
	executor shared.GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor shared.GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CurrentBranch returns the checked out branch name or ErrDetachedHead.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	output, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", fmt.Errorf(currentBranchErrorTemplateConstant, executionError)
	}
	if output == gitHeadReferenceConstant || len(output) == 0 {
		return "", ErrDetachedHead
	}
	return output, nil
}

// UpstreamBranch returns the configured upstream (for example origin/main) or an empty string when none is set.
func (manager *RepositoryManager) UpstreamBranch(executionContext context.Context, repositoryPath string) (string, error) {
	output, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitSymbolicFullNameFlagConstant, gitUpstreamReferenceConstant)
	if executionError != nil {
		if _, failed := execshell.ExitCodeOf(executionError); failed {
			return "", nil
		}
		return "", executionError
	}
	return output, nil
}

// CheckCleanWorktree reports whether the worktree has no staged, unstaged or untracked changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	output, executionError := manager.run(executionContext, repositoryPath, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return false, fmt.Errorf(worktreeStatusErrorTemplateConstant, executionError)
	}
	return len(output) == 0, nil
}

// AheadBehind counts commits reachable from left but not right (ahead) and from right but not left (behind).
func (manager *RepositoryManager) AheadBehind(executionContext context.Context, repositoryPath string, left string, right string) (int, int, error) {
	output, executionError := manager.run(executionContext, repositoryPath, gitRevListSubcommandConstant, gitLeftRightFlagConstant, gitCountFlagConstant, fmt.Sprintf(gitSymmetricRangeTemplateConstant, left, right))
	if executionError != nil {
		return 0, 0, fmt.Errorf(aheadBehindErrorTemplateConstant, left, right, executionError)
	}

	counts := strings.Fields(output)
	if len(counts) != 2 {
		return 0, 0, fmt.Errorf(aheadBehindParseErrorTemplate, output)
	}
	ahead, aheadError := strconv.Atoi(counts[0])
	behind, behindError := strconv.Atoi(counts[1])
	if aheadError != nil || behindError != nil {
		return 0, 0, fmt.Errorf(aheadBehindParseErrorTemplate, output)
	}
	return ahead, behind, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (manager *RepositoryManager) IsAncestor(executionContext context.Context, repositoryPath string, ancestor string, descendant string) (bool, error) {
	found, executionError := manager.probe(executionContext, repositoryPath, gitMergeBaseSubcommandConstant, gitIsAncestorFlagConstant, ancestor, descendant)
	if executionError != nil {
		return false, fmt.Errorf(ancestorErrorTemplateConstant, descendant, ancestor, executionError)
	}
	return found, nil
}

// LocalBranchExists reports whether refs/heads/<branch> exists.
func (manager *RepositoryManager) LocalBranchExists(executionContext context.Context, repositoryPath string, branch string) (bool, error) {
	return manager.referenceExists(executionContext, repositoryPath, fmt.Sprintf(gitLocalBranchReferenceTemplate, branch))
}

// RemoteBranchExists reports whether refs/remotes/<remote>/<branch> exists in the last fetched state.
func (manager *RepositoryManager) RemoteBranchExists(executionContext context.Context, repositoryPath string, remote string, branch string) (bool, error) {
	return manager.referenceExists(executionContext, repositoryPath, fmt.Sprintf(gitRemoteBranchReferenceTemplate, remote, branch))
}

// ConfigValue reads a git config key. The boolean is false when the key is unset.
func (manager *RepositoryManager) ConfigValue(executionContext context.Context, repositoryPath string, key string) (string, bool, error) {
	output, executionError := manager.run(executionContext, repositoryPath, gitConfigSubcommandConstant, gitConfigGetFlagConstant, key)
	if executionError != nil {
		if exitCode, failed := execshell.ExitCodeOf(executionError); failed && exitCode == gitNotFoundExitCodeConstant {
			return "", false, nil
		}
		return "", false, fmt.Errorf(configReadErrorTemplateConstant, key, executionError)
	}
	return output, true, nil
}

// SetConfigValue writes a repository-local git config key.
func (manager *RepositoryManager) SetConfigValue(executionContext context.Context, repositoryPath string, key string, value string) error {
	if _, executionError := manager.run(executionContext, repositoryPath, gitConfigSubcommandConstant, key, value); executionError != nil {
		return fmt.Errorf(configWriteErrorTemplateConstant, key, executionError)
	}
	return nil
}

// RevisionList returns the commit identifiers printed by git rev-list for the given arguments.
func (manager *RepositoryManager) RevisionList(executionContext context.Context, repositoryPath string, arguments ...string) ([]string, error) {
	output, executionError := manager.run(executionContext, repositoryPath, append([]string{gitRevListSubcommandConstant}, arguments...)...)
	if executionError != nil {
		return nil, fmt.Errorf(revisionListErrorTemplateConstant, strings.Join(arguments, " "), executionError)
	}
	return strings.Fields(output), nil
}

func (manager *RepositoryManager) referenceExists(executionContext context.Context, repositoryPath string, reference string) (bool, error) {
	found, executionError := manager.probe(executionContext, repositoryPath, gitShowRefSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, reference)
	if executionError != nil {
		return false, fmt.Errorf(referenceErrorTemplateConstant, reference, executionError)
	}
	return found, nil
}

// probe runs a git command whose exit code 1 means "no" rather than failure.
func (manager *RepositoryManager) probe(executionContext context.Context, repositoryPath string, arguments ...string) (bool, error) {
	_, executionError := manager.run(executionContext, repositoryPath, arguments...)
	if executionError == nil {
		return true, nil
	}
	if exitCode, failed := execshell.ExitCodeOf(executionError); failed && exitCode == gitNotFoundExitCodeConstant {
		return false, nil
	}
	return false, executionError
}

func (manager *RepositoryManager) run(executionContext context.Context, repositoryPath string, arguments ...string) (string, error) {
	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(result.StandardOutput), nil
}

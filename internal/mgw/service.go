package mgw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	gitExecutorMissingMessageConstant = "git executor not configured"
	repositoryPathRequiredMessage     = "repository path must be provided"
	targetRequiredMessageConstant     = "target branch must be provided"
	featureIsTargetTemplateConstant   = "feature branch %s is the target branch; check out or name a feature branch"
	dirtyWorktreeMessageConstant      = "worktree has uncommitted changes; commit or stash them first"
	targetMissingTemplateConstant     = "target branch %s exists neither locally nor on %s"
	conflictTemplateConstant          = "%s of %s onto %s stopped on conflicts and was aborted"
	stepFailureTemplateConstant       = "failed to run git %s: %w"
	pushPromptTemplateConstant        = "Push %s to %s? [y/N] "
	gitFetchSubcommandConstant        = "fetch"
	gitPruneFlagConstant              = "--prune"
	gitCheckoutSubcommandConstant     = "checkout"
	conflictOperationRebaseConstant   = "rebase"
	conflictOperationMergeConstant    = "merge"
)

var (
	// ErrGitExecutorNotConfigured indicates the service was constructed without an executor.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)
	// ErrRepositoryPathRequired indicates the repository path was empty.
	ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessage)
	// ErrTargetRequired indicates the target branch was empty.
	ErrTargetRequired = errors.New(targetRequiredMessageConstant)
	// ErrDirtyWorktree indicates the worktree has uncommitted changes.
	ErrDirtyWorktree = errors.New(dirtyWorktreeMessageConstant)
)

// FeatureIsTargetError reports an attempt to integrate a branch into itself.
type FeatureIsTargetError struct {
	Branch string
}

// Error names the branch.
func (targetError FeatureIsTargetError) Error() string {
	return fmt.Sprintf(featureIsTargetTemplateConstant, targetError.Branch)
}

// ConflictError reports a rebase or merge that stopped on conflicts and was aborted.
type ConflictError struct {
	Operation string
	Branch    string
	Onto      string
	Err       error
}

// Error describes the aborted operation.
func (conflictError ConflictError) Error() string {
	return fmt.Sprintf(conflictTemplateConstant, conflictError.Operation, conflictError.Branch, conflictError.Onto)
}

// Unwrap exposes the failed git command.
func (conflictError ConflictError) Unwrap() error {
	return conflictError.Err
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	GitExecutor shared.GitExecutor
	Prompter    shared.ConfirmationPrompter
}

// Service runs mgw and mpush against one repository.
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

// IntegrateOptions configure Integrate.
type IntegrateOptions struct {
	RepositoryPath     string
	Feature            string
	Target             string
	Remote             string
	Strategy           Strategy
	Push               bool
	DryRun             bool
	ConfirmationPolicy shared.ConfirmationPolicy
}

// Result describes what a run decided and did.
type Result struct {
	Branch      string
	Plan        Plan
	Commands    []string
	Executed    bool
	PushSkipped bool
}

// Integrate promotes the feature branch onto the target branch following Decide.
func (service *Service) Integrate(executionContext context.Context, options IntegrateOptions) (Result, error) {
	repositoryPath := strings.TrimSpace(options.RepositoryPath)
	if len(repositoryPath) == 0 {
		return Result{}, ErrRepositoryPathRequired
	}
	target := strings.TrimSpace(options.Target)
	if len(target) == 0 {
		return Result{}, ErrTargetRequired
	}
	remote := remoteOrDefault(options.Remote)

	feature := strings.TrimSpace(options.Feature)
	currentBranch, branchError := service.repositories.CurrentBranch(executionContext, repositoryPath)
	switch {
	case branchError == nil:
	case len(feature) > 0 && errors.Is(branchError, gitrepo.ErrDetachedHead):
		currentBranch = ""
	default:
		return Result{}, branchError
	}
	if len(feature) == 0 {
		feature = currentBranch
	}
	if feature == target {
		return Result{}, FeatureIsTargetError{Branch: feature}
	}
	if cleanError := service.requireClean(executionContext, repositoryPath); cleanError != nil {
		return Result{}, cleanError
	}
	if !options.DryRun {
		if fetchError := service.fetch(executionContext, repositoryPath, remote); fetchError != nil {
			return Result{}, fetchError
		}
	}

	state, stateError := service.integrationState(executionContext, repositoryPath, feature, target, remote)
	if stateError != nil {
		return Result{}, stateError
	}
	state.Strategy = options.Strategy
	state.Push = options.Push

	plan, decideError := Decide(state)
	if decideError != nil {
		return Result{}, decideError
	}
	result := Result{Branch: feature, Plan: plan, Commands: plan.Describe(currentBranch)}
	if options.DryRun {
		return result, nil
	}

	pushPrompt := fmt.Sprintf(pushPromptTemplateConstant, target, remote)
	executeError := service.execute(executionContext, repositoryPath, currentBranch, plan, func(step Step) (bool, error) {
		if step.Kind != StepPush {
			return true, nil
		}
		confirmed, confirmError := options.ConfirmationPolicy.Confirm(service.prompter, pushPrompt)
		if confirmError != nil {
			return false, confirmError
		}
		result.PushSkipped = !confirmed
		return confirmed, nil
	})
	if executeError != nil {
		return result, executeError
	}
	result.Executed = true
	return result, nil
}

// PushOptions configure Push.
type PushOptions struct {
	RepositoryPath string
	Remote         string
	Strategy       Strategy
	DryRun         bool
}

// Push publishes the current branch, reconciling it with the remote first when needed.
func (service *Service) Push(executionContext context.Context, options PushOptions) (Result, error) {
	repositoryPath := strings.TrimSpace(options.RepositoryPath)
	if len(repositoryPath) == 0 {
		return Result{}, ErrRepositoryPathRequired
	}
	remote := remoteOrDefault(options.Remote)

	branch, branchError := service.repositories.CurrentBranch(executionContext, repositoryPath)
	if branchError != nil {
		return Result{}, branchError
	}
	if cleanError := service.requireClean(executionContext, repositoryPath); cleanError != nil {
		return Result{}, cleanError
	}
	if !options.DryRun {
		if fetchError := service.fetch(executionContext, repositoryPath, remote); fetchError != nil {
			return Result{}, fetchError
		}
	}

	state := PushState{Branch: branch, Remote: remote, Strategy: options.Strategy}
	remoteExists, remoteError := service.repositories.RemoteBranchExists(executionContext, repositoryPath, remote, branch)
	if remoteError != nil {
		return Result{}, remoteError
	}
	state.RemoteBranchExists = remoteExists
	if remoteExists {
		ahead, behind, countError := service.repositories.AheadBehind(executionContext, repositoryPath, branch, fmt.Sprintf(remoteBranchTemplateConstant, remote, branch))
		if countError != nil {
			return Result{}, countError
		}
		state.Ahead = ahead
		state.Behind = behind
	}

	plan, decideError := DecidePush(state)
	if decideError != nil {
		return Result{}, decideError
	}
	result := Result{Branch: branch, Plan: plan, Commands: plan.Describe(branch)}
	if options.DryRun {
		return result, nil
	}
	if executeError := service.execute(executionContext, repositoryPath, branch, plan, nil); executeError != nil {
		return result, executeError
	}
	result.Executed = true
	return result, nil
}

func (service *Service) integrationState(executionContext context.Context, repositoryPath string, feature string, target string, remote string) (State, error) {
	state := State{Feature: feature, Target: target, Remote: remote}
	remoteTarget := fmt.Sprintf(remoteBranchTemplateConstant, remote, target)

	localTargetExists, localError := service.repositories.LocalBranchExists(executionContext, repositoryPath, target)
	if localError != nil {
		return State{}, localError
	}
	remoteTargetExists, remoteError := service.repositories.RemoteBranchExists(executionContext, repositoryPath, remote, target)
	if remoteError != nil {
		return State{}, remoteError
	}
	if !localTargetExists && !remoteTargetExists {
		return State{}, fmt.Errorf(targetMissingTemplateConstant, target, remote)
	}
	state.TargetMissingLocally = !localTargetExists

	targetTip := target
	if localTargetExists && remoteTargetExists {
		ahead, behind, countError := service.repositories.AheadBehind(executionContext, repositoryPath, target, remoteTarget)
		if countError != nil {
			return State{}, countError
		}
		state.TargetAheadOfRemote = ahead > 0
		state.TargetBehindRemote = behind > 0
	}
	if !localTargetExists || state.TargetBehindRemote {
		targetTip = remoteTarget
	}

	containsTarget, ancestorError := service.repositories.IsAncestor(executionContext, repositoryPath, targetTip, feature)
	if ancestorError != nil {
		return State{}, ancestorError
	}
	state.FeatureContainsTarget = containsTarget

	published, publishedError := service.repositories.RemoteBranchExists(executionContext, repositoryPath, remote, feature)
	if publishedError != nil {
		return State{}, publishedError
	}
	state.FeaturePublished = published
	return state, nil
}

// execute runs the plan, checking out branches as steps require. A conflicting
// rebase or merge is aborted and reported as ConflictError. proceed may veto a step.
func (service *Service) execute(executionContext context.Context, repositoryPath string, currentBranch string, plan Plan, proceed func(Step) (bool, error)) error {
	for _, step := range plan.Steps {
		if proceed != nil {
			allowed, proceedError := proceed(step)
			if proceedError != nil {
				return proceedError
			}
			if !allowed {
				continue
			}
		}

		if len(step.OnBranch) > 0 && step.OnBranch != currentBranch {
			if runError := service.run(executionContext, repositoryPath, []string{gitCheckoutSubcommandConstant, step.OnBranch}, false); runError != nil {
				return runError
			}
			currentBranch = step.OnBranch
		}

		runError := service.run(executionContext, repositoryPath, step.Arguments, step.Network)
		if runError == nil {
			continue
		}
		if _, failed := execshell.ExitCodeOf(runError); !failed || len(step.AbortArguments) == 0 {
			return runError
		}
		if abortError := service.run(executionContext, repositoryPath, step.AbortArguments, false); abortError != nil {
			return multierr.Append(runError, abortError)
		}
		return conflictFor(step, currentBranch, runError)
	}
	return nil
}

func conflictFor(step Step, currentBranch string, cause error) ConflictError {
	operand := step.Arguments[len(step.Arguments)-1]
	switch step.Kind {
	case StepRebaseFeature, StepRebaseOnRemote:
		return ConflictError{Operation: conflictOperationRebaseConstant, Branch: currentBranch, Onto: operand, Err: cause}
	default:
		return ConflictError{Operation: conflictOperationMergeConstant, Branch: operand, Onto: currentBranch, Err: cause}
	}
}

func (service *Service) run(executionContext context.Context, repositoryPath string, arguments []string, network bool) error {
	details := execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryPath}
	if network {
		details.EnvironmentVariables = shared.NonInteractiveEnvironment()
	}
	if _, executionError := service.executor.ExecuteGit(executionContext, details); executionError != nil {
		return fmt.Errorf(stepFailureTemplateConstant, strings.Join(arguments, " "), executionError)
	}
	return nil
}

func (service *Service) fetch(executionContext context.Context, repositoryPath string, remote string) error {
	return service.run(executionContext, repositoryPath, []string{gitFetchSubcommandConstant, gitPruneFlagConstant, remote}, true)
}

func (service *Service) requireClean(executionContext context.Context, repositoryPath string) error {
	clean, cleanError := service.repositories.CheckCleanWorktree(executionContext, repositoryPath)
	if cleanError != nil {
		return cleanError
	}
	if !clean {
		return ErrDirtyWorktree
	}
	return nil
}

func remoteOrDefault(remote string) string {
	trimmed := strings.TrimSpace(remote)
	if len(trimmed) == 0 {
		return shared.DefaultRemoteName
	}
	return trimmed
}

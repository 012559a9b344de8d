package modules

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
	"github.com/Ensembl/ensembl-git-tools/internal/registry"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	gitExecutorMissingMessageConstant   = "git executor not configured"
	remoteURLRequiredMessageConstant    = "remote url must be provided"
	branchNameRequiredMessageConstant   = "branch name must be provided"
	gitArgumentsRequiredMessageConstant = "git arguments must be provided"
	dirtyWorktreeMessageConstant        = "worktree has uncommitted changes; commit, stash or pass --allow-dirty"
	notRepositoryMessageConstant        = "path exists but is not a git repository"
	branchNotFoundTemplateConstant      = "branch %s not found locally or on %s; pass --create to create it"
	remoteBranchTemplateConstant        = "%s/%s"
	cloneFailureTemplateConstant        = "failed to clone %s: %w"
	fetchFailureTemplateConstant        = "failed to fetch %s: %w"
	checkoutFailureTemplateConstant     = "failed to check out %s: %w"
	pullFailureTemplateConstant         = "failed to pull %s: %w"
	workspaceFailureTemplateConstant    = "failed to inspect %s: %w"
	gitCloneSubcommandConstant          = "clone"
	gitDepthFlagConstant                = "--depth"
	gitBranchFlagConstant               = "--branch"
	gitFetchSubcommandConstant          = "fetch"
	gitPruneFlagConstant                = "--prune"
	gitTagsFlagConstant                 = "--tags"
	gitCheckoutSubcommandConstant       = "checkout"
	gitCreateBranchFlagConstant         = "-b"
	gitTrackFlagConstant                = "--track"
	gitPullSubcommandConstant           = "pull"
	gitFastForwardOnlyFlagConstant      = "--ff-only"
	gitRebaseFlagConstant               = "--rebase"
	alreadyExistsDetailConstant         = "already exists"
	notClonedDetailConstant             = "not cloned"
	detachedBranchDisplayConstant       = "(detached)"
	gitHeadReferenceConstant            = "HEAD"
	gitConfigSubcommandConstant         = "config"
	configEntriesRequiredMessage        = "configuration entries must be provided"
	configKeySeparatorConstant          = ", "
)

var (
	// ErrGitExecutorNotConfigured indicates the service was constructed without an executor.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)
	// ErrRemoteURLRequired indicates clone was asked to run without a remote URL.
	ErrRemoteURLRequired = errors.New(remoteURLRequiredMessageConstant)
	// ErrBranchNameRequired indicates checkout was asked to run without a branch.
	ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)
	// ErrGitArgumentsRequired indicates exec was asked to run without git arguments.
	ErrGitArgumentsRequired = errors.New(gitArgumentsRequiredMessageConstant)
	// ErrDirtyWorktree indicates a mutating operation refused to touch uncommitted changes.
	ErrDirtyWorktree = errors.New(dirtyWorktreeMessageConstant)
	// ErrNotRepository indicates the module path is occupied by something other than a clone.
	ErrNotRepository = errors.New(notRepositoryMessageConstant)
	// ErrConfigEntriesRequired indicates configure was asked to run without entries.
	ErrConfigEntriesRequired = errors.New(configEntriesRequiredMessage)
)

// BranchNotFoundError reports a checkout of a branch that exists neither locally nor on the remote.
type BranchNotFoundError struct {
	Branch string
	Remote string
}

// Error describes the missing branch.
func (notFoundError BranchNotFoundError) Error() string {
	return fmt.Sprintf(branchNotFoundTemplateConstant, notFoundError.Branch, notFoundError.Remote)
}

// OutcomeStatus labels what happened to a module.
type OutcomeStatus string

// Outcome statuses reported by module operations.
const (
	OutcomeCloned     OutcomeStatus = "cloned"
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeSwitched   OutcomeStatus = "switched"
	OutcomeTracking   OutcomeStatus = "tracking"
	OutcomeCreated    OutcomeStatus = "created"
	OutcomeUpdated    OutcomeStatus = "updated"
	OutcomeFetched    OutcomeStatus = "fetched"
	OutcomeExecuted   OutcomeStatus = "executed"
	OutcomePlanned    OutcomeStatus = "planned"
	OutcomeConfigured OutcomeStatus = "configured"
)

// Outcome describes the result of an operation on one module.
type Outcome struct {
	Module string
	Path   string
	Status OutcomeStatus
	Detail string
	Output string
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	GitExecutor shared.GitExecutor
	Workspace   Workspace
}

// Service performs git operations on module checkouts.
type Service struct {
	executor     shared.GitExecutor
	repositories *gitrepo.RepositoryManager
	workspace    Workspace
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
	workspace := dependencies.Workspace
	if workspace.fileSystem == nil {
		workspace = NewWorkspace(nil, workspace.directory)
	}
	return &Service{executor: dependencies.GitExecutor, repositories: repositories, workspace: workspace}, nil
}

// CloneOptions configure Clone.
type CloneOptions struct {
	RemoteURL string
	Branch    string
	Depth     int
	DryRun    bool
}

// Clone clones the module into the workspace unless its path already exists.
func (service *Service) Clone(executionContext context.Context, module registry.Module, options CloneOptions) (Outcome, error) {
	modulePath := service.workspace.ModulePath(module)
	outcome := Outcome{Module: module.Name, Path: modulePath}

	remoteURL := strings.TrimSpace(options.RemoteURL)
	if len(remoteURL) == 0 {
		return outcome, ErrRemoteURLRequired
	}

	state, stateError := service.workspace.State(module)
	if stateError != nil {
		return outcome, fmt.Errorf(workspaceFailureTemplateConstant, modulePath, stateError)
	}
	if state != CheckoutAbsent {
		outcome.Status = OutcomeSkipped
		outcome.Detail = alreadyExistsDetailConstant
		return outcome, nil
	}

	arguments := []string{gitCloneSubcommandConstant}
	if options.Depth > 0 {
		arguments = append(arguments, gitDepthFlagConstant, strconv.Itoa(options.Depth))
	}
	if branch := strings.TrimSpace(options.Branch); len(branch) > 0 {
		arguments = append(arguments, gitBranchFlagConstant, branch)
	}
	arguments = append(arguments, remoteURL, modulePath)

	details := execshell.CommandDetails{Arguments: arguments, EnvironmentVariables: shared.NonInteractiveEnvironment()}
	if options.DryRun {
		return planned(outcome, details), nil
	}

	if directoryError := service.workspace.EnsureDirectory(); directoryError != nil {
		return outcome, fmt.Errorf(cloneFailureTemplateConstant, module.Name, directoryError)
	}
	if _, cloneError := service.executor.ExecuteGit(executionContext, details); cloneError != nil {
		return outcome, fmt.Errorf(cloneFailureTemplateConstant, module.Name, cloneError)
	}
	outcome.Status = OutcomeCloned
	outcome.Detail = remoteURL
	return outcome, nil
}

// CheckoutOptions configure Checkout.
type CheckoutOptions struct {
	Branch string
	Remote string
	Create bool
	DryRun bool
}

// Checkout switches to a local branch, creates a tracking branch from the remote,
// or creates a new branch when requested.
func (service *Service) Checkout(executionContext context.Context, module registry.Module, options CheckoutOptions) (Outcome, error) {
	outcome, modulePath, ready, readyError := service.requireClone(module)
	if !ready || readyError != nil {
		return outcome, readyError
	}

	branch := strings.TrimSpace(options.Branch)
	if len(branch) == 0 {
		return outcome, ErrBranchNameRequired
	}
	remote := remoteOrDefault(options.Remote)

	fetchDetails := fetchCommand(modulePath, remote, false)
	if !options.DryRun {
		if _, fetchError := service.executor.ExecuteGit(executionContext, fetchDetails); fetchError != nil {
			return outcome, fmt.Errorf(fetchFailureTemplateConstant, remote, fetchError)
		}
	}

	var checkoutDetails execshell.CommandDetails
	localExists, localError := service.repositories.LocalBranchExists(executionContext, modulePath, branch)
	if localError != nil {
		return outcome, localError
	}

	switch {
	case localExists:
		outcome.Status = OutcomeSwitched
		outcome.Detail = branch
		checkoutDetails = execshell.CommandDetails{Arguments: []string{gitCheckoutSubcommandConstant, branch}, WorkingDirectory: modulePath}
	default:
		remoteExists, remoteError := service.repositories.RemoteBranchExists(executionContext, modulePath, remote, branch)
		if remoteError != nil {
			return outcome, remoteError
		}
		remoteBranch := fmt.Sprintf(remoteBranchTemplateConstant, remote, branch)
		switch {
		case remoteExists:
			outcome.Status = OutcomeTracking
			outcome.Detail = branch + " -> " + remoteBranch
			checkoutDetails = execshell.CommandDetails{Arguments: []string{gitCheckoutSubcommandConstant, gitTrackFlagConstant, gitCreateBranchFlagConstant, branch, remoteBranch}, WorkingDirectory: modulePath}
		case options.Create:
			outcome.Status = OutcomeCreated
			outcome.Detail = branch
			checkoutDetails = execshell.CommandDetails{Arguments: []string{gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, branch}, WorkingDirectory: modulePath}
		default:
			return outcome, BranchNotFoundError{Branch: branch, Remote: remote}
		}
	}

	if options.DryRun {
		return planned(outcome, fetchDetails, checkoutDetails), nil
	}
	if _, checkoutError := service.executor.ExecuteGit(executionContext, checkoutDetails); checkoutError != nil {
		return outcome, fmt.Errorf(checkoutFailureTemplateConstant, branch, checkoutError)
	}
	return outcome, nil
}

// PullOptions configure Pull.
type PullOptions struct {
	Remote         string
	Rebase         bool
	WorktreePolicy shared.CleanWorktreePolicy
	DryRun         bool
}

// Pull updates the current branch from the remote with --ff-only, or --rebase when requested.
func (service *Service) Pull(executionContext context.Context, module registry.Module, options PullOptions) (Outcome, error) {
	outcome, modulePath, ready, readyError := service.requireClone(module)
	if !ready || readyError != nil {
		return outcome, readyError
	}

	branch, branchError := service.repositories.CurrentBranch(executionContext, modulePath)
	if branchError != nil {
		return outcome, branchError
	}

	if options.WorktreePolicy.RequireClean() {
		clean, cleanError := service.repositories.CheckCleanWorktree(executionContext, modulePath)
		if cleanError != nil {
			return outcome, cleanError
		}
		if !clean {
			return outcome, ErrDirtyWorktree
		}
	}

	remote := remoteOrDefault(options.Remote)
	modeFlag := gitFastForwardOnlyFlagConstant
	if options.Rebase {
		modeFlag = gitRebaseFlagConstant
	}
	details := execshell.CommandDetails{
		Arguments:            []string{gitPullSubcommandConstant, modeFlag, remote, branch},
		WorkingDirectory:     modulePath,
		EnvironmentVariables: shared.NonInteractiveEnvironment(),
	}
	if options.DryRun {
		return planned(outcome, details), nil
	}

	result, pullError := service.executor.ExecuteGit(executionContext, details)
	if pullError != nil {
		return outcome, fmt.Errorf(pullFailureTemplateConstant, branch, pullError)
	}
	outcome.Status = OutcomeUpdated
	outcome.Detail = branch
	outcome.Output = strings.TrimSpace(result.StandardOutput)
	return outcome, nil
}

// FetchOptions configure Fetch.
type FetchOptions struct {
	Remote string
	Tags   bool
	DryRun bool
}

// Fetch runs git fetch --prune against the remote.
func (service *Service) Fetch(executionContext context.Context, module registry.Module, options FetchOptions) (Outcome, error) {
	outcome, modulePath, ready, readyError := service.requireClone(module)
	if !ready || readyError != nil {
		return outcome, readyError
	}

	remote := remoteOrDefault(options.Remote)
	details := fetchCommand(modulePath, remote, options.Tags)
	if options.DryRun {
		return planned(outcome, details), nil
	}
	if _, fetchError := service.executor.ExecuteGit(executionContext, details); fetchError != nil {
		return outcome, fmt.Errorf(fetchFailureTemplateConstant, remote, fetchError)
	}
	outcome.Status = OutcomeFetched
	outcome.Detail = remote
	return outcome, nil
}

// ExecOptions configure Exec.
type ExecOptions struct {
	Arguments []string
	DryRun    bool
}

// Exec runs arbitrary git arguments inside the module checkout and captures standard output.
func (service *Service) Exec(executionContext context.Context, module registry.Module, options ExecOptions) (Outcome, error) {
	outcome, modulePath, ready, readyError := service.requireClone(module)
	if !ready || readyError != nil {
		return outcome, readyError
	}
	if len(options.Arguments) == 0 {
		return outcome, ErrGitArgumentsRequired
	}

	details := execshell.CommandDetails{Arguments: append([]string(nil), options.Arguments...), WorkingDirectory: modulePath}
	if options.DryRun {
		return planned(outcome, details), nil
	}
	result, execError := service.executor.ExecuteGit(executionContext, details)
	outcome.Output = strings.TrimRight(result.StandardOutput, "\n")
	if execError != nil {
		return outcome, execError
	}
	outcome.Status = OutcomeExecuted
	return outcome, nil
}

// ConfigEntry is a repository-local git config key and value.
type ConfigEntry struct {
	Key   string
	Value string
}

// ConfigureOptions configure Configure.
type ConfigureOptions struct {
	Entries []ConfigEntry
	DryRun  bool
}

// Configure writes repository-local git config entries in the module checkout.
func (service *Service) Configure(executionContext context.Context, module registry.Module, options ConfigureOptions) (Outcome, error) {
	outcome, modulePath, ready, readyError := service.requireClone(module)
	if !ready || readyError != nil {
		return outcome, readyError
	}
	if len(options.Entries) == 0 {
		return outcome, ErrConfigEntriesRequired
	}

	if options.DryRun {
		commands := make([]execshell.CommandDetails, 0, len(options.Entries))
		for _, entry := range options.Entries {
			commands = append(commands, execshell.CommandDetails{Arguments: []string{gitConfigSubcommandConstant, entry.Key, entry.Value}, WorkingDirectory: modulePath})
		}
		return planned(outcome, commands...), nil
	}

	keys := make([]string, 0, len(options.Entries))
	for _, entry := range options.Entries {
		if configError := service.repositories.SetConfigValue(executionContext, modulePath, entry.Key, entry.Value); configError != nil {
			return outcome, configError
		}
		keys = append(keys, entry.Key)
	}
	outcome.Status = OutcomeConfigured
	outcome.Detail = strings.Join(keys, configKeySeparatorConstant)
	return outcome, nil
}

// StatusReport summarizes a module checkout.
type StatusReport struct {
	Module   string
	Path     string
	Cloned   bool
	Branch   string
	Detached bool
	Upstream string
	Ahead    int
	Behind   int
	Dirty    bool
}

// BranchDisplay returns the branch name or a detached marker.
func (report StatusReport) BranchDisplay() string {
	if report.Detached {
		return detachedBranchDisplayConstant
	}
	return report.Branch
}

// Status inspects the module checkout without modifying it.
func (service *Service) Status(executionContext context.Context, module registry.Module) (StatusReport, error) {
	modulePath := service.workspace.ModulePath(module)
	report := StatusReport{Module: module.Name, Path: modulePath}

	state, stateError := service.workspace.State(module)
	if stateError != nil {
		return report, fmt.Errorf(workspaceFailureTemplateConstant, modulePath, stateError)
	}
	switch state {
	case CheckoutAbsent:
		return report, nil
	case CheckoutNotRepository:
		return report, ErrNotRepository
	}
	report.Cloned = true

	branch, branchError := service.repositories.CurrentBranch(executionContext, modulePath)
	switch {
	case errors.Is(branchError, gitrepo.ErrDetachedHead):
		report.Detached = true
	case branchError != nil:
		return report, branchError
	default:
		report.Branch = branch
	}

	if !report.Detached {
		upstream, upstreamError := service.repositories.UpstreamBranch(executionContext, modulePath)
		if upstreamError != nil {
			return report, upstreamError
		}
		report.Upstream = upstream
		if len(upstream) > 0 {
			ahead, behind, countError := service.repositories.AheadBehind(executionContext, modulePath, gitHeadReferenceConstant, upstream)
			if countError != nil {
				return report, countError
			}
			report.Ahead = ahead
			report.Behind = behind
		}
	}

	clean, cleanError := service.repositories.CheckCleanWorktree(executionContext, modulePath)
	if cleanError != nil {
		return report, cleanError
	}
	report.Dirty = !clean
	return report, nil
}

func (service *Service) requireClone(module registry.Module) (Outcome, string, bool, error) {
	modulePath := service.workspace.ModulePath(module)
	outcome := Outcome{Module: module.Name, Path: modulePath}

	state, stateError := service.workspace.State(module)
	if stateError != nil {
		return outcome, modulePath, false, fmt.Errorf(workspaceFailureTemplateConstant, modulePath, stateError)
	}
	switch state {
	case CheckoutAbsent:
		outcome.Status = OutcomeSkipped
		outcome.Detail = notClonedDetailConstant
		return outcome, modulePath, false, nil
	case CheckoutNotRepository:
		return outcome, modulePath, false, ErrNotRepository
	}
	return outcome, modulePath, true, nil
}

func fetchCommand(modulePath string, remote string, includeTags bool) execshell.CommandDetails {
	arguments := []string{gitFetchSubcommandConstant, gitPruneFlagConstant}
	if includeTags {
		arguments = append(arguments, gitTagsFlagConstant)
	}
	arguments = append(arguments, remote)
	return execshell.CommandDetails{Arguments: arguments, WorkingDirectory: modulePath, EnvironmentVariables: shared.NonInteractiveEnvironment()}
}

func planned(outcome Outcome, commands ...execshell.CommandDetails) Outcome {
	rendered := make([]string, 0, len(commands))
	for _, details := range commands {
		rendered = append(rendered, execshell.ShellCommand{Name: execshell.CommandGit, Details: details}.String())
	}
	outcome.Status = OutcomePlanned
	outcome.Output = strings.Join(rendered, "\n")
	return outcome
}

func remoteOrDefault(remote string) string {
	trimmed := strings.TrimSpace(remote)
	if len(trimmed) == 0 {
		return shared.DefaultRemoteName
	}
	return trimmed
}

package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/dependencies"
	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
	"github.com/Ensembl/ensembl-git-tools/internal/registry"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

const (
	listUseConstant              = "list [targets...]"
	listShortConstant            = "List module groups or modules"
	listLongConstant             = "list prints every group with its members. With --modules, or when targets are given, it prints the resolved modules with their repository, default branch and remote URL."
	cloneUseConstant             = "clone [targets...]"
	cloneShortConstant           = "Clone modules into the workspace directory"
	cloneLongConstant            = "clone runs git clone for each resolved module into <directory>/<module>. Modules whose directory already exists are skipped."
	cloneExampleConstant         = "git-ensembl clone api --branch release/110 --protocol ssh --directory ~/src"
	checkoutUseConstant          = "checkout [targets...]"
	checkoutShortConstant        = "Switch modules to a branch, creating tracking branches as needed"
	checkoutLongConstant         = "checkout fetches the remote, then switches to the local branch, creates a branch tracking <remote>/<branch>, or with --create starts a new branch."
	checkoutExampleConstant      = "git-ensembl checkout production --branch release/110"
	pullUseConstant              = "pull [targets...]"
	pullShortConstant            = "Update the current branch of each module from the remote"
	pullLongConstant             = "pull runs git pull --ff-only (or --rebase) against the remote for the checked out branch. Dirty worktrees and detached HEADs are refused."
	fetchUseConstant             = "fetch [targets...]"
	fetchShortConstant           = "Fetch and prune remote branches for each module"
	statusUseConstant            = "status [targets...]"
	statusShortConstant          = "Summarize branch, upstream and worktree state for each module"
	execUseConstant              = "exec [targets...] -- <git arguments>"
	execShortConstant            = "Run a git command in each module"
	execExampleConstant          = "git-ensembl exec api -- log -1 --oneline"
	modulesFlagNameConstant      = "modules"
	modulesFlagUsageConstant     = "List modules instead of groups"
	branchFlagNameConstant       = "branch"
	branchFlagShorthandConstant  = "b"
	cloneBranchUsageConstant     = "Branch to check out after cloning"
	checkoutBranchUsageConstant  = "Branch to switch to"
	protocolFlagNameConstant     = "protocol"
	protocolFlagUsageConstant    = "Remote URL protocol"
	depthFlagNameConstant        = "depth"
	depthFlagUsageConstant       = "Create a shallow clone with the given number of commits"
	createFlagNameConstant       = "create"
	createFlagUsageConstant      = "Create the branch when it exists neither locally nor on the remote"
	rebaseFlagNameConstant       = "rebase"
	rebaseFlagUsageConstant      = "Rebase local commits instead of requiring a fast-forward"
	allowDirtyFlagNameConstant   = "allow-dirty"
	allowDirtyFlagUsageConstant  = "Pull even when the worktree has uncommitted changes"
	tagsFlagNameConstant         = "tags"
	tagsFlagUsageConstant        = "Fetch all tags"
	missingBranchMessageConstant = "--branch is required"
	missingExecArgsMessage       = "git arguments are required after --"
	registryMissingMessage       = "module registry not configured"
)

var protocolChoices = []string{string(gitrepo.RemoteProtocolHTTPS), string(gitrepo.RemoteProtocolSSH)}

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// RegistryProvider yields the module registry for the current invocation.
type RegistryProvider func() (*registry.Registry, error)

// CommandBuilder assembles the multi-module commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	RegistryProvider             RegistryProvider
	FileSystem                   afero.Fs
}

// BuildCommands constructs list, clone, checkout, pull, fetch, status and exec.
func (builder *CommandBuilder) BuildCommands() []*cobra.Command {
	return []*cobra.Command{
		builder.BuildList(),
		builder.BuildClone(),
		builder.BuildCheckout(),
		builder.BuildPull(),
		builder.BuildFetch(),
		builder.BuildStatus(),
		builder.BuildExec(),
	}
}

// BuildList constructs the list command.
func (builder *CommandBuilder) BuildList() *cobra.Command {
	command := &cobra.Command{
		Use:   listUseConstant,
		Short: listShortConstant,
		Long:  listLongConstant,
		Args:  cobra.ArbitraryArgs,
	}
	listModules := command.Flags().Bool(modulesFlagNameConstant, false, modulesFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		moduleRegistry, registryError := builder.resolveRegistry()
		if registryError != nil {
			return registryError
		}
		if !*listModules && len(arguments) == 0 {
			fmt.Fprint(command.OutOrStdout(), RenderGroups(moduleRegistry.Groups()))
			fmt.Fprintln(command.OutOrStdout())
			return nil
		}

		selected := moduleRegistry.Modules()
		if len(arguments) > 0 {
			resolved, resolveError := moduleRegistry.Resolve(arguments)
			if resolveError != nil {
				return resolveError
			}
			selected = resolved
		}

		protocol := gitrepo.RemoteProtocol(builder.resolveConfiguration().Protocol)
		listings := make([]ModuleListing, 0, len(selected))
		for _, module := range selected {
			remoteURL, urlError := moduleRegistry.RemoteURL(module, protocol)
			if urlError != nil {
				return urlError
			}
			listings = append(listings, ModuleListing{Module: module, RemoteURL: remoteURL})
		}
		fmt.Fprint(command.OutOrStdout(), RenderModules(listings))
		fmt.Fprintln(command.OutOrStdout())
		return nil
	}
	return command
}

// BuildClone constructs the clone command.
func (builder *CommandBuilder) BuildClone() *cobra.Command {
	command := &cobra.Command{
		Use:     cloneUseConstant,
		Short:   cloneShortConstant,
		Long:    cloneLongConstant,
		Example: cloneExampleConstant,
		Args:    cobra.ArbitraryArgs,
	}
	selection := flagutils.BindModuleSelectionFlags(command, builder.selectionDefaults())
	branch := command.Flags().StringP(branchFlagNameConstant, branchFlagShorthandConstant, "", cloneBranchUsageConstant)
	protocolValue := command.Flags().String(protocolFlagNameConstant, "", flagutils.FormatChoiceUsage(string(gitrepo.RemoteProtocolHTTPS), protocolChoices, protocolFlagUsageConstant))
	depth := command.Flags().Int(depthFlagNameConstant, 0, depthFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments, selection)
		if prepareError != nil {
			return prepareError
		}

		protocolDefault := builder.resolveConfiguration().Protocol
		if len(protocolDefault) == 0 {
			protocolDefault = string(run.registry.DefaultProtocol())
		}
		protocol, protocolError := flagutils.NormalizeChoice(protocolFlagNameConstant, *protocolValue, protocolDefault, protocolChoices)
		if protocolError != nil {
			return protocolError
		}

		results, runError := ForEachModule(command.Context(), run.modules, run.jobs, func(executionContext context.Context, module registry.Module) (Outcome, error) {
			remoteURL, urlError := run.registry.RemoteURL(module, gitrepo.RemoteProtocol(protocol))
			if urlError != nil {
				return Outcome{Module: module.Name}, urlError
			}
			return run.service.Clone(executionContext, module, CloneOptions{RemoteURL: remoteURL, Branch: *branch, Depth: *depth, DryRun: run.dryRun})
		})
		run.printOutcomes(results)
		return runError
	}
	return command
}

// BuildCheckout constructs the checkout command.
func (builder *CommandBuilder) BuildCheckout() *cobra.Command {
	command := &cobra.Command{
		Use:     checkoutUseConstant,
		Short:   checkoutShortConstant,
		Long:    checkoutLongConstant,
		Example: checkoutExampleConstant,
		Args:    cobra.ArbitraryArgs,
	}
	selection := flagutils.BindModuleSelectionFlags(command, builder.selectionDefaults())
	flagutils.EnsureRemoteFlag(command, shared.DefaultRemoteName, "")
	branch := command.Flags().StringP(branchFlagNameConstant, branchFlagShorthandConstant, "", checkoutBranchUsageConstant)
	create := command.Flags().Bool(createFlagNameConstant, false, createFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		if len(strings.TrimSpace(*branch)) == 0 {
			return errors.New(missingBranchMessageConstant)
		}
		run, prepareError := builder.prepare(command, arguments, selection)
		if prepareError != nil {
			return prepareError
		}
		results, runError := ForEachModule(command.Context(), run.modules, run.jobs, func(executionContext context.Context, module registry.Module) (Outcome, error) {
			return run.service.Checkout(executionContext, module, CheckoutOptions{Branch: *branch, Remote: run.remote, Create: *create, DryRun: run.dryRun})
		})
		run.printOutcomes(results)
		return runError
	}
	return command
}

// BuildPull constructs the pull command.
func (builder *CommandBuilder) BuildPull() *cobra.Command {
	command := &cobra.Command{
		Use:   pullUseConstant,
		Short: pullShortConstant,
		Long:  pullLongConstant,
		Args:  cobra.ArbitraryArgs,
	}
	selection := flagutils.BindModuleSelectionFlags(command, builder.selectionDefaults())
	flagutils.EnsureRemoteFlag(command, shared.DefaultRemoteName, "")
	rebase := command.Flags().Bool(rebaseFlagNameConstant, false, rebaseFlagUsageConstant)
	allowDirty := command.Flags().Bool(allowDirtyFlagNameConstant, false, allowDirtyFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments, selection)
		if prepareError != nil {
			return prepareError
		}
		options := PullOptions{
			Remote:         run.remote,
			Rebase:         *rebase,
			WorktreePolicy: shared.CleanWorktreePolicyFromAllowDirty(*allowDirty),
			DryRun:         run.dryRun,
		}
		results, runError := ForEachModule(command.Context(), run.modules, run.jobs, func(executionContext context.Context, module registry.Module) (Outcome, error) {
			return run.service.Pull(executionContext, module, options)
		})
		run.printOutcomes(results)
		return runError
	}
	return command
}

// BuildFetch constructs the fetch command.
func (builder *CommandBuilder) BuildFetch() *cobra.Command {
	command := &cobra.Command{
		Use:   fetchUseConstant,
		Short: fetchShortConstant,
		Args:  cobra.ArbitraryArgs,
	}
	selection := flagutils.BindModuleSelectionFlags(command, builder.selectionDefaults())
	flagutils.EnsureRemoteFlag(command, shared.DefaultRemoteName, "")
	tags := command.Flags().Bool(tagsFlagNameConstant, false, tagsFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments, selection)
		if prepareError != nil {
			return prepareError
		}
		results, runError := ForEachModule(command.Context(), run.modules, run.jobs, func(executionContext context.Context, module registry.Module) (Outcome, error) {
			return run.service.Fetch(executionContext, module, FetchOptions{Remote: run.remote, Tags: *tags, DryRun: run.dryRun})
		})
		run.printOutcomes(results)
		return runError
	}
	return command
}

// BuildStatus constructs the status command.
func (builder *CommandBuilder) BuildStatus() *cobra.Command {
	command := &cobra.Command{
		Use:   statusUseConstant,
		Short: statusShortConstant,
		Args:  cobra.ArbitraryArgs,
	}
	selection := flagutils.BindModuleSelectionFlags(command, builder.selectionDefaults())

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments, selection)
		if prepareError != nil {
			return prepareError
		}
		results, runError := ForEachModule(command.Context(), run.modules, run.jobs, run.service.Status)
		fmt.Fprint(command.OutOrStdout(), RenderStatus(results))
		fmt.Fprintln(command.OutOrStdout())
		return runError
	}
	return command
}

// BuildExec constructs the exec command.
func (builder *CommandBuilder) BuildExec() *cobra.Command {
	command := &cobra.Command{
		Use:     execUseConstant,
		Short:   execShortConstant,
		Example: execExampleConstant,
		Args:    cobra.ArbitraryArgs,
	}
	selection := flagutils.BindModuleSelectionFlags(command, builder.selectionDefaults())

	command.RunE = func(command *cobra.Command, arguments []string) error {
		separatorIndex := command.ArgsLenAtDash()
		if separatorIndex < 0 || separatorIndex >= len(arguments) {
			return errors.New(missingExecArgsMessage)
		}
		targets := arguments[:separatorIndex]
		gitArguments := arguments[separatorIndex:]

		run, prepareError := builder.prepare(command, targets, selection)
		if prepareError != nil {
			return prepareError
		}
		results, runError := ForEachModule(command.Context(), run.modules, run.jobs, func(executionContext context.Context, module registry.Module) (Outcome, error) {
			return run.service.Exec(executionContext, module, ExecOptions{Arguments: gitArguments, DryRun: run.dryRun})
		})
		for _, result := range results {
			fmt.Fprintln(command.OutOrStdout(), RenderExecOutput(result))
		}
		return runError
	}
	return command
}

type moduleRun struct {
	command  *cobra.Command
	registry *registry.Registry
	modules  []registry.Module
	service  *Service
	remote   string
	jobs     int
	dryRun   bool
}

func (run *moduleRun) printOutcomes(results []ModuleResult[Outcome]) {
	for _, result := range results {
		fmt.Fprintln(run.command.OutOrStdout(), RenderOutcome(result))
	}
}

func (builder *CommandBuilder) prepare(command *cobra.Command, targets []string, selection *flagutils.ModuleSelectionValues) (*moduleRun, error) {
	configuration := builder.resolveConfiguration()

	moduleRegistry, registryError := builder.resolveRegistry()
	if registryError != nil {
		return nil, registryError
	}
	modules, resolveError := moduleRegistry.Resolve(targets)
	if resolveError != nil {
		return nil, resolveError
	}

	run := &moduleRun{command: command, registry: moduleRegistry, modules: modules, remote: configuration.RemoteName}
	if executionFlags, available := flagutils.ResolveExecutionFlags(command); available {
		run.dryRun = executionFlags.DryRunSet && executionFlags.DryRun
		if executionFlags.RemoteSet && len(executionFlags.Remote) > 0 {
			run.remote = executionFlags.Remote
		}
	}

	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, humanReadableLogging)
	if executorError != nil {
		return nil, executorError
	}

	directory := configuration.Directory
	run.jobs = configuration.Jobs
	if selection != nil {
		if command.Flags().Changed(flagutils.DirectoryFlagName) && len(strings.TrimSpace(selection.Directory)) > 0 {
			directory = strings.TrimSpace(selection.Directory)
		}
		if command.Flags().Changed(flagutils.JobsFlagName) {
			run.jobs = selection.Jobs
		}
	}
	service, serviceError := NewService(ServiceDependencies{
		GitExecutor: gitExecutor,
		Workspace:   NewWorkspace(builder.FileSystem, dependencies.ExpandPath(directory)),
	})
	if serviceError != nil {
		return nil, serviceError
	}
	run.service = service
	return run, nil
}

func (builder *CommandBuilder) selectionDefaults() flagutils.ModuleSelectionValues {
	configuration := DefaultCommandConfiguration()
	return flagutils.ModuleSelectionValues{Directory: configuration.Directory, Jobs: configuration.Jobs}
}

func (builder *CommandBuilder) resolveRegistry() (*registry.Registry, error) {
	if builder.RegistryProvider == nil {
		return nil, errors.New(registryMissingMessage)
	}
	return builder.RegistryProvider()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

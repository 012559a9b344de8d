package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/dependencies"
	"github.com/Ensembl/ensembl-git-tools/internal/modules"
	"github.com/Ensembl/ensembl-git-tools/internal/registry"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

const (
	rewriteUseConstant             = "rewrite-authors"
	rewriteShortConstant           = "Rewrite commit authors and committers using an author map"
	rewriteLongConstant            = "rewrite-authors reads a YAML or JSON list of {from, to} identities and runs git filter-branch with an env-filter that rewrites matching authors and committers. --preview only counts the commits that would change."
	rewriteExampleConstant         = "git-ensembl rewrite-authors --map authors.yaml --range main --preview"
	sharedUserUseConstant          = "shared-user"
	sharedUserShortConstant        = "Manage the identity used when committing from a shared account"
	setUseConstant                 = "set <\"Name <email>\"> [targets...]"
	setShortConstant               = "Print shell exports for an identity, or write it to module git config with --local"
	setExampleConstant             = "eval \"$(git-ensembl shared-user set 'Jane Doe <jane@ebi.ac.uk>')\""
	unsetUseConstant               = "unset"
	unsetShortConstant             = "Print shell commands clearing a shared identity"
	showUseConstant                = "show"
	showShortConstant              = "Show the identity git will record for new commits"
	mapFlagNameConstant            = "map"
	mapFlagUsageConstant           = "Author map file (YAML or JSON list of {from, to})"
	rangeFlagNameConstant          = "range"
	rangeFlagUsageConstant         = "Revision range to rewrite (default: all branches)"
	previewFlagNameConstant        = "preview"
	previewFlagUsageConstant       = "Count matching commits without rewriting"
	repositoryFlagNameConstant     = "repository"
	repositoryFlagShorthand        = "C"
	repositoryFlagUsageConstant    = "Repository to operate on"
	shellFlagNameConstant          = "shell"
	shellFlagUsageConstant         = "Syntax of the printed commands"
	localFlagNameConstant          = "local"
	localFlagUsageConstant         = "Write user.name and user.email into each module's git config instead of printing exports"
	targetsRequireLocalMessage     = "module targets require --local"
	registryMissingMessage         = "module registry not configured"
	plannedCommandTemplateConstant = "Would run: %s\n"
	rewriteDeclinedMessage         = "Rewrite cancelled"
	rewriteCompletedTemplate       = "Rewrote authorship of %s\n"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles rewrite-authors and shared-user.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	Prompter                     shared.ConfirmationPrompter
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	ModulesConfigurationProvider func() modules.CommandConfiguration
	RegistryProvider             func() (*registry.Registry, error)
	FileSystem                   afero.Fs
	EnvironmentLookup            EnvironmentLookup
}

// BuildCommands constructs rewrite-authors and shared-user.
func (builder *CommandBuilder) BuildCommands() []*cobra.Command {
	return []*cobra.Command{builder.BuildRewriteAuthors(), builder.BuildSharedUser()}
}

// BuildRewriteAuthors constructs the rewrite-authors command.
func (builder *CommandBuilder) BuildRewriteAuthors() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:     rewriteUseConstant,
		Short:   rewriteShortConstant,
		Long:    rewriteLongConstant,
		Example: rewriteExampleConstant,
		Args:    cobra.NoArgs,
	}
	command.Flags().String(mapFlagNameConstant, defaults.AuthorMap, mapFlagUsageConstant)
	revisionRange := command.Flags().String(rangeFlagNameConstant, "", rangeFlagUsageConstant)
	preview := command.Flags().Bool(previewFlagNameConstant, false, previewFlagUsageConstant)
	command.Flags().StringP(repositoryFlagNameConstant, repositoryFlagShorthand, defaults.RepositoryPath, repositoryFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		configuration := builder.resolveConfiguration()
		mapPath := dependencies.ExpandPath(stringFlag(command, mapFlagNameConstant, configuration.AuthorMap))
		repositoryPath := dependencies.ExpandPath(stringFlag(command, repositoryFlagNameConstant, configuration.RepositoryPath))

		mappings, mapError := LoadAuthorMap(builder.FileSystem, mapPath)
		if mapError != nil {
			return mapError
		}
		service, serviceError := builder.newService(command)
		if serviceError != nil {
			return serviceError
		}

		output := command.OutOrStdout()
		if *preview {
			summary, previewError := service.Preview(command.Context(), repositoryPath, mappings, *revisionRange)
			if previewError != nil {
				return previewError
			}
			fmt.Fprintln(output, RenderPreview(summary))
			return nil
		}

		execution := resolveExecution(command)
		result, rewriteError := service.Rewrite(command.Context(), RewriteOptions{
			RepositoryPath:     repositoryPath,
			Mappings:           mappings,
			Range:              *revisionRange,
			DryRun:             execution.dryRun,
			ConfirmationPolicy: shared.ConfirmationPolicyFromBool(execution.assumeYes),
		})
		if rewriteError != nil {
			return rewriteError
		}
		switch {
		case execution.dryRun:
			fmt.Fprintf(output, plannedCommandTemplateConstant, result.Command)
		case result.Declined:
			fmt.Fprintln(output, rewriteDeclinedMessage)
		default:
			fmt.Fprintf(output, rewriteCompletedTemplate, describeRange(*revisionRange))
		}
		return nil
	}
	return command
}

// BuildSharedUser constructs shared-user with its set, unset and show subcommands.
func (builder *CommandBuilder) BuildSharedUser() *cobra.Command {
	command := &cobra.Command{
		Use:   sharedUserUseConstant,
		Short: sharedUserShortConstant,
	}
	command.AddCommand(builder.buildSet(), builder.buildUnset(), builder.buildShow())
	return command
}

func (builder *CommandBuilder) buildSet() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	modulesDefaults := modules.DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:     setUseConstant,
		Short:   setShortConstant,
		Example: setExampleConstant,
		Args:    cobra.MinimumNArgs(1),
	}
	command.Flags().String(shellFlagNameConstant, defaults.Shell, flagutils.FormatChoiceUsage(defaults.Shell, ShellChoices, shellFlagUsageConstant))
	local := command.Flags().Bool(localFlagNameConstant, false, localFlagUsageConstant)
	selection := flagutils.BindModuleSelectionFlags(command, flagutils.ModuleSelectionValues{Directory: modulesDefaults.Directory, Jobs: modulesDefaults.Jobs})

	command.RunE = func(command *cobra.Command, arguments []string) error {
		sharedIdentity, parseError := Parse(arguments[0])
		if parseError != nil {
			return parseError
		}
		targets := arguments[1:]

		if !*local {
			if len(targets) > 0 {
				return errors.New(targetsRequireLocalMessage)
			}
			shell, shellError := builder.resolveShell(command)
			if shellError != nil {
				return shellError
			}
			script, scriptError := ExportScript(sharedIdentity, shell)
			if scriptError != nil {
				return scriptError
			}
			fmt.Fprint(command.OutOrStdout(), script)
			return nil
		}
		return builder.configureModules(command, targets, selection, sharedIdentity)
	}
	return command
}

func (builder *CommandBuilder) buildUnset() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:   unsetUseConstant,
		Short: unsetShortConstant,
		Args:  cobra.NoArgs,
	}
	command.Flags().String(shellFlagNameConstant, defaults.Shell, flagutils.FormatChoiceUsage(defaults.Shell, ShellChoices, shellFlagUsageConstant))

	command.RunE = func(command *cobra.Command, arguments []string) error {
		shell, shellError := builder.resolveShell(command)
		if shellError != nil {
			return shellError
		}
		script, scriptError := UnsetScript(shell)
		if scriptError != nil {
			return scriptError
		}
		fmt.Fprint(command.OutOrStdout(), script)
		return nil
	}
	return command
}

func (builder *CommandBuilder) buildShow() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:   showUseConstant,
		Short: showShortConstant,
		Args:  cobra.NoArgs,
	}
	command.Flags().StringP(repositoryFlagNameConstant, repositoryFlagShorthand, defaults.RepositoryPath, repositoryFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		configuration := builder.resolveConfiguration()
		service, serviceError := builder.newService(command)
		if serviceError != nil {
			return serviceError
		}
		lookup := builder.EnvironmentLookup
		if lookup == nil {
			lookup = os.LookupEnv
		}
		repositoryPath := dependencies.ExpandPath(stringFlag(command, repositoryFlagNameConstant, configuration.RepositoryPath))
		effective, effectiveError := service.Effective(command.Context(), repositoryPath, lookup)
		if effectiveError != nil {
			return effectiveError
		}
		fmt.Fprintln(command.OutOrStdout(), RenderEffective(effective))
		return nil
	}
	return command
}

func (builder *CommandBuilder) configureModules(command *cobra.Command, targets []string, selection *flagutils.ModuleSelectionValues, sharedIdentity Identity) error {
	if builder.RegistryProvider == nil {
		return errors.New(registryMissingMessage)
	}
	moduleRegistry, registryError := builder.RegistryProvider()
	if registryError != nil {
		return registryError
	}
	selected, resolveError := moduleRegistry.Resolve(targets)
	if resolveError != nil {
		return resolveError
	}

	modulesConfiguration := modules.DefaultCommandConfiguration()
	if builder.ModulesConfigurationProvider != nil {
		modulesConfiguration = builder.ModulesConfigurationProvider().Sanitize()
	}
	directory := modulesConfiguration.Directory
	jobs := modulesConfiguration.Jobs
	if command.Flags().Changed(flagutils.DirectoryFlagName) && len(strings.TrimSpace(selection.Directory)) > 0 {
		directory = strings.TrimSpace(selection.Directory)
	}
	if command.Flags().Changed(flagutils.JobsFlagName) {
		jobs = selection.Jobs
	}

	gitExecutor, executorError := builder.resolveGitExecutor()
	if executorError != nil {
		return executorError
	}
	service, serviceError := modules.NewService(modules.ServiceDependencies{
		GitExecutor: gitExecutor,
		Workspace:   modules.NewWorkspace(builder.FileSystem, dependencies.ExpandPath(directory)),
	})
	if serviceError != nil {
		return serviceError
	}

	options := modules.ConfigureOptions{Entries: ConfigEntries(sharedIdentity), DryRun: resolveExecution(command).dryRun}
	results, runError := modules.ForEachModule(command.Context(), selected, jobs, func(executionContext context.Context, module registry.Module) (modules.Outcome, error) {
		return service.Configure(executionContext, module, options)
	})
	for _, result := range results {
		fmt.Fprintln(command.OutOrStdout(), modules.RenderOutcome(result))
	}
	return runError
}

func (builder *CommandBuilder) resolveShell(command *cobra.Command) (Shell, error) {
	configuration := builder.resolveConfiguration()
	value := stringFlag(command, shellFlagNameConstant, configuration.Shell)
	normalized, choiceError := flagutils.NormalizeChoice(shellFlagNameConstant, value, configuration.Shell, ShellChoices)
	if choiceError != nil {
		return "", choiceError
	}
	return Shell(normalized), nil
}

type executionSettings struct {
	dryRun    bool
	assumeYes bool
}

func resolveExecution(command *cobra.Command) executionSettings {
	settings := executionSettings{}
	if executionFlags, available := flagutils.ResolveExecutionFlags(command); available {
		settings.dryRun = executionFlags.DryRunSet && executionFlags.DryRun
		settings.assumeYes = executionFlags.AssumeYesSet && executionFlags.AssumeYes
	}
	return settings
}

func (builder *CommandBuilder) resolveGitExecutor() (shared.GitExecutor, error) {
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	return dependencies.ResolveGitExecutor(builder.GitExecutor, builder.resolveLogger(), humanReadableLogging)
}

func (builder *CommandBuilder) newService(command *cobra.Command) (*Service, error) {
	gitExecutor, executorError := builder.resolveGitExecutor()
	if executorError != nil {
		return nil, executorError
	}
	return NewService(ServiceDependencies{
		GitExecutor: gitExecutor,
		Prompter:    dependencies.ResolvePrompter(builder.Prompter, command.InOrStdin(), command.OutOrStdout()),
	})
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

func stringFlag(command *cobra.Command, flagName string, configured string) string {
	if command.Flags().Changed(flagName) {
		value, _ := command.Flags().GetString(flagName)
		return strings.TrimSpace(value)
	}
	return configured
}

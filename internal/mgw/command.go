package mgw

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/dependencies"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

const (
	mgwUseConstant                = "mgw [feature]"
	mgwShortConstant              = "Integrate a feature branch into the target branch (Minimal Git Workflow)"
	mgwLongConstant               = "mgw fast-forwards the target branch to the feature when possible. Otherwise it rebases an unpublished feature onto the target, or merges a published feature with --no-ff, and pushes the target. Conflicts abort the rebase or merge and exit with status 2."
	mgwExampleConstant            = "git-ensembl mgw feature/vep-cache --target main --strategy auto"
	mpushUseConstant              = "mpush"
	mpushShortConstant            = "Push the current branch, reconciling it with the remote first"
	mpushLongConstant             = "mpush publishes a new branch with --set-upstream, fast-forwards a branch that is only behind, and rebases (or merges) a diverged branch onto its remote counterpart before pushing."
	targetFlagNameConstant        = "target"
	targetFlagUsageConstant       = "Branch the feature is integrated into"
	strategyFlagNameConstant      = "strategy"
	strategyFlagUsageConstant     = "How to integrate a feature that cannot be fast-forwarded"
	pushStrategyUsageConstant     = "How to reconcile a branch that diverged from its remote"
	noPushFlagNameConstant        = "no-push"
	noPushFlagUsageConstant       = "Integrate locally without pushing the target branch"
	repositoryFlagNameConstant    = "repository"
	repositoryFlagShorthand       = "C"
	repositoryFlagUsageConstant   = "Repository to operate on"
	planHeaderTemplateConstant    = "Plan for %s:\n"
	planLineTemplateConstant      = "  %s\n"
	integratedTemplateConstant    = "Integrated %s into %s\n"
	pushSkippedTemplateConstant   = "Push of %s skipped\n"
	pushedTemplateConstant        = "Pushed %s\n"
	nothingToPushTemplateConstant = "%s fast-forwarded to %s/%s; nothing to push\n"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the mgw and mpush commands.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	GitExecutor                  shared.GitExecutor
	Prompter                     shared.ConfirmationPrompter
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
}

// BuildMGW constructs the mgw command.
func (builder *CommandBuilder) BuildMGW() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:     mgwUseConstant,
		Short:   mgwShortConstant,
		Long:    mgwLongConstant,
		Example: mgwExampleConstant,
		Args:    cobra.MaximumNArgs(1),
	}
	flagutils.EnsureRemoteFlag(command, defaults.RemoteName, "")
	command.Flags().String(targetFlagNameConstant, defaults.TargetBranch, targetFlagUsageConstant)
	command.Flags().String(strategyFlagNameConstant, defaults.Strategy, flagutils.FormatChoiceUsage(defaults.Strategy, StrategyChoices, strategyFlagUsageConstant))
	command.Flags().Bool(noPushFlagNameConstant, false, noPushFlagUsageConstant)
	command.Flags().StringP(repositoryFlagNameConstant, repositoryFlagShorthand, defaults.RepositoryPath, repositoryFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		configuration := builder.resolveConfiguration()
		target := stringFlag(command, targetFlagNameConstant, configuration.TargetBranch)
		strategyValue := stringFlag(command, strategyFlagNameConstant, configuration.Strategy)
		strategy, strategyError := flagutils.NormalizeChoice(strategyFlagNameConstant, strategyValue, configuration.Strategy, StrategyChoices)
		if strategyError != nil {
			return strategyError
		}
		push := configuration.Push
		if noPush, _ := command.Flags().GetBool(noPushFlagNameConstant); noPush {
			push = false
		}

		feature := ""
		if len(arguments) > 0 {
			feature = strings.TrimSpace(arguments[0])
		}

		execution := builder.resolveExecution(command, configuration)
		service, serviceError := builder.newService(command)
		if serviceError != nil {
			return serviceError
		}

		result, integrateError := service.Integrate(command.Context(), IntegrateOptions{
			RepositoryPath:     dependencies.ExpandPath(stringFlag(command, repositoryFlagNameConstant, configuration.RepositoryPath)),
			Feature:            feature,
			Target:             target,
			Remote:             execution.remote,
			Strategy:           Strategy(strategy),
			Push:               push,
			DryRun:             execution.dryRun,
			ConfirmationPolicy: shared.ConfirmationPolicyFromBool(execution.assumeYes),
		})
		if integrateError != nil {
			return integrateError
		}

		reporter := shared.NewWriterReporter(command.OutOrStdout())
		if execution.dryRun {
			printPlan(reporter, result)
			return nil
		}
		reporter.Printf(integratedTemplateConstant, result.Branch, target)
		if push && result.PushSkipped {
			reporter.Printf(pushSkippedTemplateConstant, target)
		} else if push {
			reporter.Printf(pushedTemplateConstant, target)
		}
		return nil
	}
	return command
}

// BuildMPush constructs the mpush command.
func (builder *CommandBuilder) BuildMPush() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:   mpushUseConstant,
		Short: mpushShortConstant,
		Long:  mpushLongConstant,
		Args:  cobra.NoArgs,
	}
	flagutils.EnsureRemoteFlag(command, defaults.RemoteName, "")
	command.Flags().String(strategyFlagNameConstant, defaults.PushStrategy, flagutils.FormatChoiceUsage(defaults.PushStrategy, PushStrategyChoices, pushStrategyUsageConstant))
	command.Flags().StringP(repositoryFlagNameConstant, repositoryFlagShorthand, defaults.RepositoryPath, repositoryFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		configuration := builder.resolveConfiguration()
		strategyValue := stringFlag(command, strategyFlagNameConstant, configuration.PushStrategy)
		strategy, strategyError := flagutils.NormalizeChoice(strategyFlagNameConstant, strategyValue, configuration.PushStrategy, PushStrategyChoices)
		if strategyError != nil {
			return strategyError
		}

		execution := builder.resolveExecution(command, configuration)
		service, serviceError := builder.newService(command)
		if serviceError != nil {
			return serviceError
		}

		result, pushError := service.Push(command.Context(), PushOptions{
			RepositoryPath: dependencies.ExpandPath(stringFlag(command, repositoryFlagNameConstant, configuration.RepositoryPath)),
			Remote:         execution.remote,
			Strategy:       Strategy(strategy),
			DryRun:         execution.dryRun,
		})
		if pushError != nil {
			return pushError
		}

		reporter := shared.NewWriterReporter(command.OutOrStdout())
		if execution.dryRun {
			printPlan(reporter, result)
			return nil
		}
		if len(result.Plan.Steps) == 1 && result.Plan.Steps[0].Kind == StepFastForwardTarget {
			reporter.Printf(nothingToPushTemplateConstant, result.Branch, execution.remote, result.Branch)
			return nil
		}
		reporter.Printf(pushedTemplateConstant, result.Branch)
		return nil
	}
	return command
}

type executionSettings struct {
	remote    string
	dryRun    bool
	assumeYes bool
}

func (builder *CommandBuilder) resolveExecution(command *cobra.Command, configuration CommandConfiguration) executionSettings {
	settings := executionSettings{remote: configuration.RemoteName}
	if executionFlags, available := flagutils.ResolveExecutionFlags(command); available {
		settings.dryRun = executionFlags.DryRunSet && executionFlags.DryRun
		settings.assumeYes = executionFlags.AssumeYesSet && executionFlags.AssumeYes
		if executionFlags.RemoteSet && len(executionFlags.Remote) > 0 {
			settings.remote = executionFlags.Remote
		}
	}
	return settings
}

func (builder *CommandBuilder) newService(command *cobra.Command) (*Service, error) {
	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, humanReadableLogging)
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

// stringFlag returns the flag value when set on the command line and the configured value otherwise.
func stringFlag(command *cobra.Command, flagName string, configured string) string {
	if command.Flags().Changed(flagName) {
		value, _ := command.Flags().GetString(flagName)
		return strings.TrimSpace(value)
	}
	return configured
}

func printPlan(reporter shared.Reporter, result Result) {
	reporter.Printf(planHeaderTemplateConstant, result.Branch)
	for _, line := range result.Commands {
		reporter.Printf(planLineTemplateConstant, line)
	}
}

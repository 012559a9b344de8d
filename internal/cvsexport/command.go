package cvsexport

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/dependencies"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

const (
	exportUseConstant           = "cvs-export <range>"
	exportShortConstant         = "Replay git commits into a CVS checkout"
	exportLongConstant          = "cvs-export updates the CVS checkout, then applies every non-merge commit of the range, oldest first, with git cvsexportcommit. The export stops at the first commit that does not apply. --verify compares the git worktree with the CVS checkout afterwards."
	exportExampleConstant       = "git-ensembl cvs-export release/109..release/110 --cvs-dir ~/cvs/ensembl --commit --verify"
	cvsDirFlagNameConstant      = "cvs-dir"
	cvsDirFlagUsageConstant     = "CVS checkout receiving the commits"
	commitFlagNameConstant      = "commit"
	commitFlagUsageConstant     = "Commit each exported change to CVS"
	verifyFlagNameConstant      = "verify"
	verifyFlagUsageConstant     = "Compare the git worktree with the CVS checkout after exporting"
	repositoryFlagNameConstant  = "repository"
	repositoryFlagShorthand     = "C"
	repositoryFlagUsageConstant = "Git repository to export from"
	plannedLineTemplateConstant = "%s\n"
	exportedTemplateConstant    = "exported %s\n"
	committedTemplateConstant   = "committed %s\n"
	noCommitsMessageConstant    = "No commits to export"
	treesMatchTemplateConstant  = "CVS checkout %s matches %s\n"
	abbreviatedCommitLength     = 12
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the cvs-export command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	Executor                     shared.ShellExecutor
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	FileSystem                   afero.Fs
}

// Build constructs the cvs-export command.
func (builder *CommandBuilder) Build() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:     exportUseConstant,
		Short:   exportShortConstant,
		Long:    exportLongConstant,
		Example: exportExampleConstant,
		Args:    cobra.ExactArgs(1),
	}
	command.Flags().String(cvsDirFlagNameConstant, defaults.CVSDirectory, cvsDirFlagUsageConstant)
	commitToCVS := command.Flags().Bool(commitFlagNameConstant, false, commitFlagUsageConstant)
	command.Flags().Bool(verifyFlagNameConstant, defaults.Verify, verifyFlagUsageConstant)
	command.Flags().StringP(repositoryFlagNameConstant, repositoryFlagShorthand, defaults.RepositoryPath, repositoryFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		configuration := builder.resolveConfiguration()
		cvsDirectory := dependencies.ExpandPath(stringFlag(command, cvsDirFlagNameConstant, configuration.CVSDirectory))
		repositoryPath := dependencies.ExpandPath(stringFlag(command, repositoryFlagNameConstant, configuration.RepositoryPath))
		verify := configuration.Verify
		if command.Flags().Changed(verifyFlagNameConstant) {
			verify, _ = command.Flags().GetBool(verifyFlagNameConstant)
		}
		dryRun := false
		if executionFlags, available := flagutils.ResolveExecutionFlags(command); available {
			dryRun = executionFlags.DryRunSet && executionFlags.DryRun
		}

		service, serviceError := builder.newService()
		if serviceError != nil {
			return serviceError
		}

		result, exportError := service.Export(command.Context(), ExportOptions{
			RepositoryPath: repositoryPath,
			Range:          arguments[0],
			CVSDirectory:   cvsDirectory,
			Commit:         *commitToCVS,
			DryRun:         dryRun,
		})
		output := command.OutOrStdout()
		outcomeTemplate := exportedTemplateConstant
		if *commitToCVS {
			outcomeTemplate = committedTemplateConstant
		}
		for _, commit := range result.Exported {
			fmt.Fprintf(output, outcomeTemplate, abbreviate(commit))
		}
		if exportError != nil {
			return exportError
		}
		if dryRun {
			for _, line := range result.Planned {
				fmt.Fprintf(output, plannedLineTemplateConstant, line)
			}
			return nil
		}
		if len(result.Commits) == 0 {
			fmt.Fprintln(output, noCommitsMessageConstant)
		}
		if !verify {
			return nil
		}

		differences, verifyError := service.Verify(repositoryPath, cvsDirectory)
		if verifyError != nil {
			return verifyError
		}
		if len(differences) > 0 {
			fmt.Fprint(output, RenderDifferences(differences))
			return TreeMismatchError{Differences: differences}
		}
		fmt.Fprintf(output, treesMatchTemplateConstant, cvsDirectory, repositoryPath)
		return nil
	}
	return command
}

func (builder *CommandBuilder) newService() (*Service, error) {
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	executor, executorError := dependencies.ResolveShellExecutor(builder.Executor, builder.resolveLogger(), humanReadableLogging)
	if executorError != nil {
		return nil, executorError
	}
	return NewService(ServiceDependencies{Executor: executor, FileSystem: builder.FileSystem})
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

func abbreviate(commit string) string {
	if len(commit) > abbreviatedCommitLength {
		return commit[:abbreviatedCommitLength]
	}
	return commit
}

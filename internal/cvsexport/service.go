package cvsexport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	executorMissingMessageConstant     = "shell executor not configured"
	rangeRequiredMessageConstant       = "revision range must be provided"
	cvsDirectoryRequiredMessage        = "--cvs-dir must name a CVS checkout"
	cvsDirectoryMissingTemplate        = "%s is not a CVS checkout (no CVS directory)"
	commitExportTemplateConstant       = "export of commit %s failed: %v"
	cvsUpdateFailureTemplateConstant   = "failed to update CVS checkout %s: %w"
	gitCVSExportCommitConstant         = "cvsexportcommit"
	gitWorkingDirectoryFlagConstant    = "-w"
	gitPatchFlagConstant               = "-p"
	gitUpdateFlagConstant              = "-u"
	gitCommitFlagConstant              = "-c"
	gitReverseFlagConstant             = "--reverse"
	gitNoMergesFlagConstant            = "--no-merges"
	cvsQuietFlagConstant               = "-q"
	cvsUpdateSubcommandConstant        = "update"
	cvsCreateDirectoriesFlagConstant   = "-d"
	cvsAdministrativeDirectoryConstant = "CVS"
)

var (
	// ErrExecutorNotConfigured indicates the service was constructed without a shell executor.
	ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrRangeRequired indicates an export without a revision range.
	ErrRangeRequired = errors.New(rangeRequiredMessageConstant)
	// ErrCVSDirectoryRequired indicates an export without a CVS checkout.
	ErrCVSDirectoryRequired = errors.New(cvsDirectoryRequiredMessage)
)

// CommitExportError names the commit at which an export stopped.
type CommitExportError struct {
	Commit string
	Err    error
}

// Error describes the failed commit.
func (exportError CommitExportError) Error() string {
	return fmt.Sprintf(commitExportTemplateConstant, exportError.Commit, exportError.Err)
}

// Unwrap exposes the underlying failure.
func (exportError CommitExportError) Unwrap() error {
	return exportError.Err
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	Executor   shared.ShellExecutor
	FileSystem afero.Fs
}

// Service exports git history into CVS.
type Service struct {
	executor     shared.ShellExecutor
	repositories *gitrepo.RepositoryManager
	fileSystem   afero.Fs
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	repositories, managerError := gitrepo.NewRepositoryManager(dependencies.Executor)
	if managerError != nil {
		return nil, managerError
	}
	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return &Service{executor: dependencies.Executor, repositories: repositories, fileSystem: fileSystem}, nil
}

// ExportOptions configure Export.
type ExportOptions struct {
	RepositoryPath string
	Range          string
	CVSDirectory   string
	Commit         bool
	DryRun         bool
}

// ExportResult lists the commits selected and exported.
type ExportResult struct {
	Commits  []string
	Exported []string
	Planned  []string
}

// Export updates the CVS checkout and applies every non-merge commit of the range, oldest first.
// The first failing commit stops the export.
func (service *Service) Export(executionContext context.Context, options ExportOptions) (ExportResult, error) {
	revisionRange := strings.TrimSpace(options.Range)
	if len(revisionRange) == 0 {
		return ExportResult{}, ErrRangeRequired
	}
	cvsDirectory := strings.TrimSpace(options.CVSDirectory)
	if len(cvsDirectory) == 0 {
		return ExportResult{}, ErrCVSDirectoryRequired
	}
	if isCheckout, statError := afero.DirExists(service.fileSystem, filepath.Join(cvsDirectory, cvsAdministrativeDirectoryConstant)); statError != nil || !isCheckout {
		return ExportResult{}, fmt.Errorf(cvsDirectoryMissingTemplate, cvsDirectory)
	}

	commits, listError := service.repositories.RevisionList(executionContext, options.RepositoryPath, gitReverseFlagConstant, gitNoMergesFlagConstant, revisionRange)
	if listError != nil {
		return ExportResult{}, listError
	}
	result := ExportResult{Commits: commits}

	updateDetails := execshell.CommandDetails{
		Arguments:        []string{cvsQuietFlagConstant, cvsUpdateSubcommandConstant, cvsCreateDirectoriesFlagConstant},
		WorkingDirectory: cvsDirectory,
	}
	if options.DryRun {
		result.Planned = append(result.Planned, execshell.ShellCommand{Name: execshell.CommandCVS, Details: updateDetails}.String())
		for _, commit := range commits {
			details := exportCommand(options.RepositoryPath, cvsDirectory, commit, options.Commit)
			result.Planned = append(result.Planned, execshell.ShellCommand{Name: execshell.CommandGit, Details: details}.String())
		}
		return result, nil
	}

	if _, updateError := service.executor.ExecuteCVS(executionContext, updateDetails); updateError != nil {
		return result, fmt.Errorf(cvsUpdateFailureTemplateConstant, cvsDirectory, updateError)
	}
	for _, commit := range commits {
		if _, exportError := service.executor.ExecuteGit(executionContext, exportCommand(options.RepositoryPath, cvsDirectory, commit, options.Commit)); exportError != nil {
			return result, CommitExportError{Commit: commit, Err: exportError}
		}
		result.Exported = append(result.Exported, commit)
	}
	return result, nil
}

func exportCommand(repositoryPath string, cvsDirectory string, commit string, commitToCVS bool) execshell.CommandDetails {
	arguments := []string{gitCVSExportCommitConstant, gitWorkingDirectoryFlagConstant, cvsDirectory, gitPatchFlagConstant, gitUpdateFlagConstant}
	if commitToCVS {
		arguments = append(arguments, gitCommitFlagConstant)
	}
	arguments = append(arguments, commit)
	return execshell.CommandDetails{Arguments: arguments, WorkingDirectory: repositoryPath}
}

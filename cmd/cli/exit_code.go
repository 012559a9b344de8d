package cli

import (
	"errors"

	"github.com/Ensembl/ensembl-git-tools/internal/mgw"
)

const (
	exitCodeSuccessConstant  = 0
	exitCodeFailureConstant  = 1
	exitCodeConflictConstant = 2
)

// ExitCode maps an execution error to the process exit status: 0 on success,
// 2 when a merge or rebase stopped on conflicts and 1 for any other failure.
func ExitCode(executionError error) int {
	if executionError == nil {
		return exitCodeSuccessConstant
	}
	var conflictError mgw.ConflictError
	if errors.As(executionError, &conflictError) {
		return exitCodeConflictConstant
	}
	return exitCodeFailureConstant
}

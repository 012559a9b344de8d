package modules_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
)

type scriptedResponse struct {
	output       string
	exitCode     int
	failedStdout string
}

// scriptedGitExecutor answers git invocations by "<working directory>|<arguments>" key.
type scriptedGitExecutor struct {
	mutex     sync.Mutex
	responses map[string]scriptedResponse
	recorded  []execshell.CommandDetails
}

func newScriptedGitExecutor() *scriptedGitExecutor {
	return &scriptedGitExecutor{responses: make(map[string]scriptedResponse)}
}

func (executor *scriptedGitExecutor) respond(workingDirectory string, arguments string, response scriptedResponse) {
	executor.responses[workingDirectory+"|"+arguments] = response
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.recorded = append(executor.recorded, details)

	response := executor.responses[details.WorkingDirectory+"|"+strings.Join(details.Arguments, " ")]
	if response.exitCode != 0 {
		command := execshell.ShellCommand{Name: execshell.CommandGit, Details: details}
		result := execshell.ExecutionResult{StandardOutput: response.failedStdout, StandardError: response.output, ExitCode: response.exitCode}
		return result, execshell.CommandFailedError{Command: command, Result: result}
	}
	return execshell.ExecutionResult{StandardOutput: response.output}, nil
}

func (executor *scriptedGitExecutor) commandsIn(workingDirectory string) []string {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	var commands []string
	for _, details := range executor.recorded {
		if details.WorkingDirectory == workingDirectory {
			commands = append(commands, strings.Join(details.Arguments, " "))
		}
	}
	return commands
}

func createClone(testInstance *testing.T, fileSystem afero.Fs, modulePath string) {
	testInstance.Helper()
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(modulePath, ".git"), 0o755))
}

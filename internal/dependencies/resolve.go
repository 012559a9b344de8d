// Package dependencies supplies default collaborators for command builders that were not given explicit ones.
package dependencies

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
	"github.com/Ensembl/ensembl-git-tools/internal/prompt"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
	"github.com/Ensembl/ensembl-git-tools/internal/ui"
	pathutils "github.com/Ensembl/ensembl-git-tools/internal/utils/path"
)

// ResolveShellExecutor returns the provided executor or constructs an os/exec backed default.
// When humanReadableLogging is enabled, command lifecycle events are echoed through the console logger.
func ResolveShellExecutor(existing shared.ShellExecutor, logger *zap.Logger, humanReadableLogging bool) (shared.ShellExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	var observers []execshell.CommandEventObserver
	if humanReadableLogging {
		observers = append(observers, ui.NewConsoleCommandEventLogger(logger))
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), observers...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveGitExecutor returns the provided git executor or constructs a shell-backed default.
func ResolveGitExecutor(existing shared.GitExecutor, logger *zap.Logger, humanReadableLogging bool) (shared.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}
	return ResolveShellExecutor(nil, logger, humanReadableLogging)
}

// ResolvePrompter returns the provided prompter or one reading from input and writing to output.
func ResolvePrompter(existing shared.ConfirmationPrompter, input io.Reader, output io.Writer) shared.ConfirmationPrompter {
	if existing != nil {
		return existing
	}
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}
	return prompt.NewTerminalPrompter(input, output)
}

// ExpandPath resolves a leading ~ in a user supplied path.
func ExpandPath(candidatePath string) string {
	return pathutils.NewHomeExpander().Expand(candidatePath)
}

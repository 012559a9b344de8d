// Package shared declares the collaborator interfaces and small policy types used across git-ensembl services.
package shared

import (
	"context"
	"time"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
)

const (
	// DefaultRemoteName identifies the remote used when none is configured.
	DefaultRemoteName = "origin"
	// GitTerminalPromptEnvironmentName disables interactive credential prompts in git.
	GitTerminalPromptEnvironmentName = "GIT_TERMINAL_PROMPT"
	// GitTerminalPromptDisabledValue is the value assigned to GitTerminalPromptEnvironmentName.
	GitTerminalPromptDisabledValue = "0"
)

// GitExecutor exposes the subset of shell execution used by git services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CVSExecutor runs cvs commands.
type CVSExecutor interface {
	ExecuteCVS(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ShellExecutor runs both git and cvs commands.
type ShellExecutor interface {
	GitExecutor
	CVSExecutor
}

// ConfirmationPrompter collects user confirmations prior to mutating actions.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NonInteractiveEnvironment returns the environment applied to git network operations.
func NonInteractiveEnvironment() map[string]string {
	return map[string]string{GitTerminalPromptEnvironmentName: GitTerminalPromptDisabledValue}
}

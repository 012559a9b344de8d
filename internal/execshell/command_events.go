package execshell

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports failures that prevented the command from producing a result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type observerGroup []CommandEventObserver

func (group observerGroup) started(command ShellCommand) {
	for _, observer := range group {
		observer.CommandStarted(command)
	}
}

func (group observerGroup) completed(command ShellCommand, result ExecutionResult) {
	for _, observer := range group {
		observer.CommandCompleted(command, result)
	}
}

func (group observerGroup) failed(command ShellCommand, failure error) {
	for _, observer := range group {
		observer.CommandExecutionFailed(command, failure)
	}
}

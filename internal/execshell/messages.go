package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant             = "Running %s"
	genericSuccessTemplateConstant           = "Completed %s"
	genericFailureTemplateConstant           = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant  = "%s failed: %s"
	activityFailureTemplateConstant          = "Failed to %s (exit code %d%s)"
	activityExecutionFailureTemplateConstant = "Unable to %s: %s"
	workingDirectorySuffixTemplateConstant   = " (in %s)"
	standardErrorSuffixTemplateConstant      = ": %s"
	referenceJoinSeparatorConstant           = ", "
	unknownFailureMessageConstant            = "unknown error"
	defaultWorkingDirectoryLabelConstant     = "current directory"
	fallbackUnknownValueLabelConstant        = "unknown"
	flagPrefixConstant                       = "-"
)

const (
	gitCloneSubcommandNameConstant            = "clone"
	gitFetchSubcommandNameConstant            = "fetch"
	gitPullSubcommandNameConstant             = "pull"
	gitPushSubcommandNameConstant             = "push"
	gitCheckoutSubcommandNameConstant         = "checkout"
	gitMergeSubcommandNameConstant            = "merge"
	gitRebaseSubcommandNameConstant           = "rebase"
	gitStatusSubcommandNameConstant           = "status"
	gitConfigSubcommandNameConstant           = "config"
	gitRevParseSubcommandNameConstant         = "rev-parse"
	gitRevListSubcommandNameConstant          = "rev-list"
	gitShowRefSubcommandNameConstant          = "show-ref"
	gitMergeBaseSubcommandNameConstant        = "merge-base"
	gitLogSubcommandNameConstant              = "log"
	gitFilterBranchSubcommandNameConstant     = "filter-branch"
	gitCVSExportCommitSubcommandNameConstant  = "cvsexportcommit"
	gitAbortFlagConstant                      = "--abort"
	gitCreateBranchFlagConstant               = "-b"
	gitTrackFlagConstant                      = "--track"
	gitFastForwardOnlyFlagConstant            = "--ff-only"
	gitNoFastForwardFlagConstant              = "--no-ff"
	gitRebaseFlagConstant                     = "--rebase"
	gitAbbrevRefFlagConstant                  = "--abbrev-ref"
	gitUpstreamReferenceConstant              = "@{u}"
	gitIsAncestorFlagConstant                 = "--is-ancestor"
	gitLeftRightFlagConstant                  = "--left-right"
	gitUnsetFlagConstant                      = "--unset"
	gitGetFlagConstant                        = "--get"
	gitFilterBranchSeparatorConstant          = "--"
	gitCVSWorkingDirectoryFlagConstant        = "-w"
	gitFetchAllRemotesLabelConstant           = "all remotes"
	gitFilterBranchAllReferencesLabelConstant = "all references"
)

const (
	cloneActivityConstant              = "%s %s into %s"
	fetchActivityConstant              = "%s from %s in %s"
	pullActivityConstant               = "%s %s from %s in %s"
	pullRebaseActivityConstant         = "%s %s from %s with rebase in %s"
	pushActivityConstant               = "%s %s to %s from %s"
	checkoutActivityConstant           = "%s %s to branch %s"
	checkoutCreateActivityConstant     = "%s branch %s in %s"
	checkoutTrackActivityConstant      = "%s branch %s tracking %s in %s"
	mergeActivityConstant              = "%s %s into the current branch in %s"
	mergeFastForwardActivityConstant   = "%s the current branch to %s in %s"
	mergeNoFastForwardActivityConstant = "%s %s with a merge commit in %s"
	mergeAbortActivityConstant         = "%s the interrupted merge in %s"
	rebaseActivityConstant             = "%s the current branch onto %s in %s"
	rebaseAbortActivityConstant        = "%s the interrupted rebase in %s"
	statusActivityConstant             = "%s working tree status in %s"
	configReadActivityConstant         = "%s %s in %s"
	configWriteActivityConstant        = "%s %s to %q in %s"
	configUnsetActivityConstant        = "%s %s in %s"
	currentBranchActivityConstant      = "%s the current branch in %s"
	upstreamActivityConstant           = "%s the upstream branch in %s"
	revisionActivityConstant           = "%s %s in %s"
	revisionCountActivityConstant      = "%s commits between %s in %s"
	revisionListActivityConstant       = "%s commits in %s in %s"
	showRefActivityConstant            = "%s %s in %s"
	ancestorActivityConstant           = "%s whether %s contains %s in %s"
	logActivityConstant                = "%s commit history for %s in %s"
	filterBranchActivityConstant       = "%s authorship of %s in %s"
	cvsExportActivityConstant          = "%s commit %s into the CVS checkout %s"
	cloneVerbProgressiveConstant       = "Cloning"
	cloneVerbCompletedConstant         = "Cloned"
	cloneVerbInfinitiveConstant        = "clone"
	fetchVerbProgressiveConstant       = "Fetching"
	fetchVerbCompletedConstant         = "Fetched"
	fetchVerbInfinitiveConstant        = "fetch"
	pullVerbProgressiveConstant        = "Pulling"
	pullVerbCompletedConstant          = "Pulled"
	pullVerbInfinitiveConstant         = "pull"
	pushVerbProgressiveConstant        = "Pushing"
	pushVerbCompletedConstant          = "Pushed"
	pushVerbInfinitiveConstant         = "push"
	switchVerbProgressiveConstant      = "Switching"
	switchVerbCompletedConstant        = "Switched"
	switchVerbInfinitiveConstant       = "switch"
	createVerbProgressiveConstant      = "Creating"
	createVerbCompletedConstant        = "Created"
	createVerbInfinitiveConstant       = "create"
	mergeVerbProgressiveConstant       = "Merging"
	mergeVerbCompletedConstant         = "Merged"
	mergeVerbInfinitiveConstant        = "merge"
	fastForwardVerbProgressiveConstant = "Fast-forwarding"
	fastForwardVerbCompletedConstant   = "Fast-forwarded"
	fastForwardVerbInfinitiveConstant  = "fast-forward"
	abortVerbProgressiveConstant       = "Aborting"
	abortVerbCompletedConstant         = "Aborted"
	abortVerbInfinitiveConstant        = "abort"
	rebaseVerbProgressiveConstant      = "Rebasing"
	rebaseVerbCompletedConstant        = "Rebased"
	rebaseVerbInfinitiveConstant       = "rebase"
	reviewVerbProgressiveConstant      = "Reviewing"
	reviewVerbCompletedConstant        = "Reviewed"
	reviewVerbInfinitiveConstant       = "review"
	readVerbProgressiveConstant        = "Reading"
	readVerbCompletedConstant          = "Read"
	readVerbInfinitiveConstant         = "read"
	setVerbProgressiveConstant         = "Setting"
	setVerbCompletedConstant           = "Set"
	setVerbInfinitiveConstant          = "set"
	unsetVerbProgressiveConstant       = "Removing"
	unsetVerbCompletedConstant         = "Removed"
	unsetVerbInfinitiveConstant        = "remove"
	resolveVerbProgressiveConstant     = "Resolving"
	resolveVerbCompletedConstant       = "Resolved"
	resolveVerbInfinitiveConstant      = "resolve"
	countVerbProgressiveConstant       = "Counting"
	countVerbCompletedConstant         = "Counted"
	countVerbInfinitiveConstant        = "count"
	listVerbProgressiveConstant        = "Listing"
	listVerbCompletedConstant          = "Listed"
	listVerbInfinitiveConstant         = "list"
	checkVerbProgressiveConstant       = "Checking"
	checkVerbCompletedConstant         = "Checked"
	checkVerbInfinitiveConstant        = "check"
	rewriteVerbProgressiveConstant     = "Rewriting"
	rewriteVerbCompletedConstant       = "Rewrote"
	rewriteVerbInfinitiveConstant      = "rewrite"
	exportVerbProgressiveConstant      = "Exporting"
	exportVerbCompletedConstant        = "Exported"
	exportVerbInfinitiveConstant       = "export"
)

type verbForms struct {
	progressive string
	completed   string
	infinitive  string
}

var (
	cloneVerb       = verbForms{cloneVerbProgressiveConstant, cloneVerbCompletedConstant, cloneVerbInfinitiveConstant}
	fetchVerb       = verbForms{fetchVerbProgressiveConstant, fetchVerbCompletedConstant, fetchVerbInfinitiveConstant}
	pullVerb        = verbForms{pullVerbProgressiveConstant, pullVerbCompletedConstant, pullVerbInfinitiveConstant}
	pushVerb        = verbForms{pushVerbProgressiveConstant, pushVerbCompletedConstant, pushVerbInfinitiveConstant}
	switchVerb      = verbForms{switchVerbProgressiveConstant, switchVerbCompletedConstant, switchVerbInfinitiveConstant}
	createVerb      = verbForms{createVerbProgressiveConstant, createVerbCompletedConstant, createVerbInfinitiveConstant}
	mergeVerb       = verbForms{mergeVerbProgressiveConstant, mergeVerbCompletedConstant, mergeVerbInfinitiveConstant}
	fastForwardVerb = verbForms{fastForwardVerbProgressiveConstant, fastForwardVerbCompletedConstant, fastForwardVerbInfinitiveConstant}
	abortVerb       = verbForms{abortVerbProgressiveConstant, abortVerbCompletedConstant, abortVerbInfinitiveConstant}
	rebaseVerb      = verbForms{rebaseVerbProgressiveConstant, rebaseVerbCompletedConstant, rebaseVerbInfinitiveConstant}
	reviewVerb      = verbForms{reviewVerbProgressiveConstant, reviewVerbCompletedConstant, reviewVerbInfinitiveConstant}
	readVerb        = verbForms{readVerbProgressiveConstant, readVerbCompletedConstant, readVerbInfinitiveConstant}
	setVerb         = verbForms{setVerbProgressiveConstant, setVerbCompletedConstant, setVerbInfinitiveConstant}
	unsetVerb       = verbForms{unsetVerbProgressiveConstant, unsetVerbCompletedConstant, unsetVerbInfinitiveConstant}
	resolveVerb     = verbForms{resolveVerbProgressiveConstant, resolveVerbCompletedConstant, resolveVerbInfinitiveConstant}
	countVerb       = verbForms{countVerbProgressiveConstant, countVerbCompletedConstant, countVerbInfinitiveConstant}
	listVerb        = verbForms{listVerbProgressiveConstant, listVerbCompletedConstant, listVerbInfinitiveConstant}
	checkVerb       = verbForms{checkVerbProgressiveConstant, checkVerbCompletedConstant, checkVerbInfinitiveConstant}
	rewriteVerb     = verbForms{rewriteVerbProgressiveConstant, rewriteVerbCompletedConstant, rewriteVerbInfinitiveConstant}
	exportVerb      = verbForms{exportVerbProgressiveConstant, exportVerbCompletedConstant, exportVerbInfinitiveConstant}
)

// activity is a sentence template whose first verb slot is filled per lifecycle stage.
type activity struct {
	verb      verbForms
	template  string
	arguments []any
}

func (described activity) render(verb string) string {
	return fmt.Sprintf(described.template, append([]any{verb}, described.arguments...)...)
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	described, known := formatter.describeActivity(command)
	if !known {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch stage {
	case messageStageStart:
		return described.render(described.verb.progressive)
	case messageStageSuccess:
		return described.render(described.verb.completed)
	case messageStageFailure:
		return fmt.Sprintf(activityFailureTemplateConstant, described.render(described.verb.infinitive), result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(activityExecutionFailureTemplateConstant, described.render(described.verb.infinitive), describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeActivity(command ShellCommand) (activity, bool) {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return activity{}, false
	}

	arguments := command.Details.Arguments
	positional := positionalArguments(arguments[1:])
	workingDirectory := describeWorkingDirectory(command)

	switch strings.TrimSpace(arguments[0]) {
	case gitCloneSubcommandNameConstant:
		return activity{cloneVerb, cloneActivityConstant, []any{valueAt(positional, 0), valueAt(positional, 1)}}, true
	case gitFetchSubcommandNameConstant:
		remoteName := gitFetchAllRemotesLabelConstant
		if len(positional) > 0 {
			remoteName = positional[0]
		}
		return activity{fetchVerb, fetchActivityConstant, []any{remoteName, workingDirectory}}, true
	case gitPullSubcommandNameConstant:
		template := pullActivityConstant
		if containsArgument(arguments, gitRebaseFlagConstant) {
			template = pullRebaseActivityConstant
		}
		return activity{pullVerb, template, []any{valueAt(positional, 1), valueAt(positional, 0), workingDirectory}}, true
	case gitPushSubcommandNameConstant:
		return activity{pushVerb, pushActivityConstant, []any{valueAt(positional, 1), valueAt(positional, 0), workingDirectory}}, true
	case gitCheckoutSubcommandNameConstant:
		return formatter.describeCheckout(arguments, positional, workingDirectory), true
	case gitMergeSubcommandNameConstant:
		return formatter.describeMerge(arguments, positional, workingDirectory), true
	case gitRebaseSubcommandNameConstant:
		if containsArgument(arguments, gitAbortFlagConstant) {
			return activity{abortVerb, rebaseAbortActivityConstant, []any{workingDirectory}}, true
		}
		return activity{rebaseVerb, rebaseActivityConstant, []any{valueAt(positional, 0), workingDirectory}}, true
	case gitStatusSubcommandNameConstant:
		return activity{reviewVerb, statusActivityConstant, []any{workingDirectory}}, true
	case gitConfigSubcommandNameConstant:
		return formatter.describeConfig(arguments, positional, workingDirectory), true
	case gitRevParseSubcommandNameConstant:
		if containsArgument(arguments, gitUpstreamReferenceConstant) {
			return activity{resolveVerb, upstreamActivityConstant, []any{workingDirectory}}, true
		}
		if containsArgument(arguments, gitAbbrevRefFlagConstant) {
			return activity{resolveVerb, currentBranchActivityConstant, []any{workingDirectory}}, true
		}
		return activity{resolveVerb, revisionActivityConstant, []any{valueAt(positional, 0), workingDirectory}}, true
	case gitRevListSubcommandNameConstant:
		if containsArgument(arguments, gitLeftRightFlagConstant) {
			return activity{countVerb, revisionCountActivityConstant, []any{valueAt(positional, 0), workingDirectory}}, true
		}
		return activity{listVerb, revisionListActivityConstant, []any{valueAt(positional, 0), workingDirectory}}, true
	case gitShowRefSubcommandNameConstant:
		return activity{checkVerb, showRefActivityConstant, []any{valueAt(positional, 0), workingDirectory}}, true
	case gitMergeBaseSubcommandNameConstant:
		if containsArgument(arguments, gitIsAncestorFlagConstant) {
			return activity{checkVerb, ancestorActivityConstant, []any{valueAt(positional, 1), valueAt(positional, 0), workingDirectory}}, true
		}
		return activity{}, false
	case gitLogSubcommandNameConstant:
		historyRange := gitFilterBranchAllReferencesLabelConstant
		if len(positional) > 0 {
			historyRange = positional[0]
		}
		return activity{readVerb, logActivityConstant, []any{historyRange, workingDirectory}}, true
	case gitFilterBranchSubcommandNameConstant:
		return activity{rewriteVerb, filterBranchActivityConstant, []any{describeFilterBranchRange(arguments), workingDirectory}}, true
	case gitCVSExportCommitSubcommandNameConstant:
		return activity{exportVerb, cvsExportActivityConstant, []any{lastValue(arguments), valueAfterFlag(arguments, gitCVSWorkingDirectoryFlagConstant)}}, true
	default:
		return activity{}, false
	}
}

func (formatter CommandMessageFormatter) describeCheckout(arguments []string, positional []string, workingDirectory string) activity {
	createdBranch := valueAfterFlag(arguments, gitCreateBranchFlagConstant)
	if createdBranch == fallbackUnknownValueLabelConstant {
		return activity{switchVerb, checkoutActivityConstant, []any{workingDirectory, valueAt(positional, 0)}}
	}
	if containsArgument(arguments, gitTrackFlagConstant) {
		return activity{createVerb, checkoutTrackActivityConstant, []any{createdBranch, lastValue(arguments), workingDirectory}}
	}
	return activity{createVerb, checkoutCreateActivityConstant, []any{createdBranch, workingDirectory}}
}

func (formatter CommandMessageFormatter) describeMerge(arguments []string, positional []string, workingDirectory string) activity {
	switch {
	case containsArgument(arguments, gitAbortFlagConstant):
		return activity{abortVerb, mergeAbortActivityConstant, []any{workingDirectory}}
	case containsArgument(arguments, gitFastForwardOnlyFlagConstant):
		return activity{fastForwardVerb, mergeFastForwardActivityConstant, []any{valueAt(positional, 0), workingDirectory}}
	case containsArgument(arguments, gitNoFastForwardFlagConstant):
		return activity{mergeVerb, mergeNoFastForwardActivityConstant, []any{valueAt(positional, 0), workingDirectory}}
	default:
		return activity{mergeVerb, mergeActivityConstant, []any{valueAt(positional, 0), workingDirectory}}
	}
}

func (formatter CommandMessageFormatter) describeConfig(arguments []string, positional []string, workingDirectory string) activity {
	switch {
	case containsArgument(arguments, gitUnsetFlagConstant):
		return activity{unsetVerb, configUnsetActivityConstant, []any{valueAt(positional, 0), workingDirectory}}
	case containsArgument(arguments, gitGetFlagConstant) || len(positional) < 2:
		return activity{readVerb, configReadActivityConstant, []any{valueAt(positional, 0), workingDirectory}}
	default:
		return activity{setVerb, configWriteActivityConstant, []any{positional[0], positional[1], workingDirectory}}
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := command.String()
	if len(strings.TrimSpace(command.Details.WorkingDirectory)) > 0 {
		commandLabel += fmt.Sprintf(workingDirectorySuffixTemplateConstant, command.Details.WorkingDirectory)
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, describeFailure(failure))
	}
}

func describeWorkingDirectory(command ShellCommand) string {
	trimmedDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedDirectory
}

func describeFilterBranchRange(arguments []string) string {
	for index, argument := range arguments {
		if argument != gitFilterBranchSeparatorConstant {
			continue
		}
		remaining := arguments[index+1:]
		if len(remaining) == 0 || strings.HasPrefix(remaining[0], flagPrefixConstant) {
			return gitFilterBranchAllReferencesLabelConstant
		}
		return strings.Join(remaining, referenceJoinSeparatorConstant)
	}
	return gitFilterBranchAllReferencesLabelConstant
}

func formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
}

func describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// positionalArguments drops flags and the values of flags known to take one.
func positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	skipNext := false
	for _, argument := range arguments {
		if skipNext {
			skipNext = false
			continue
		}
		if argument == gitFilterBranchSeparatorConstant {
			continue
		}
		if strings.HasPrefix(argument, flagPrefixConstant) {
			skipNext = flagTakesValue(argument)
			continue
		}
		positional = append(positional, argument)
	}
	return positional
}

func flagTakesValue(flag string) bool {
	switch flag {
	case "--depth", "--branch", gitCreateBranchFlagConstant, gitCVSWorkingDirectoryFlagConstant, "--env-filter":
		return true
	default:
		return false
	}
}

func containsArgument(arguments []string, target string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == target {
			return true
		}
	}
	return false
}

func valueAt(values []string, index int) string {
	if index < 0 || index >= len(values) || len(strings.TrimSpace(values[index])) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return strings.TrimSpace(values[index])
}

func valueAfterFlag(arguments []string, flag string) string {
	for index, argument := range arguments {
		if argument == flag {
			return valueAt(arguments, index+1)
		}
	}
	return fallbackUnknownValueLabelConstant
}

func lastValue(arguments []string) string {
	return valueAt(arguments, len(arguments)-1)
}

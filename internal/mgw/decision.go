package mgw

import (
	"errors"
	"fmt"
	"strings"
)

const (
	targetDivergedTemplateConstant  = "%s has diverged from %s; reconcile it before integrating"
	unknownStrategyTemplateConstant = "unknown strategy %q"
	remoteBranchTemplateConstant    = "%s/%s"
	gitBranchSubcommandConstant     = "branch"
	gitMergeSubcommandConstant      = "merge"
	gitRebaseSubcommandConstant     = "rebase"
	gitPushSubcommandConstant       = "push"
	gitTrackFlagConstant            = "--track"
	gitFastForwardOnlyFlagConstant  = "--ff-only"
	gitNoFastForwardFlagConstant    = "--no-ff"
	gitAbortFlagConstant            = "--abort"
	gitSetUpstreamFlagConstant      = "--set-upstream"
	pushStrategyNotAllowedConstant  = "strategy %q is not valid for mpush; use rebase or merge"
)

// Strategy selects how a feature that cannot be fast-forwarded is integrated.
type Strategy string

// Supported strategies.
const (
	StrategyAuto   Strategy = Strategy("auto")
	StrategyRebase Strategy = Strategy("rebase")
	StrategyMerge  Strategy = Strategy("merge")
)

// StrategyChoices lists strategy names accepted by mgw.
var StrategyChoices = []string{string(StrategyAuto), string(StrategyRebase), string(StrategyMerge)}

// PushStrategyChoices lists strategy names accepted by mpush.
var PushStrategyChoices = []string{string(StrategyRebase), string(StrategyMerge)}

// ErrTargetDiverged indicates the local target branch has commits both missing from and absent on the remote.
var ErrTargetDiverged = errors.New("target branch diverged from remote")

// TargetDivergedError reports a target that is both ahead of and behind its remote.
type TargetDivergedError struct {
	Target       string
	RemoteTarget string
}

// Error describes the divergence.
func (divergedError TargetDivergedError) Error() string {
	return fmt.Sprintf(targetDivergedTemplateConstant, divergedError.Target, divergedError.RemoteTarget)
}

// Is matches ErrTargetDiverged.
func (divergedError TargetDivergedError) Is(target error) bool {
	return target == ErrTargetDiverged
}

// UnknownStrategyError reports an unsupported strategy.
type UnknownStrategyError struct {
	Strategy Strategy
}

// Error names the strategy.
func (strategyError UnknownStrategyError) Error() string {
	return fmt.Sprintf(unknownStrategyTemplateConstant, strategyError.Strategy)
}

// StepKind labels a plan step.
type StepKind string

// Plan step kinds.
const (
	StepCreateTarget      StepKind = StepKind("create-target")
	StepFastForwardTarget StepKind = StepKind("fast-forward-target")
	StepRebaseFeature     StepKind = StepKind("rebase-feature")
	StepFastForwardMerge  StepKind = StepKind("fast-forward-merge")
	StepMergeNoFF         StepKind = StepKind("merge-no-ff")
	StepRebaseOnRemote    StepKind = StepKind("rebase-on-remote")
	StepMergeRemote       StepKind = StepKind("merge-remote")
	StepPush              StepKind = StepKind("push")
	StepPublish           StepKind = StepKind("publish")
)

// Step is one git command of a plan. OnBranch names the branch that must be checked
// out first; empty means any. AbortArguments undo a conflicting rebase or merge.
type Step struct {
	Kind           StepKind
	OnBranch       string
	Arguments      []string
	AbortArguments []string
	Network        bool
}

// Plan is the ordered list of steps decided for a repository state.
type Plan struct {
	Steps []Step
}

// Describe renders the plan as git command lines, including implied checkouts from startBranch.
func (plan Plan) Describe(startBranch string) []string {
	var lines []string
	current := startBranch
	for _, step := range plan.Steps {
		if len(step.OnBranch) > 0 && step.OnBranch != current {
			lines = append(lines, "git checkout "+step.OnBranch)
			current = step.OnBranch
		}
		lines = append(lines, "git "+strings.Join(step.Arguments, " "))
	}
	return lines
}

// State captures everything Decide needs to know about the repository.
type State struct {
	Feature               string
	Target                string
	Remote                string
	TargetMissingLocally  bool
	TargetAheadOfRemote   bool
	TargetBehindRemote    bool
	FeatureContainsTarget bool
	FeaturePublished      bool
	Strategy              Strategy
	Push                  bool
}

// Decide computes the integration plan for a feature branch.
//
// A target that is both ahead of and behind its remote is an error. A target behind
// its remote is fast-forwarded first. When the feature already contains the target,
// the target is fast-forwarded to the feature. Otherwise the rebase strategy, or
// auto with an unpublished feature, rebases the feature onto the target and then
// fast-forwards; the merge strategy, or auto with a published feature, merges with --no-ff.
func Decide(state State) (Plan, error) {
	remoteTarget := fmt.Sprintf(remoteBranchTemplateConstant, state.Remote, state.Target)
	if state.TargetAheadOfRemote && state.TargetBehindRemote {
		return Plan{}, TargetDivergedError{Target: state.Target, RemoteTarget: remoteTarget}
	}

	strategy := state.Strategy
	if len(strategy) == 0 {
		strategy = StrategyAuto
	}
	if strategy != StrategyAuto && strategy != StrategyRebase && strategy != StrategyMerge {
		return Plan{}, UnknownStrategyError{Strategy: strategy}
	}

	var plan Plan
	if state.TargetMissingLocally {
		plan.Steps = append(plan.Steps, Step{
			Kind:      StepCreateTarget,
			Arguments: []string{gitBranchSubcommandConstant, gitTrackFlagConstant, state.Target, remoteTarget},
		})
	} else if state.TargetBehindRemote {
		plan.Steps = append(plan.Steps, Step{
			Kind:      StepFastForwardTarget,
			OnBranch:  state.Target,
			Arguments: []string{gitMergeSubcommandConstant, gitFastForwardOnlyFlagConstant, remoteTarget},
		})
	}

	fastForward := Step{
		Kind:      StepFastForwardMerge,
		OnBranch:  state.Target,
		Arguments: []string{gitMergeSubcommandConstant, gitFastForwardOnlyFlagConstant, state.Feature},
	}

	switch {
	case state.FeatureContainsTarget:
		plan.Steps = append(plan.Steps, fastForward)
	case strategy == StrategyRebase || (strategy == StrategyAuto && !state.FeaturePublished):
		plan.Steps = append(plan.Steps,
			Step{
				Kind:           StepRebaseFeature,
				OnBranch:       state.Feature,
				Arguments:      []string{gitRebaseSubcommandConstant, state.Target},
				AbortArguments: []string{gitRebaseSubcommandConstant, gitAbortFlagConstant},
			},
			fastForward,
		)
	default:
		plan.Steps = append(plan.Steps, Step{
			Kind:           StepMergeNoFF,
			OnBranch:       state.Target,
			Arguments:      []string{gitMergeSubcommandConstant, gitNoFastForwardFlagConstant, state.Feature},
			AbortArguments: []string{gitMergeSubcommandConstant, gitAbortFlagConstant},
		})
	}

	if state.Push {
		plan.Steps = append(plan.Steps, Step{
			Kind:      StepPush,
			Arguments: []string{gitPushSubcommandConstant, state.Remote, state.Target},
			Network:   true,
		})
	}
	return plan, nil
}

// PushState captures what DecidePush needs to know about the current branch.
type PushState struct {
	Branch             string
	Remote             string
	RemoteBranchExists bool
	Ahead              int
	Behind             int
	Strategy           Strategy
}

// DecidePush computes the mpush plan for the current branch.
//
// An unpublished branch is pushed with --set-upstream. A branch that is up to date
// or only ahead is pushed. A branch that is only behind is fast-forwarded and has
// nothing to push. A diverged branch is rebased onto, or merged with --no-ff from,
// the remote branch and then pushed.
func DecidePush(state PushState) (Plan, error) {
	strategy := state.Strategy
	if len(strategy) == 0 {
		strategy = StrategyRebase
	}
	if strategy != StrategyRebase && strategy != StrategyMerge {
		return Plan{}, fmt.Errorf(pushStrategyNotAllowedConstant, strategy)
	}

	push := Step{Kind: StepPush, Arguments: []string{gitPushSubcommandConstant, state.Remote, state.Branch}, Network: true}
	if !state.RemoteBranchExists {
		return Plan{Steps: []Step{{
			Kind:      StepPublish,
			Arguments: []string{gitPushSubcommandConstant, gitSetUpstreamFlagConstant, state.Remote, state.Branch},
			Network:   true,
		}}}, nil
	}

	remoteBranch := fmt.Sprintf(remoteBranchTemplateConstant, state.Remote, state.Branch)
	switch {
	case state.Behind == 0:
		return Plan{Steps: []Step{push}}, nil
	case state.Ahead == 0:
		return Plan{Steps: []Step{{
			Kind:      StepFastForwardTarget,
			Arguments: []string{gitMergeSubcommandConstant, gitFastForwardOnlyFlagConstant, remoteBranch},
		}}}, nil
	case strategy == StrategyMerge:
		return Plan{Steps: []Step{
			{
				Kind:           StepMergeRemote,
				Arguments:      []string{gitMergeSubcommandConstant, gitNoFastForwardFlagConstant, remoteBranch},
				AbortArguments: []string{gitMergeSubcommandConstant, gitAbortFlagConstant},
			},
			push,
		}}, nil
	default:
		return Plan{Steps: []Step{
			{
				Kind:           StepRebaseOnRemote,
				Arguments:      []string{gitRebaseSubcommandConstant, remoteBranch},
				AbortArguments: []string{gitRebaseSubcommandConstant, gitAbortFlagConstant},
			},
			push,
		}}, nil
	}
}

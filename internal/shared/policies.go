package shared

// ConfirmationPolicy specifies how services should handle user confirmations.
type ConfirmationPolicy int

const (
	// ConfirmationPrompt indicates the service should prompt the user.
	ConfirmationPrompt ConfirmationPolicy = iota
	// ConfirmationAssumeYes indicates the service should continue without prompting.
	ConfirmationAssumeYes
)

// ConfirmationPolicyFromBool converts the --yes flag into a policy.
func ConfirmationPolicyFromBool(assumeYes bool) ConfirmationPolicy {
	if assumeYes {
		return ConfirmationAssumeYes
	}
	return ConfirmationPrompt
}

// ShouldPrompt reports whether the service must prompt the user.
func (policy ConfirmationPolicy) ShouldPrompt() bool {
	return policy != ConfirmationAssumeYes
}

// Confirm asks prompter unless the policy assumes yes. A nil prompter declines.
func (policy ConfirmationPolicy) Confirm(prompter ConfirmationPrompter, prompt string) (bool, error) {
	if !policy.ShouldPrompt() {
		return true, nil
	}
	if prompter == nil {
		return false, nil
	}
	return prompter.Confirm(prompt)
}

// CleanWorktreePolicy describes expectations for repository cleanliness.
type CleanWorktreePolicy int

const (
	// CleanWorktreeRequired enforces clean worktrees prior to executing an operation.
	CleanWorktreeRequired CleanWorktreePolicy = iota
	// CleanWorktreeOptional allows dirty worktrees.
	CleanWorktreeOptional
)

// CleanWorktreePolicyFromAllowDirty converts the --allow-dirty flag into a policy value.
func CleanWorktreePolicyFromAllowDirty(allowDirty bool) CleanWorktreePolicy {
	if allowDirty {
		return CleanWorktreeOptional
	}
	return CleanWorktreeRequired
}

// RequireClean reports whether a clean worktree is mandatory.
func (policy CleanWorktreePolicy) RequireClean() bool {
	return policy == CleanWorktreeRequired
}

// Package mgw implements the Minimal Git Workflow: promoting a feature branch onto
// a target branch by fast-forward, rebase or --no-ff merge, and pushing the current
// branch with mpush.
package mgw

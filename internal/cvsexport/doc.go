// Package cvsexport replays git commits into a CVS checkout with git cvsexportcommit
// and verifies that the resulting CVS tree matches the git worktree.
package cvsexport

// Package gitrepo contains helpers for interrogating Git repositories.
//
// RepositoryManager answers the branch, upstream and worktree questions the
// module, MGW and export services ask before mutating anything, and the
// remote URL helpers convert between structured and textual remotes.
package gitrepo

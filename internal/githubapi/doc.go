// Package githubapi talks to the GitHub REST API through go-github to manage branch
// protection and pull request hygiene across Ensembl repositories.
package githubapi

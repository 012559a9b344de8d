// Package githubauth locates GitHub API credentials and exposes them as oauth2 token sources.
package githubauth

import (
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// Environment variable names consulted for GitHub tokens, in order of preference.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

const configuredTokenSourceConstant = "configuration"

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// Token is a resolved credential together with where it came from.
type Token struct {
	Value  string
	Source string
}

// EnvironmentLookup reads a variable from an environment.
type EnvironmentLookup func(key string) (string, bool)

// Resolver picks the first available token from configuration or the environment.
type Resolver struct {
	lookup EnvironmentLookup
}

// NewResolver constructs a Resolver reading the process environment when lookup is nil.
func NewResolver(lookup EnvironmentLookup) Resolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Resolver{lookup: lookup}
}

// Resolve returns the configured token when non-empty, otherwise the first non-empty
// environment token in GH_TOKEN, GITHUB_TOKEN, GITHUB_API_TOKEN order.
func (resolver Resolver) Resolve(configuredToken string) (Token, bool) {
	if trimmed := strings.TrimSpace(configuredToken); len(trimmed) > 0 {
		return Token{Value: trimmed, Source: configuredTokenSourceConstant}, true
	}
	for _, key := range tokenPreference {
		value, exists := resolver.lookup(key)
		if !exists {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) > 0 {
			return Token{Value: value, Source: key}, true
		}
	}
	return Token{}, false
}

// TokenSource wraps the token for oauth2 HTTP transports.
func (token Token) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value})
}

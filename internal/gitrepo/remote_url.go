package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	httpsProtocolPrefixConstant         = "https://"
	gitUserPrefixConstant               = "git@"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	sshRemoteTemplateConstant           = "git@%s:%s/%s.git"
	httpsRemoteTemplateConstant         = "https://%s/%s/%s.git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant        = "value required"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	invalidRepositoryMessageConstant    = "expected owner/repository"
	unknownProtocolMessageConstant      = "unsupported remote protocol"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
)

// RemoteURL represents a structured git remote URL.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// FullName returns the owner/repository pair.
func (remote RemoteURL) FullName() string {
	return remote.Owner + pathSeparatorConstant + remote.Repository
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// UnsupportedProtocolError indicates the provided protocol cannot be formatted.
type UnsupportedProtocolError struct {
	Protocol RemoteProtocol
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, protocolError.Protocol, unknownProtocolMessageConstant)
}

// ParseRemoteURL converts git@host:owner/repo.git, ssh://git@host/owner/repo.git
// and https://host/owner/repo(.git) remotes into a structured representation.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	switch {
	case len(trimmedRemote) == 0:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseSSHRemote(remote, strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant), pathSeparatorConstant)
	case strings.HasPrefix(trimmedRemote, gitUserPrefixConstant):
		return parseSSHRemote(remote, trimmedRemote, sshPathDelimiterConstant)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		hostAndPath := strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant)
		host, path, found := strings.Cut(hostAndPath, pathSeparatorConstant)
		if !found || len(host) == 0 {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
		}
		return buildRemoteURL(remote, RemoteProtocolHTTPS, host, path)
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
}

// ParseRepositoryName splits an "owner/repository" pair, tolerating a trailing .git.
func ParseRepositoryName(fullName string) (string, string, error) {
	owner, repository, found := strings.Cut(strings.TrimSpace(fullName), pathSeparatorConstant)
	repository = strings.TrimSuffix(repository, gitSuffixConstant)
	if !found || len(owner) == 0 || len(repository) == 0 || strings.Contains(repository, pathSeparatorConstant) {
		return "", "", RemoteURLParseError{Input: fullName, Message: invalidRepositoryMessageConstant}
	}
	return owner, repository, nil
}

func parseSSHRemote(original string, remote string, hostPathDelimiter string) (RemoteURL, error) {
	_, hostAndPath, hasUser := strings.Cut(remote, sshUserDelimiterConstant)
	if !hasUser {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	host, path, found := strings.Cut(hostAndPath, hostPathDelimiter)
	if !found || len(host) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	return buildRemoteURL(original, RemoteProtocolSSH, host, path)
}

func buildRemoteURL(original string, protocol RemoteProtocol, host string, path string) (RemoteURL, error) {
	owner, repository, parseError := ParseRepositoryName(path)
	if parseError != nil {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Protocol: protocol, Host: host, Owner: owner, Repository: repository}, nil
}

// FormatRemoteURL creates a textual remote URL from a structured representation.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	for _, requiredValue := range []string{remote.Host, remote.Owner, remote.Repository} {
		if len(strings.TrimSpace(requiredValue)) == 0 {
			return "", RemoteURLParseError{Input: fmt.Sprintf("%+v", remote), Message: requiredValueMessageConstant}
		}
	}

	switch remote.Protocol {
	case RemoteProtocolSSH:
		return fmt.Sprintf(sshRemoteTemplateConstant, remote.Host, remote.Owner, remote.Repository), nil
	case RemoteProtocolHTTPS:
		return fmt.Sprintf(httpsRemoteTemplateConstant, remote.Host, remote.Owner, remote.Repository), nil
	default:
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
}

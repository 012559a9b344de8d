package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
)

func TestParseRemoteURL(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected gitrepo.RemoteURL
	}{
		{
			name:     "scp_style_ssh",
			input:    "git@github.com:Ensembl/ensembl.git",
			expected: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "Ensembl", Repository: "ensembl"},
		},
		{
			name:     "ssh_scheme",
			input:    "ssh://git@github.com/Ensembl/ensembl-compara.git",
			expected: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com", Owner: "Ensembl", Repository: "ensembl-compara"},
		},
		{
			name:     "https_without_suffix",
			input:    " https://github.com/Ensembl/ensembl-rest ",
			expected: gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolHTTPS, Host: "github.com", Owner: "Ensembl", Repository: "ensembl-rest"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			parsed, parseError := gitrepo.ParseRemoteURL(testCase.input)
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expected, parsed)
		})
	}
}

func TestParseRemoteURLRejectsInvalidInput(testInstance *testing.T) {
	for _, input := range []string{"", "ftp://example.org/a/b", "git@github.com", "https://github.com/Ensembl", "git@github.com:a/b/c.git"} {
		_, parseError := gitrepo.ParseRemoteURL(input)
		require.Error(testInstance, parseError, input)
		require.ErrorAs(testInstance, parseError, new(gitrepo.RemoteURLParseError))
	}
}

func TestParseRepositoryName(testInstance *testing.T) {
	owner, repository, parseError := gitrepo.ParseRepositoryName("Ensembl/ensembl-variation.git")
	require.NoError(testInstance, parseError)
	require.Equal(testInstance, "Ensembl", owner)
	require.Equal(testInstance, "ensembl-variation", repository)

	_, _, parseError = gitrepo.ParseRepositoryName("ensembl")
	require.Error(testInstance, parseError)
}

func TestFormatRemoteURL(testInstance *testing.T) {
	remote := gitrepo.RemoteURL{Host: "github.com", Owner: "Ensembl", Repository: "ensembl-funcgen"}

	remote.Protocol = gitrepo.RemoteProtocolSSH
	formatted, formatError := gitrepo.FormatRemoteURL(remote)
	require.NoError(testInstance, formatError)
	require.Equal(testInstance, "git@github.com:Ensembl/ensembl-funcgen.git", formatted)

	remote.Protocol = gitrepo.RemoteProtocolHTTPS
	formatted, formatError = gitrepo.FormatRemoteURL(remote)
	require.NoError(testInstance, formatError)
	require.Equal(testInstance, "https://github.com/Ensembl/ensembl-funcgen.git", formatted)

	remote.Protocol = gitrepo.RemoteProtocol("git")
	_, formatError = gitrepo.FormatRemoteURL(remote)
	require.ErrorAs(testInstance, formatError, new(gitrepo.UnsupportedProtocolError))

	_, formatError = gitrepo.FormatRemoteURL(gitrepo.RemoteURL{Protocol: gitrepo.RemoteProtocolSSH, Host: "github.com"})
	require.Error(testInstance, formatError)
}

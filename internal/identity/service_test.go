package identity_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/execshell"
	"github.com/Ensembl/ensembl-git-tools/internal/identity"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	testRepositoryConstant = "/workspace/ensembl"
	testLogCommandConstant = "log --format=%H%x09%an%x09%ae%x09%cn%x09%ce --all"
)

type scriptedResponse struct {
	output   string
	exitCode int
}

type scriptedGitExecutor struct {
	responses map[string]scriptedResponse
	commands  []string
	details   []execshell.CommandDetails
}

func newScriptedGitExecutor(responses map[string]scriptedResponse) *scriptedGitExecutor {
	return &scriptedGitExecutor{responses: responses}
}

func (executor *scriptedGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	key := strings.Join(details.Arguments, " ")
	executor.commands = append(executor.commands, key)
	executor.details = append(executor.details, details)
	response := executor.responses[key]
	if response.exitCode != 0 {
		command := execshell.ShellCommand{Name: execshell.CommandGit, Details: details}
		return execshell.ExecutionResult{}, execshell.CommandFailedError{Command: command, Result: execshell.ExecutionResult{ExitCode: response.exitCode}}
	}
	return execshell.ExecutionResult{StandardOutput: response.output}, nil
}

type stubPrompter struct {
	answer  bool
	prompts []string
}

func (prompter *stubPrompter) Confirm(prompt string) (bool, error) {
	prompter.prompts = append(prompter.prompts, prompt)
	return prompter.answer, nil
}

func newIdentityService(testInstance *testing.T, executor *scriptedGitExecutor, prompter shared.ConfirmationPrompter) *identity.Service {
	testInstance.Helper()
	service, serviceError := identity.NewService(identity.ServiceDependencies{GitExecutor: executor, Prompter: prompter})
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewServiceRequiresExecutor(testInstance *testing.T) {
	_, serviceError := identity.NewService(identity.ServiceDependencies{})
	require.ErrorIs(testInstance, serviceError, identity.ErrGitExecutorNotConfigured)
}

func TestPreviewCountsMatchingCommits(testInstance *testing.T) {
	history := strings.Join([]string{
		"a1\tjdoe\tjdoe@sanger.ac.uk\tjdoe\tjdoe@sanger.ac.uk",
		"b2\tPat\tpat@ebi.ac.uk\tp'ob\tpob@sanger.ac.uk",
		"c3\tSomeone\tsomeone@ebi.ac.uk\tSomeone\tsomeone@ebi.ac.uk",
		"d4\tpob\tpob@sanger.ac.uk\tSomeone\tsomeone@ebi.ac.uk",
	}, "\n") + "\n"
	executor := newScriptedGitExecutor(map[string]scriptedResponse{testLogCommandConstant: {output: history}})
	service := newIdentityService(testInstance, executor, nil)

	preview, previewError := service.Preview(context.Background(), testRepositoryConstant, testMappings, "")
	require.NoError(testInstance, previewError)
	require.Equal(testInstance, 4, preview.Commits)
	require.Equal(testInstance, 2, preview.Rewritten)
	require.Equal(testInstance, 1, preview.Entries[0].Authored)
	require.Equal(testInstance, 1, preview.Entries[0].Committed)
	require.Equal(testInstance, 0, preview.Entries[1].Authored)
	require.Equal(testInstance, 1, preview.Entries[1].Committed)
	require.Equal(testInstance, testRepositoryConstant, executor.details[0].WorkingDirectory)

	rendered := identity.RenderPreview(preview)
	require.Contains(testInstance, rendered, "FROM")
	require.Contains(testInstance, rendered, "Jane Doe <jane@ebi.ac.uk>")
	require.True(testInstance, strings.HasSuffix(rendered, "2 of 4 commits would be rewritten"))
}

func TestPreviewUsesRangeAndRejectsMalformedOutput(testInstance *testing.T) {
	executor := newScriptedGitExecutor(map[string]scriptedResponse{
		"log --format=%H%x09%an%x09%ae%x09%cn%x09%ce release/110..main": {output: "garbage\n"},
	})
	service := newIdentityService(testInstance, executor, nil)

	_, previewError := service.Preview(context.Background(), testRepositoryConstant, testMappings, "release/110..main")
	require.Error(testInstance, previewError)
	require.Contains(testInstance, previewError.Error(), "garbage")

	_, emptyError := service.Preview(context.Background(), testRepositoryConstant, nil, "")
	require.ErrorIs(testInstance, emptyError, identity.ErrMappingsRequired)
}

func TestRewrite(testInstance *testing.T) {
	testCases := []struct {
		name             string
		options          identity.RewriteOptions
		status           string
		answer           bool
		expectedError    error
		expectExecuted   bool
		expectDeclined   bool
		expectedPrompts  int
		expectedCommands int
	}{
		{
			name:             "dry_run",
			options:          identity.RewriteOptions{DryRun: true},
			expectedCommands: 0,
		},
		{
			name:             "dirty_worktree",
			status:           " M modules/Bio/EnsEMBL/Gene.pm\n",
			expectedError:    identity.ErrDirtyWorktree,
			expectedCommands: 1,
		},
		{
			name:             "declined",
			answer:           false,
			expectDeclined:   true,
			expectedPrompts:  1,
			expectedCommands: 1,
		},
		{
			name:             "confirmed",
			answer:           true,
			expectExecuted:   true,
			expectedPrompts:  1,
			expectedCommands: 2,
		},
		{
			name:             "assume_yes",
			options:          identity.RewriteOptions{ConfirmationPolicy: shared.ConfirmationAssumeYes},
			expectExecuted:   true,
			expectedCommands: 2,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor := newScriptedGitExecutor(map[string]scriptedResponse{"status --porcelain": {output: testCase.status}})
			prompter := &stubPrompter{answer: testCase.answer}
			service := newIdentityService(subTest, executor, prompter)

			options := testCase.options
			options.RepositoryPath = testRepositoryConstant
			options.Mappings = testMappings
			result, rewriteError := service.Rewrite(context.Background(), options)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, rewriteError, testCase.expectedError)
			} else {
				require.NoError(subTest, rewriteError)
			}
			require.Equal(subTest, testCase.expectExecuted, result.Executed)
			require.Equal(subTest, testCase.expectDeclined, result.Declined)
			require.Len(subTest, prompter.prompts, testCase.expectedPrompts)
			require.Len(subTest, executor.commands, testCase.expectedCommands)
			require.True(subTest, strings.HasPrefix(result.Command, "git filter-branch -f --env-filter if "))
			require.True(subTest, strings.HasSuffix(result.Command, " -- --all"))

			if testCase.expectExecuted {
				rewrite := executor.details[len(executor.details)-1]
				require.Equal(subTest, []string{"filter-branch", "-f", "--env-filter", expectedEnvFilterConstant, "--", "--all"}, rewrite.Arguments)
				require.Equal(subTest, map[string]string{"FILTER_BRANCH_SQUELCH_WARNING": "1"}, rewrite.EnvironmentVariables)
			}
			if testCase.expectedPrompts > 0 {
				require.Equal(subTest, "Rewrite authorship of all branches in /workspace/ensembl? [y/N] ", prompter.prompts[0])
			}
		})
	}
}

func TestEffectiveIdentity(testInstance *testing.T) {
	environment := map[string]string{
		"GIT_AUTHOR_NAME":  "Ensembl Release",
		"GIT_AUTHOR_EMAIL": "release@ensembl.org",
	}
	lookup := func(name string) (string, bool) {
		value, found := environment[name]
		return value, found
	}
	executor := newScriptedGitExecutor(map[string]scriptedResponse{
		"config --get user.name":  {output: "Jane Doe\n"},
		"config --get user.email": {output: "jane@ebi.ac.uk\n"},
	})
	service := newIdentityService(testInstance, executor, nil)

	fromEnvironment, environmentError := service.Effective(context.Background(), testRepositoryConstant, lookup)
	require.NoError(testInstance, environmentError)
	require.Equal(testInstance, "Ensembl Release <release@ensembl.org> (environment)", identity.RenderEffective(fromEnvironment))
	require.Empty(testInstance, executor.commands)

	fromConfig, configError := service.Effective(context.Background(), testRepositoryConstant, nil)
	require.NoError(testInstance, configError)
	require.Equal(testInstance, "Jane Doe <jane@ebi.ac.uk> (git config)", identity.RenderEffective(fromConfig))

	unset := newScriptedGitExecutor(map[string]scriptedResponse{"config --get user.email": {exitCode: 1}})
	_, missingError := newIdentityService(testInstance, unset, nil).Effective(context.Background(), testRepositoryConstant, nil)
	require.ErrorIs(testInstance, missingError, identity.ErrIdentityNotFound)
}

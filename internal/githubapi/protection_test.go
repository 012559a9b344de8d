package githubapi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Ensembl/ensembl-git-tools/internal/githubapi"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

type stubProtectionAPI struct {
	branches    map[string][]string
	protection  map[string]githubapi.ProtectionStatus
	listErrors  map[string]error
	protectErr  error
	protected   []string
	unprotected []string
}

func (api *stubProtectionAPI) ListBranches(_ context.Context, repository githubapi.Repository) ([]string, error) {
	if listError, exists := api.listErrors[repository.FullName()]; exists {
		return nil, listError
	}
	return api.branches[repository.FullName()], nil
}

func (api *stubProtectionAPI) BranchProtection(_ context.Context, repository githubapi.Repository, branch string) (githubapi.ProtectionStatus, error) {
	return api.protection[repository.FullName()+"@"+branch], nil
}

func (api *stubProtectionAPI) ProtectBranch(_ context.Context, repository githubapi.Repository, branch string, _ githubapi.ProtectionSettings) error {
	if api.protectErr != nil {
		return api.protectErr
	}
	api.protected = append(api.protected, repository.FullName()+"@"+branch)
	return nil
}

func (api *stubProtectionAPI) UnprotectBranch(_ context.Context, repository githubapi.Repository, branch string) (bool, error) {
	key := repository.FullName() + "@" + branch
	api.unprotected = append(api.unprotected, key)
	return api.protection[key].Protected, nil
}

type stubPrompter struct {
	answer  bool
	prompts []string
}

func (prompter *stubPrompter) Confirm(prompt string) (bool, error) {
	prompter.prompts = append(prompter.prompts, prompt)
	return prompter.answer, nil
}

var (
	coreRepository = githubapi.Repository{Owner: "Ensembl", Name: "ensembl"}
	ioRepository   = githubapi.Repository{Owner: "Ensembl", Name: "ensembl-io"}
)

func newStubProtectionAPI() *stubProtectionAPI {
	return &stubProtectionAPI{
		branches: map[string][]string{
			"Ensembl/ensembl":    {"main", "release/110", "release/111", "feature/x"},
			"Ensembl/ensembl-io": {"main", "develop"},
		},
		protection: map[string]githubapi.ProtectionStatus{
			"Ensembl/ensembl@main": {Protected: true, RequiredApprovals: 1},
		},
	}
}

func TestMatchBranches(testInstance *testing.T) {
	testCases := []struct {
		name     string
		patterns []string
		expected []string
	}{
		{name: "exact", patterns: []string{"main"}, expected: []string{"main"}},
		{name: "glob", patterns: []string{"release/*"}, expected: []string{"release/110", "release/111"}},
		{name: "several patterns keep listing order", patterns: []string{"feature/*", "main"}, expected: []string{"main", "feature/x"}},
		{name: "no match", patterns: []string{"hotfix/*"}, expected: nil},
		{name: "single star stays in one segment", patterns: []string{"feature/*"}, expected: []string{"feature/x"}},
		{name: "double star spans segments", patterns: []string{"feature/**"}, expected: []string{"feature/x", "feature/vep/cache"}},
		{name: "everything", patterns: []string{"**"}, expected: []string{"main", "release/110", "release/111", "feature/x", "feature/vep/cache"}},
		{name: "alternatives", patterns: []string{"{main,release/111}"}, expected: []string{"main", "release/111"}},
	}
	branches := []string{"main", "release/110", "release/111", "feature/x", "feature/vep/cache"}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			matched, matchError := githubapi.MatchBranches(branches, testCase.patterns)
			require.NoError(subTest, matchError)
			require.Equal(subTest, testCase.expected, matched)
		})
	}

	_, invalidError := githubapi.MatchBranches(branches, []string{"release/["})
	require.Error(testInstance, invalidError)
}

func TestProtectionStatusReportsEveryRepository(testInstance *testing.T) {
	api := newStubProtectionAPI()
	api.listErrors = map[string]error{"Ensembl/broken": errors.New("boom")}
	service, serviceError := githubapi.NewProtectionService(api, nil, nil)
	require.NoError(testInstance, serviceError)

	reports, statusError := service.Status(context.Background(), []githubapi.Repository{
		coreRepository,
		{Owner: "Ensembl", Name: "broken"},
		ioRepository,
	}, []string{"main", "release/*"})
	require.EqualError(testInstance, statusError, "boom")
	require.Len(testInstance, reports, 5)
	require.Equal(testInstance, "main", reports[0].Branch)
	require.True(testInstance, reports[0].Status.Protected)
	require.Equal(testInstance, "release/111", reports[2].Branch)
	require.Equal(testInstance, githubapi.ActionFailed, reports[3].Action)
	require.Equal(testInstance, ioRepository, reports[4].Repository)
	require.False(testInstance, reports[4].Status.Protected)
}

func TestProtectionEnableConfirmsOnce(testInstance *testing.T) {
	testCases := []struct {
		name              string
		options           githubapi.ProtectionOptions
		answer            bool
		expectedAction    githubapi.ProtectionAction
		expectedPrompts   int
		expectedProtected []string
	}{
		{
			name:              "confirmed",
			answer:            true,
			expectedAction:    githubapi.ActionProtected,
			expectedPrompts:   1,
			expectedProtected: []string{"Ensembl/ensembl@main", "Ensembl/ensembl-io@main"},
		},
		{
			name:            "declined",
			answer:          false,
			expectedAction:  githubapi.ActionDeclined,
			expectedPrompts: 1,
		},
		{
			name:              "assume yes",
			options:           githubapi.ProtectionOptions{ConfirmationPolicy: shared.ConfirmationPolicyFromBool(true)},
			expectedAction:    githubapi.ActionProtected,
			expectedProtected: []string{"Ensembl/ensembl@main", "Ensembl/ensembl-io@main"},
		},
		{
			name:           "dry run",
			options:        githubapi.ProtectionOptions{DryRun: true},
			expectedAction: githubapi.ActionWouldProtect,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			api := newStubProtectionAPI()
			prompter := &stubPrompter{answer: testCase.answer}
			observedCore, observedLogs := observer.New(zapcore.InfoLevel)
			service, serviceError := githubapi.NewProtectionService(api, prompter, zap.New(observedCore))
			require.NoError(subTest, serviceError)

			settings := githubapi.ProtectionSettings{RequiredApprovals: 2, StatusChecks: []string{"travis-ci"}, EnforceAdmins: true}
			reports, enableError := service.Enable(context.Background(), []githubapi.Repository{coreRepository, ioRepository}, []string{"main"}, settings, testCase.options)
			require.NoError(subTest, enableError)
			require.Len(subTest, reports, 2)
			for _, report := range reports {
				require.Equal(subTest, testCase.expectedAction, report.Action)
			}
			require.Len(subTest, prompter.prompts, testCase.expectedPrompts)
			if testCase.expectedPrompts > 0 {
				require.Equal(subTest, "Enable protection on 2 branches in 2 repositories? [y/N] ", prompter.prompts[0])
			}
			require.Equal(subTest, testCase.expectedProtected, api.protected)
			if testCase.expectedAction == githubapi.ActionProtected {
				require.Equal(subTest, 2, reports[0].Status.RequiredApprovals)
				require.Equal(subTest, 2, observedLogs.FilterMessage("branch protection updated").Len())
			}
		})
	}
}

func TestProtectionEnableAggregatesFailures(testInstance *testing.T) {
	api := newStubProtectionAPI()
	api.protectErr = errors.New("forbidden")
	service, serviceError := githubapi.NewProtectionService(api, nil, nil)
	require.NoError(testInstance, serviceError)

	reports, enableError := service.Enable(context.Background(), []githubapi.Repository{coreRepository, ioRepository}, []string{"main"}, githubapi.ProtectionSettings{}, githubapi.ProtectionOptions{ConfirmationPolicy: shared.ConfirmationPolicyFromBool(true)})
	require.Error(testInstance, enableError)
	require.Len(testInstance, reports, 2)
	for _, report := range reports {
		require.Equal(testInstance, githubapi.ActionFailed, report.Action)
		require.EqualError(testInstance, report.Err, "forbidden")
	}
}

func TestProtectionDisableReportsUnprotectedBranches(testInstance *testing.T) {
	api := newStubProtectionAPI()
	service, serviceError := githubapi.NewProtectionService(api, nil, nil)
	require.NoError(testInstance, serviceError)

	reports, disableError := service.Disable(context.Background(), []githubapi.Repository{coreRepository, ioRepository}, []string{"main", "hotfix/*"}, githubapi.ProtectionOptions{ConfirmationPolicy: shared.ConfirmationPolicyFromBool(true)})
	require.NoError(testInstance, disableError)
	require.Equal(testInstance, githubapi.ActionUnprotected, reports[0].Action)
	require.False(testInstance, reports[0].Status.Protected)
	require.Equal(testInstance, githubapi.ActionAlreadyOpen, reports[1].Action)
	require.Equal(testInstance, []string{"Ensembl/ensembl@main", "Ensembl/ensembl-io@main"}, api.unprotected)

	noMatch, noMatchError := service.Disable(context.Background(), []githubapi.Repository{ioRepository}, []string{"hotfix/*"}, githubapi.ProtectionOptions{})
	require.NoError(testInstance, noMatchError)
	require.Equal(testInstance, []githubapi.BranchReport{{Repository: ioRepository, Action: githubapi.ActionNoMatch}}, noMatch)
}

func TestPatternsOrDefault(testInstance *testing.T) {
	require.Equal(testInstance, []string{"main"}, githubapi.PatternsOrDefault([]string{" ", ""}, []string{"main"}))
	require.Equal(testInstance, []string{"release/*"}, githubapi.PatternsOrDefault([]string{" release/* "}, []string{"main"}))
}

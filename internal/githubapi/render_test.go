package githubapi_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/githubapi"
)

func disableColor(testInstance *testing.T) {
	testInstance.Helper()
	previous := color.NoColor
	color.NoColor = true
	testInstance.Cleanup(func() { color.NoColor = previous })
}

func TestRenderProtection(testInstance *testing.T) {
	disableColor(testInstance)
	rendered := githubapi.RenderProtection([]githubapi.BranchReport{
		{Repository: coreRepository, Branch: "main", Status: githubapi.ProtectionStatus{Protected: true, RequiredApprovals: 2, StatusChecks: []string{"travis-ci", "lint"}, Strict: true, EnforceAdmins: true}},
		{Repository: coreRepository, Branch: "develop", Action: githubapi.ActionWouldProtect},
		{Repository: ioRepository, Action: githubapi.ActionNoMatch},
		{Repository: githubapi.Repository{Owner: "Ensembl", Name: "broken"}, Action: githubapi.ActionFailed, Err: errors.New("boom")},
	})

	lines := strings.Split(rendered, "\n")
	require.Len(testInstance, lines, 5)
	require.Equal(testInstance, []string{"REPOSITORY", "BRANCH", "PROTECTED", "APPROVALS", "CHECKS", "ADMINS", "ACTION"}, strings.Fields(lines[0]))
	require.Equal(testInstance, []string{"Ensembl/ensembl", "main", "yes", "2", "travis-ci,lint", "(strict)", "yes", "-"}, strings.Fields(lines[1]))
	require.Equal(testInstance, []string{"Ensembl/ensembl", "develop", "no", "-", "-", "-", "would", "protect"}, strings.Fields(lines[2]))
	require.Contains(testInstance, lines[3], "no matching branch")
	require.Contains(testInstance, lines[4], "failed: boom")
}

func TestRenderPullRequests(testInstance *testing.T) {
	disableColor(testInstance)
	require.Equal(testInstance, "No open pull requests", githubapi.RenderPullRequests(githubapi.PullRequestReview{}))

	rendered := githubapi.RenderPullRequests(githubapi.PullRequestReview{
		Reports: []githubapi.PullRequestReport{{
			PullRequest: githubapi.PullRequest{Repository: coreRepository, Number: 7, Title: "Old", Author: "jdoe", Base: "main"},
			Age:         120*24*time.Hour + 5*time.Hour,
			Idle:        45 * 24 * time.Hour,
			State:       githubapi.PullRequestStale,
		}},
		Failures: []githubapi.RepositoryFailure{{Repository: ioRepository, Err: errors.New("rate limited")}},
	})
	lines := strings.Split(rendered, "\n")
	require.Len(testInstance, lines, 3)
	require.Equal(testInstance, []string{"REPOSITORY", "#", "TITLE", "AUTHOR", "BASE", "AGE", "IDLE", "STATE"}, strings.Fields(lines[0]))
	require.Equal(testInstance, []string{"Ensembl/ensembl", "7", "Old", "jdoe", "main", "120d", "45d", "stale"}, strings.Fields(lines[1]))
	require.Equal(testInstance, "Ensembl/ensembl-io: rate limited", lines[2])
}

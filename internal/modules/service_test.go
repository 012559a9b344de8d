package modules_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
	"github.com/Ensembl/ensembl-git-tools/internal/modules"
	"github.com/Ensembl/ensembl-git-tools/internal/registry"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	testWorkspaceDirectoryConstant = "/workspace"
	testModulePathConstant         = "/workspace/ensembl"
	testRemoteURLConstant          = "https://github.com/Ensembl/ensembl.git"
)

var testModule = registry.Module{Name: "ensembl", Repository: "Ensembl/ensembl", Host: "github.com", DefaultBranch: "main"}

func newService(testInstance *testing.T, executor *scriptedGitExecutor, fileSystem afero.Fs) *modules.Service {
	testInstance.Helper()
	service, serviceError := modules.NewService(modules.ServiceDependencies{
		GitExecutor: executor,
		Workspace:   modules.NewWorkspace(fileSystem, testWorkspaceDirectoryConstant),
	})
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewServiceRequiresExecutor(testInstance *testing.T) {
	_, serviceError := modules.NewService(modules.ServiceDependencies{})
	require.ErrorIs(testInstance, serviceError, modules.ErrGitExecutorNotConfigured)
}

func TestCloneBuildsCommand(testInstance *testing.T) {
	testCases := []struct {
		name      string
		options   modules.CloneOptions
		arguments []string
	}{
		{
			name:      "plain",
			options:   modules.CloneOptions{RemoteURL: testRemoteURLConstant},
			arguments: []string{"clone", testRemoteURLConstant, testModulePathConstant},
		},
		{
			name:      "branch_and_depth",
			options:   modules.CloneOptions{RemoteURL: testRemoteURLConstant, Branch: "release/110", Depth: 1},
			arguments: []string{"clone", "--depth", "1", "--branch", "release/110", testRemoteURLConstant, testModulePathConstant},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor := newScriptedGitExecutor()
			fileSystem := afero.NewMemMapFs()
			service := newService(subTest, executor, fileSystem)

			outcome, cloneError := service.Clone(context.Background(), testModule, testCase.options)
			require.NoError(subTest, cloneError)
			require.Equal(subTest, modules.OutcomeCloned, outcome.Status)
			require.Len(subTest, executor.recorded, 1)
			require.Equal(subTest, testCase.arguments, executor.recorded[0].Arguments)
			require.Equal(subTest, shared.NonInteractiveEnvironment(), executor.recorded[0].EnvironmentVariables)

			exists, existsError := afero.DirExists(fileSystem, testWorkspaceDirectoryConstant)
			require.NoError(subTest, existsError)
			require.True(subTest, exists)
		})
	}
}

func TestCloneSkipsExistingDirectory(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(testModulePathConstant, 0o755))
	service := newService(testInstance, executor, fileSystem)

	outcome, cloneError := service.Clone(context.Background(), testModule, modules.CloneOptions{RemoteURL: testRemoteURLConstant})
	require.NoError(testInstance, cloneError)
	require.Equal(testInstance, modules.OutcomeSkipped, outcome.Status)
	require.Empty(testInstance, executor.recorded)

	_, cloneError = service.Clone(context.Background(), registry.Module{Name: "ensembl-io"}, modules.CloneOptions{})
	require.ErrorIs(testInstance, cloneError, modules.ErrRemoteURLRequired)
}

func TestCloneDryRunDoesNotExecute(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	service := newService(testInstance, executor, afero.NewMemMapFs())

	outcome, cloneError := service.Clone(context.Background(), testModule, modules.CloneOptions{RemoteURL: testRemoteURLConstant, DryRun: true})
	require.NoError(testInstance, cloneError)
	require.Equal(testInstance, modules.OutcomePlanned, outcome.Status)
	require.Equal(testInstance, "git clone "+testRemoteURLConstant+" "+testModulePathConstant, outcome.Output)
	require.Empty(testInstance, executor.recorded)
}

func TestCheckoutChoosesBranchSource(testInstance *testing.T) {
	testCases := []struct {
		name             string
		localExitCode    int
		remoteExitCode   int
		create           bool
		expectedStatus   modules.OutcomeStatus
		expectedCheckout string
	}{
		{
			name:             "local_branch",
			expectedStatus:   modules.OutcomeSwitched,
			expectedCheckout: "checkout release/110",
		},
		{
			name:             "remote_branch",
			localExitCode:    1,
			expectedStatus:   modules.OutcomeTracking,
			expectedCheckout: "checkout --track -b release/110 upstream/release/110",
		},
		{
			name:             "create_new_branch",
			localExitCode:    1,
			remoteExitCode:   1,
			create:           true,
			expectedStatus:   modules.OutcomeCreated,
			expectedCheckout: "checkout -b release/110",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor := newScriptedGitExecutor()
			executor.respond(testModulePathConstant, "show-ref --verify --quiet refs/heads/release/110", scriptedResponse{exitCode: testCase.localExitCode})
			executor.respond(testModulePathConstant, "show-ref --verify --quiet refs/remotes/upstream/release/110", scriptedResponse{exitCode: testCase.remoteExitCode})
			fileSystem := afero.NewMemMapFs()
			createClone(subTest, fileSystem, testModulePathConstant)
			service := newService(subTest, executor, fileSystem)

			outcome, checkoutError := service.Checkout(context.Background(), testModule, modules.CheckoutOptions{Branch: "release/110", Remote: "upstream", Create: testCase.create})
			require.NoError(subTest, checkoutError)
			require.Equal(subTest, testCase.expectedStatus, outcome.Status)

			commands := executor.commandsIn(testModulePathConstant)
			require.Equal(subTest, "fetch --prune upstream", commands[0])
			require.Equal(subTest, testCase.expectedCheckout, commands[len(commands)-1])
		})
	}
}

func TestCheckoutMissingBranch(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	executor.respond(testModulePathConstant, "show-ref --verify --quiet refs/heads/feature", scriptedResponse{exitCode: 1})
	executor.respond(testModulePathConstant, "show-ref --verify --quiet refs/remotes/origin/feature", scriptedResponse{exitCode: 1})
	fileSystem := afero.NewMemMapFs()
	createClone(testInstance, fileSystem, testModulePathConstant)
	service := newService(testInstance, executor, fileSystem)

	_, checkoutError := service.Checkout(context.Background(), testModule, modules.CheckoutOptions{Branch: "feature"})
	require.ErrorAs(testInstance, checkoutError, new(modules.BranchNotFoundError))
	require.EqualError(testInstance, checkoutError, "branch feature not found locally or on origin; pass --create to create it")
}

func TestCheckoutDryRunSkipsFetchAndCheckout(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	fileSystem := afero.NewMemMapFs()
	createClone(testInstance, fileSystem, testModulePathConstant)
	service := newService(testInstance, executor, fileSystem)

	outcome, checkoutError := service.Checkout(context.Background(), testModule, modules.CheckoutOptions{Branch: "main", DryRun: true})
	require.NoError(testInstance, checkoutError)
	require.Equal(testInstance, modules.OutcomePlanned, outcome.Status)
	require.Equal(testInstance, "git fetch --prune origin\ngit checkout main", outcome.Output)
	require.Equal(testInstance, []string{"show-ref --verify --quiet refs/heads/main"}, executor.commandsIn(testModulePathConstant))
}

func TestPull(testInstance *testing.T) {
	testCases := []struct {
		name          string
		options       modules.PullOptions
		dirty         bool
		expectedError error
		expectedPull  string
	}{
		{
			name:         "fast_forward_only",
			options:      modules.PullOptions{},
			expectedPull: "pull --ff-only origin main",
		},
		{
			name:         "rebase",
			options:      modules.PullOptions{Remote: "upstream", Rebase: true},
			expectedPull: "pull --rebase upstream main",
		},
		{
			name:          "dirty_refused",
			options:       modules.PullOptions{},
			dirty:         true,
			expectedError: modules.ErrDirtyWorktree,
		},
		{
			name:         "dirty_allowed",
			options:      modules.PullOptions{WorktreePolicy: shared.CleanWorktreeOptional},
			dirty:        true,
			expectedPull: "pull --ff-only origin main",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor := newScriptedGitExecutor()
			executor.respond(testModulePathConstant, "rev-parse --abbrev-ref HEAD", scriptedResponse{output: "main\n"})
			if testCase.dirty {
				executor.respond(testModulePathConstant, "status --porcelain", scriptedResponse{output: " M README.md\n"})
			}
			fileSystem := afero.NewMemMapFs()
			createClone(subTest, fileSystem, testModulePathConstant)
			service := newService(subTest, executor, fileSystem)

			outcome, pullError := service.Pull(context.Background(), testModule, testCase.options)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, pullError, testCase.expectedError)
				return
			}
			require.NoError(subTest, pullError)
			require.Equal(subTest, modules.OutcomeUpdated, outcome.Status)
			commands := executor.commandsIn(testModulePathConstant)
			require.Equal(subTest, testCase.expectedPull, commands[len(commands)-1])
		})
	}
}

func TestPullRejectsDetachedHead(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	executor.respond(testModulePathConstant, "rev-parse --abbrev-ref HEAD", scriptedResponse{output: "HEAD\n"})
	fileSystem := afero.NewMemMapFs()
	createClone(testInstance, fileSystem, testModulePathConstant)
	service := newService(testInstance, executor, fileSystem)

	_, pullError := service.Pull(context.Background(), testModule, modules.PullOptions{})
	require.ErrorIs(testInstance, pullError, gitrepo.ErrDetachedHead)
}

func TestFetchAndExecSkipMissingCheckouts(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	service := newService(testInstance, executor, afero.NewMemMapFs())

	outcome, fetchError := service.Fetch(context.Background(), testModule, modules.FetchOptions{Tags: true})
	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, modules.OutcomeSkipped, outcome.Status)

	outcome, execError := service.Exec(context.Background(), testModule, modules.ExecOptions{Arguments: []string{"log"}})
	require.NoError(testInstance, execError)
	require.Equal(testInstance, modules.OutcomeSkipped, outcome.Status)
	require.Empty(testInstance, executor.recorded)
}

func TestFetchAndExec(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	executor.respond(testModulePathConstant, "log -1 --oneline", scriptedResponse{output: "abc123 Release 110\n"})
	fileSystem := afero.NewMemMapFs()
	createClone(testInstance, fileSystem, testModulePathConstant)
	service := newService(testInstance, executor, fileSystem)

	_, fetchError := service.Fetch(context.Background(), testModule, modules.FetchOptions{Remote: "upstream", Tags: true})
	require.NoError(testInstance, fetchError)

	outcome, execError := service.Exec(context.Background(), testModule, modules.ExecOptions{Arguments: []string{"log", "-1", "--oneline"}})
	require.NoError(testInstance, execError)
	require.Equal(testInstance, "abc123 Release 110", outcome.Output)
	require.Equal(testInstance, []string{"fetch --prune --tags upstream", "log -1 --oneline"}, executor.commandsIn(testModulePathConstant))

	_, execError = service.Exec(context.Background(), testModule, modules.ExecOptions{})
	require.ErrorIs(testInstance, execError, modules.ErrGitArgumentsRequired)
}

func TestStatus(testInstance *testing.T) {
	executor := newScriptedGitExecutor()
	executor.respond(testModulePathConstant, "rev-parse --abbrev-ref HEAD", scriptedResponse{output: "main\n"})
	executor.respond(testModulePathConstant, "rev-parse --abbrev-ref --symbolic-full-name @{u}", scriptedResponse{output: "origin/main\n"})
	executor.respond(testModulePathConstant, "rev-list --left-right --count HEAD...origin/main", scriptedResponse{output: "2\t5\n"})
	executor.respond(testModulePathConstant, "status --porcelain", scriptedResponse{output: "?? new.txt\n"})
	fileSystem := afero.NewMemMapFs()
	createClone(testInstance, fileSystem, testModulePathConstant)
	service := newService(testInstance, executor, fileSystem)

	report, statusError := service.Status(context.Background(), testModule)
	require.NoError(testInstance, statusError)
	require.Equal(testInstance, modules.StatusReport{
		Module:   "ensembl",
		Path:     testModulePathConstant,
		Cloned:   true,
		Branch:   "main",
		Upstream: "origin/main",
		Ahead:    2,
		Behind:   5,
		Dirty:    true,
	}, report)

	report, statusError = service.Status(context.Background(), registry.Module{Name: "ensembl-io"})
	require.NoError(testInstance, statusError)
	require.False(testInstance, report.Cloned)

	require.NoError(testInstance, fileSystem.MkdirAll("/workspace/ensembl-rest", 0o755))
	_, statusError = service.Status(context.Background(), registry.Module{Name: "ensembl-rest"})
	require.ErrorIs(testInstance, statusError, modules.ErrNotRepository)
}

func TestConfigureWritesEntries(testInstance *testing.T) {
	entries := []modules.ConfigEntry{{Key: "user.name", Value: "Ensembl Release"}, {Key: "user.email", Value: "release@ensembl.org"}}
	executor := newScriptedGitExecutor()
	fileSystem := afero.NewMemMapFs()
	createClone(testInstance, fileSystem, testModulePathConstant)
	service := newService(testInstance, executor, fileSystem)

	outcome, configureError := service.Configure(context.Background(), testModule, modules.ConfigureOptions{Entries: entries})
	require.NoError(testInstance, configureError)
	require.Equal(testInstance, modules.OutcomeConfigured, outcome.Status)
	require.Equal(testInstance, "user.name, user.email", outcome.Detail)
	require.Len(testInstance, executor.recorded, 2)
	require.Equal(testInstance, []string{"config", "user.name", "Ensembl Release"}, executor.recorded[0].Arguments)
	require.Equal(testInstance, []string{"config", "user.email", "release@ensembl.org"}, executor.recorded[1].Arguments)

	planned, planError := service.Configure(context.Background(), testModule, modules.ConfigureOptions{Entries: entries, DryRun: true})
	require.NoError(testInstance, planError)
	require.Equal(testInstance, modules.OutcomePlanned, planned.Status)
	require.Equal(testInstance, "git config user.name Ensembl Release\ngit config user.email release@ensembl.org", planned.Output)
	require.Len(testInstance, executor.recorded, 2)

	_, emptyError := service.Configure(context.Background(), testModule, modules.ConfigureOptions{})
	require.ErrorIs(testInstance, emptyError, modules.ErrConfigEntriesRequired)
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Ensembl/ensembl-git-tools/internal/mgw"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

const (
	testRegistryOverrideConstant = `{"modules": [{"name": "ensembl-newtool", "repository": "Ensembl/ensembl-newtool"}], "groups": {"new": ["ensembl-newtool", "ensembl"]}}`
	testConfigurationConstant    = "common:\n  log_level: error\n  assume_yes: true\ntools:\n  modules:\n    jobs: 8\n  github:\n    stale_days: 90\n"
)

func TestExitCode(testInstance *testing.T) {
	conflict := mgw.ConflictError{Operation: "rebase", Branch: "feature", Onto: "main", Err: errors.New("conflict")}
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "success", err: nil, expected: 0},
		{name: "failure", err: errors.New("boom"), expected: 1},
		{name: "conflict", err: conflict, expected: 2},
		{name: "wrapped conflict", err: fmt.Errorf("mgw: %w", conflict), expected: 2},
		{name: "aggregated conflict", err: multierr.Combine(errors.New("boom"), conflict), expected: 2},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, ExitCode(testCase.err))
		})
	}
}

func TestApplicationRegistersCommands(testInstance *testing.T) {
	application := NewApplication()

	registered := make(map[string]bool)
	for _, command := range application.rootCommand.Commands() {
		registered[command.Name()] = true
	}
	for _, expected := range []string{
		"list", "clone", "checkout", "pull", "fetch", "status", "exec",
		"mgw", "mpush", "rewrite-authors", "shared-user", "cvs-export", "gh-protect", "gh-prs",
	} {
		require.True(testInstance, registered[expected], expected)
	}

	for _, flagName := range []string{configFileFlagNameConstant, logLevelFlagNameConstant, logFormatFlagNameConstant, registryFlagNameConstant, flagutils.DryRunFlagName, flagutils.AssumeYesFlagName} {
		require.NotNil(testInstance, application.rootCommand.PersistentFlags().Lookup(flagName), flagName)
	}
}

func TestEmbeddedDefaultsDecode(testInstance *testing.T) {
	application := NewApplication()
	require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))

	configuration := application.configuration
	require.Equal(testInstance, "info", configuration.Common.LogLevel)
	require.Equal(testInstance, "api", configuration.Registry.DefaultGroup)
	require.Equal(testInstance, 4, configuration.Tools.Modules.Jobs)
	require.Equal(testInstance, "origin", configuration.Tools.Modules.RemoteName)
	require.Equal(testInstance, "auto", configuration.Tools.MGW.Strategy)
	require.True(testInstance, configuration.Tools.MGW.Push)
	require.Equal(testInstance, "sh", configuration.Tools.Identity.Shell)
	require.Equal(testInstance, []string{"main"}, configuration.Tools.GitHub.Branches)
	require.Equal(testInstance, 30, configuration.Tools.GitHub.StaleDays)
	require.True(testInstance, configuration.Tools.GitHub.EnforceAdmins)
}

func TestInitializeConfigurationMergesFileAndFlags(testInstance *testing.T) {
	configurationPath := filepath.Join(testInstance.TempDir(), "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(testConfigurationConstant), 0o600))

	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(configFileFlagNameConstant, configurationPath))
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(flagutils.DryRunFlagName, "true"))

	require.NoError(testInstance, application.initializeConfiguration(rootCommand))
	require.Equal(testInstance, 8, application.configuration.Tools.Modules.Jobs)
	require.Equal(testInstance, 90, application.configuration.Tools.GitHub.StaleDays)
	require.Equal(testInstance, configurationPath, application.configurationMetadata.ConfigFileUsed)

	executionFlags, available := application.commandContextAccessor.ExecutionFlags(rootCommand.Context())
	require.True(testInstance, available)
	require.True(testInstance, executionFlags.DryRun)
	require.True(testInstance, executionFlags.AssumeYes)
}

func TestResolveRegistryAppliesOverride(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, "/etc/ensembl/registry.json", []byte(testRegistryOverrideConstant), 0o644))

	application := NewApplication()
	application.fileSystem = fileSystem
	require.NoError(testInstance, application.initializeConfiguration(application.rootCommand))
	application.configuration.Registry.OverrideFile = "/missing.json"

	moduleRegistry, registryError := application.resolveRegistry()
	require.NoError(testInstance, registryError)
	_, exists := moduleRegistry.Module("ensembl-newtool")
	require.False(testInstance, exists)

	application.moduleRegistry = nil
	application.registryFilePath = "/etc/ensembl/registry.json"
	moduleRegistry, registryError = application.resolveRegistry()
	require.NoError(testInstance, registryError)
	module, exists := moduleRegistry.Module("ensembl-newtool")
	require.True(testInstance, exists)
	require.Equal(testInstance, "Ensembl/ensembl-newtool", module.Repository)
	group, groupExists := moduleRegistry.Group("new")
	require.True(testInstance, groupExists)
	require.Equal(testInstance, []string{"ensembl-newtool", "ensembl"}, group.Members)

	application.moduleRegistry = nil
	application.registryFilePath = "/missing.json"
	_, missingError := application.resolveRegistry()
	require.Error(testInstance, missingError)
}

func TestApplicationListsOverriddenGroup(testInstance *testing.T) {
	registryPath := filepath.Join(testInstance.TempDir(), "registry.json")
	require.NoError(testInstance, os.WriteFile(registryPath, []byte(testRegistryOverrideConstant), 0o600))

	application := NewApplication()
	output := &bytes.Buffer{}
	application.rootCommand.SetOut(output)
	application.rootCommand.SetArgs([]string{"list", "new", "--registry", registryPath, "--log-level", "error"})

	require.NoError(testInstance, application.Execute())
	require.Contains(testInstance, output.String(), "Ensembl/ensembl-newtool")
	require.Contains(testInstance, output.String(), "https://github.com/Ensembl/ensembl.git")
}

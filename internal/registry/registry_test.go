package registry_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/gitrepo"
	"github.com/Ensembl/ensembl-git-tools/internal/registry"
)

func moduleNames(modules []registry.Module) []string {
	names := make([]string, 0, len(modules))
	for _, module := range modules {
		names = append(names, module.Name)
	}
	return names
}

func newRegistry(testInstance *testing.T, configuration registry.Configuration) *registry.Registry {
	testInstance.Helper()
	moduleRegistry, creationError := registry.New(configuration)
	require.NoError(testInstance, creationError)
	return moduleRegistry
}

func TestResolveExpandsGroupsInOrderWithoutDuplicates(testInstance *testing.T) {
	moduleRegistry := newRegistry(testInstance, registry.Configuration{})

	testCases := []struct {
		name     string
		targets  []string
		expected []string
	}{
		{
			name:     "default_group",
			targets:  nil,
			expected: []string{"ensembl", "ensembl-compara", "ensembl-variation", "ensembl-funcgen", "ensembl-io"},
		},
		{
			name:     "nested_group",
			targets:  []string{"rest"},
			expected: []string{"ensembl", "ensembl-compara", "ensembl-variation", "ensembl-funcgen", "ensembl-io", "ensembl-rest"},
		},
		{
			name:     "overlapping_targets",
			targets:  []string{"ensembl-hive", "compara", " ensembl "},
			expected: []string{"ensembl-hive", "ensembl", "ensembl-compara", "ensembl-test"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			modules, resolveError := moduleRegistry.Resolve(testCase.targets)
			require.NoError(subTest, resolveError)
			require.Equal(subTest, testCase.expected, moduleNames(modules))
		})
	}
}

func TestResolveReportsAllUnknownTargets(testInstance *testing.T) {
	moduleRegistry := newRegistry(testInstance, registry.Configuration{})

	_, resolveError := moduleRegistry.Resolve([]string{"ensembl", "ensembl-unknown", "api", "nope", "nope"})
	var unknownError registry.UnknownTargetError
	require.ErrorAs(testInstance, resolveError, &unknownError)
	require.Equal(testInstance, []string{"ensembl-unknown", "nope"}, unknownError.Names)
	require.EqualError(testInstance, resolveError, "unknown module or group: ensembl-unknown, nope")
}

func TestResolveDetectsGroupCycles(testInstance *testing.T) {
	moduleRegistry := newRegistry(testInstance, registry.Configuration{
		Groups: map[string][]string{
			"first":  {"ensembl", "second"},
			"second": {"first"},
		},
	})

	_, resolveError := moduleRegistry.Resolve([]string{"first"})
	var cycleError registry.GroupCycleError
	require.ErrorAs(testInstance, resolveError, &cycleError)
	require.Equal(testInstance, []string{"first", "second", "first"}, cycleError.Path)
}

func TestConfigurationModulesAreNormalized(testInstance *testing.T) {
	moduleRegistry := newRegistry(testInstance, registry.Configuration{
		DefaultBranch: "release/110",
		Modules: []registry.Module{
			{Name: "ensembl-vep", RemoteURL: "git@github.com:Ensembl/ensembl-vep.git"},
			{Name: "ensembl", Repository: "Ensembl/ensembl", Host: "github.example.org", DefaultBranch: "master"},
		},
	})

	vep, exists := moduleRegistry.Module("ensembl-vep")
	require.True(testInstance, exists)
	require.Equal(testInstance, registry.Module{
		Name:          "ensembl-vep",
		Repository:    "Ensembl/ensembl-vep",
		Host:          "github.com",
		RemoteURL:     "git@github.com:Ensembl/ensembl-vep.git",
		DefaultBranch: "release/110",
	}, vep)

	core, exists := moduleRegistry.Module("ensembl")
	require.True(testInstance, exists)
	require.Equal(testInstance, "github.example.org", core.Host)
	require.Equal(testInstance, "master", core.DefaultBranch)
}

func TestInvalidModulesAreRejected(testInstance *testing.T) {
	_, creationError := registry.New(registry.Configuration{Modules: []registry.Module{{Name: "orphan"}}})
	require.ErrorAs(testInstance, creationError, new(registry.InvalidModuleError))

	_, creationError = registry.New(registry.Configuration{Modules: []registry.Module{{Repository: "Ensembl/x"}}})
	require.ErrorAs(testInstance, creationError, new(registry.InvalidModuleError))
}

func TestRemoteURL(testInstance *testing.T) {
	moduleRegistry := newRegistry(testInstance, registry.Configuration{DefaultProtocol: "SSH"})
	module, exists := moduleRegistry.Module("ensembl-compara")
	require.True(testInstance, exists)

	defaultURL, urlError := moduleRegistry.RemoteURL(module, "")
	require.NoError(testInstance, urlError)
	require.Equal(testInstance, "git@github.com:Ensembl/ensembl-compara.git", defaultURL)

	httpsURL, urlError := moduleRegistry.RemoteURL(module, gitrepo.RemoteProtocolHTTPS)
	require.NoError(testInstance, urlError)
	require.Equal(testInstance, "https://github.com/Ensembl/ensembl-compara.git", httpsURL)

	module.RemoteURL = "https://mirror.example.org/ensembl-compara.git"
	explicitURL, urlError := moduleRegistry.RemoteURL(module, gitrepo.RemoteProtocolSSH)
	require.NoError(testInstance, urlError)
	require.Equal(testInstance, module.RemoteURL, explicitURL)
}

func TestModulesAndGroupsAreSorted(testInstance *testing.T) {
	moduleRegistry := newRegistry(testInstance, registry.Configuration{})

	modules := moduleRegistry.Modules()
	require.Equal(testInstance, "ensembl", modules[0].Name)
	require.Equal(testInstance, "public-plugins", modules[len(modules)-1].Name)

	groups := moduleRegistry.Groups()
	groupNames := make([]string, 0, len(groups))
	for _, group := range groups {
		groupNames = append(groupNames, group.Name)
	}
	require.Equal(testInstance, []string{"api", "compara", "funcgen", "production", "rest", "tools", "variation", "web"}, groupNames)
}

func TestLoadOverrideAcceptsJSON(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	const overridePath = "/home/release/.git-ensembl.json"
	require.NoError(testInstance, afero.WriteFile(fileSystem, overridePath, []byte(`{
  "default_group": "mine",
  "modules": [{"name": "ensembl-genomio", "repository": "Ensembl/ensembl-genomio", "default_branch": "develop"}],
  "groups": {"mine": ["ensembl-genomio", "api"], "api": ["ensembl"]}
}`), 0o644))

	override, loadError := registry.LoadOverride(fileSystem, overridePath, true)
	require.NoError(testInstance, loadError)

	moduleRegistry := newRegistry(testInstance, registry.Configuration{})
	require.NoError(testInstance, moduleRegistry.ApplyOverride(override))
	require.Equal(testInstance, "mine", moduleRegistry.DefaultGroup())

	modules, resolveError := moduleRegistry.Resolve(nil)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, []string{"ensembl-genomio", "ensembl"}, moduleNames(modules))
	require.Equal(testInstance, "develop", modules[0].DefaultBranch)
}

func TestLoadOverrideMissingFile(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()

	override, loadError := registry.LoadOverride(fileSystem, "/missing.json", false)
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, override.Modules)

	_, loadError = registry.LoadOverride(fileSystem, "/missing.json", true)
	require.Error(testInstance, loadError)

	require.NoError(testInstance, afero.WriteFile(fileSystem, "/broken.json", []byte("{modules: ["), 0o644))
	_, loadError = registry.LoadOverride(fileSystem, "/broken.json", false)
	require.Error(testInstance, loadError)
}

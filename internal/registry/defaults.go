package registry

const (
	defaultGroupNameConstant    = "api"
	defaultHostConstant         = "github.com"
	defaultBranchConstant       = "main"
	defaultOverrideFileConstant = "~/.git-ensembl.json"
	ensemblOrganizationConstant = "Ensembl"
)

var builtinModuleNames = []string{
	"ensembl",
	"ensembl-analysis",
	"ensembl-compara",
	"ensembl-funcgen",
	"ensembl-hive",
	"ensembl-io",
	"ensembl-metadata",
	"ensembl-orm",
	"ensembl-production",
	"ensembl-rest",
	"ensembl-taxonomy",
	"ensembl-test",
	"ensembl-tools",
	"ensembl-variation",
	"ensembl-webcode",
	"public-plugins",
}

var builtinGroups = map[string][]string{
	"api":        {"ensembl", "ensembl-compara", "ensembl-variation", "ensembl-funcgen", "ensembl-io"},
	"tools":      {"api", "ensembl-tools"},
	"production": {"api", "ensembl-production", "ensembl-hive", "ensembl-metadata", "ensembl-taxonomy", "ensembl-orm"},
	"rest":       {"api", "ensembl-rest"},
	"compara":    {"ensembl", "ensembl-compara", "ensembl-hive", "ensembl-test"},
	"variation":  {"ensembl", "ensembl-variation", "ensembl-io", "ensembl-test"},
	"funcgen":    {"ensembl", "ensembl-funcgen", "ensembl-hive", "ensembl-test"},
	"web":        {"api", "ensembl-webcode", "public-plugins", "ensembl-orm"},
}

func builtinModules() []Module {
	modules := make([]Module, 0, len(builtinModuleNames))
	for _, moduleName := range builtinModuleNames {
		modules = append(modules, Module{Name: moduleName, Repository: ensemblOrganizationConstant + "/" + moduleName})
	}
	return modules
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/cvsexport"
	"github.com/Ensembl/ensembl-git-tools/internal/dependencies"
	"github.com/Ensembl/ensembl-git-tools/internal/githubapi"
	"github.com/Ensembl/ensembl-git-tools/internal/identity"
	"github.com/Ensembl/ensembl-git-tools/internal/mgw"
	"github.com/Ensembl/ensembl-git-tools/internal/modules"
	"github.com/Ensembl/ensembl-git-tools/internal/registry"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
	"github.com/Ensembl/ensembl-git-tools/internal/utils"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

const (
	applicationNameConstant                 = "git-ensembl"
	applicationShortDescriptionConstant     = "Multi-repository git and GitHub tooling for Ensembl"
	applicationLongDescriptionConstant      = "git-ensembl clones and synchronises groups of Ensembl repositories, runs the Minimal Git Workflow, rewrites authorship, exports history to CVS and manages GitHub branch protection and pull requests."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	registryFlagNameConstant                = "registry"
	registryFlagUsageConstant               = "Registry override file (YAML or JSON) adding or replacing modules and groups."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "GITENSEMBL"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	registryLoadedMessageConstant           = "module registry loaded"
	registryOverrideFieldConstant           = "override_file"
	registryModuleCountFieldConstant        = "modules"
	defaultConfigurationSearchPathConstant  = "."
	developmentVersionConstant              = "(devel)"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common   ApplicationCommonConfiguration `mapstructure:"common"`
	Registry registry.Configuration         `mapstructure:"registry"`
	Tools    ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores settings shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	DryRun    bool   `mapstructure:"dry_run"`
	AssumeYes bool   `mapstructure:"assume_yes"`
}

// ApplicationToolsConfiguration holds configuration for CLI subcommands grouped by tool family.
type ApplicationToolsConfiguration struct {
	Modules  modules.CommandConfiguration   `mapstructure:"modules"`
	MGW      mgw.CommandConfiguration       `mapstructure:"mgw"`
	Identity identity.CommandConfiguration  `mapstructure:"identity"`
	CVS      cvsexport.CommandConfiguration `mapstructure:"cvs"`
	GitHub   githubapi.CommandConfiguration `mapstructure:"github"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	registryFilePath       string
	fileSystem             afero.Fs
	moduleRegistry         *registry.Registry
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		fileSystem:             afero.NewOsFs(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       resolveVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.registryFilePath, registryFlagNameConstant, "", registryFlagUsageConstant)
	flagutils.BindExecutionFlags(cobraCommand, flagutils.ExecutionDefaults{}, flagutils.DefaultExecutionFlagDefinitions())

	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	modulesBuilder := modules.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() modules.CommandConfiguration {
			return application.configuration.Tools.Modules
		},
		RegistryProvider: application.resolveRegistry,
		FileSystem:       application.fileSystem,
	}
	cobraCommand.AddCommand(modulesBuilder.BuildCommands()...)

	mgwBuilder := mgw.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() mgw.CommandConfiguration {
			return application.configuration.Tools.MGW
		},
	}
	cobraCommand.AddCommand(mgwBuilder.BuildMGW(), mgwBuilder.BuildMPush())

	identityBuilder := identity.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() identity.CommandConfiguration {
			return application.configuration.Tools.Identity
		},
		ModulesConfigurationProvider: func() modules.CommandConfiguration {
			return application.configuration.Tools.Modules
		},
		RegistryProvider:  application.resolveRegistry,
		FileSystem:        application.fileSystem,
		EnvironmentLookup: os.LookupEnv,
	}
	cobraCommand.AddCommand(identityBuilder.BuildCommands()...)

	cvsBuilder := cvsexport.CommandBuilder{
		LoggerProvider:               loggerProvider,
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() cvsexport.CommandConfiguration {
			return application.configuration.Tools.CVS
		},
		FileSystem: application.fileSystem,
	}
	cobraCommand.AddCommand(cvsBuilder.Build())

	githubBuilder := githubapi.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() githubapi.CommandConfiguration {
			return application.configuration.Tools.GitHub
		},
		RegistryProvider:  application.resolveRegistry,
		EnvironmentLookup: os.LookupEnv,
		Clock:             shared.SystemClock{},
	}
	cobraCommand.AddCommand(githubBuilder.BuildCommands()...)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration
	application.moduleRegistry = nil

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithExecutionFlags(updatedContext, application.resolveExecutionFlags(command))
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

// resolveExecutionFlags combines the global flags with common.dry_run and common.assume_yes.
// Flags given on the command line win over configured values.
func (application *Application) resolveExecutionFlags(command *cobra.Command) utils.ExecutionFlags {
	executionFlags, _ := flagutils.ReadExecutionFlags(command)
	if !executionFlags.DryRunSet && application.configuration.Common.DryRun {
		executionFlags.DryRun = true
		executionFlags.DryRunSet = true
	}
	if !executionFlags.AssumeYesSet && application.configuration.Common.AssumeYes {
		executionFlags.AssumeYes = true
		executionFlags.AssumeYesSet = true
	}
	return executionFlags
}

// resolveRegistry builds the module registry once per invocation. An override file named
// with --registry must exist; the configured registry.override_file is optional.
func (application *Application) resolveRegistry() (*registry.Registry, error) {
	if application.moduleRegistry != nil {
		return application.moduleRegistry, nil
	}

	moduleRegistry, registryError := registry.New(application.configuration.Registry)
	if registryError != nil {
		return nil, registryError
	}

	overridePath := application.configuration.Registry.OverrideFile
	required := false
	if trimmedFlag := strings.TrimSpace(application.registryFilePath); len(trimmedFlag) > 0 {
		overridePath = trimmedFlag
		required = true
	}
	overridePath = dependencies.ExpandPath(overridePath)

	override, overrideError := registry.LoadOverride(application.fileSystem, overridePath, required)
	if overrideError != nil {
		return nil, overrideError
	}
	if applyError := moduleRegistry.ApplyOverride(override); applyError != nil {
		return nil, applyError
	}

	application.logger.Debug(
		registryLoadedMessageConstant,
		zap.String(registryOverrideFieldConstant, overridePath),
		zap.Int(registryModuleCountFieldConstant, len(moduleRegistry.Modules())),
	)
	application.moduleRegistry = moduleRegistry
	return moduleRegistry, nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

func resolveVersion() string {
	buildInfo, available := debug.ReadBuildInfo()
	if !available || len(buildInfo.Main.Version) == 0 {
		return developmentVersionConstant
	}
	return buildInfo.Main.Version
}

package flags

import "github.com/spf13/cobra"

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Print the git commands and API calls without executing mutating ones"
	// AssumeYesFlagName exposes the shared assume-yes flag name.
	AssumeYesFlagName = "yes"
	// AssumeYesFlagShorthand provides the shorthand for the assume-yes flag.
	AssumeYesFlagShorthand = "y"
	// AssumeYesFlagUsage describes the shared assume-yes flag purpose.
	AssumeYesFlagUsage = "Automatically confirm prompts"
	// RemoteFlagName exposes the shared remote flag name.
	RemoteFlagName = "remote"
	// RemoteFlagUsage describes the shared remote flag purpose.
	RemoteFlagUsage = "Remote name to target"
	// DirectoryFlagName exposes the shared module directory flag name.
	DirectoryFlagName = "directory"
	// DirectoryFlagUsage describes the module directory flag purpose.
	DirectoryFlagUsage = "Directory containing one checkout per module"
	// JobsFlagName exposes the shared concurrency flag name.
	JobsFlagName = "jobs"
	// JobsFlagShorthand provides the shorthand for the concurrency flag.
	JobsFlagShorthand = "j"
	// JobsFlagUsage describes the concurrency flag purpose.
	JobsFlagUsage = "Number of modules processed in parallel"
)

// ModuleSelectionValues stores the workspace flags shared by multi-module commands.
type ModuleSelectionValues struct {
	Directory string
	Jobs      int
}

// BindModuleSelectionFlags attaches the --directory and --jobs flags to the provided command.
func BindModuleSelectionFlags(command *cobra.Command, defaults ModuleSelectionValues) *ModuleSelectionValues {
	values := defaults
	if command == nil {
		return &values
	}

	flagSet := command.Flags()
	if flagSet.Lookup(DirectoryFlagName) == nil {
		flagSet.StringVar(&values.Directory, DirectoryFlagName, defaults.Directory, DirectoryFlagUsage)
	}
	if flagSet.Lookup(JobsFlagName) == nil {
		flagSet.IntVarP(&values.Jobs, JobsFlagName, JobsFlagShorthand, defaults.Jobs, JobsFlagUsage)
	}
	return &values
}

// EnsureRemoteFlag guarantees the shared remote flag is available on the command.
func EnsureRemoteFlag(command *cobra.Command, defaultValue string, usage string) {
	if command == nil {
		return
	}
	if len(usage) == 0 {
		usage = RemoteFlagUsage
	}

	persistentSet := command.PersistentFlags()
	if persistentSet.Lookup(RemoteFlagName) == nil {
		persistentSet.String(RemoteFlagName, defaultValue, usage)
	}

	if command.Flags().Lookup(RemoteFlagName) == nil {
		if remoteFlag := persistentSet.Lookup(RemoteFlagName); remoteFlag != nil {
			command.Flags().AddFlag(remoteFlag)
		}
	}
}

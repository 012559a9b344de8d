// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Ensembl/ensembl-git-tools/internal/utils"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun    bool
	AssumeYes bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun    ExecutionFlagDefinition
	AssumeYes ExecutionFlagDefinition
}

// DefaultExecutionFlagDefinitions enables the shared dry-run and assume-yes flags.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		DryRun:    ExecutionFlagDefinition{Name: DryRunFlagName, Usage: DryRunFlagUsage, Enabled: true},
		AssumeYes: ExecutionFlagDefinition{Name: AssumeYesFlagName, Usage: AssumeYesFlagUsage, Shorthand: AssumeYesFlagShorthand, Enabled: true},
	}
}

// BindExecutionFlags attaches standardized execution flags to the provided command using persistent scope.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	persistentFlagSet := command.PersistentFlags()
	bindBoolFlag(persistentFlagSet, definitions.DryRun, defaults.DryRun)
	bindBoolFlag(persistentFlagSet, definitions.AssumeYes, defaults.AssumeYes)
}

// ResolveExecutionFlags returns the execution flags for the running command. Flags
// stored in the command context take precedence over values read from the flag sets.
func ResolveExecutionFlags(command *cobra.Command) (utils.ExecutionFlags, bool) {
	if command == nil {
		return utils.ExecutionFlags{}, false
	}

	if contextFlags, available := utils.NewCommandContextAccessor().ExecutionFlags(command.Context()); available {
		return contextFlags, true
	}
	return ReadExecutionFlags(command)
}

// ReadExecutionFlags reads the dry-run, assume-yes and remote flags visible to the command.
func ReadExecutionFlags(command *cobra.Command) (utils.ExecutionFlags, bool) {
	if command == nil {
		return utils.ExecutionFlags{}, false
	}

	resolved := utils.ExecutionFlags{}
	found := false
	if dryRunFlag := lookupFlag(command, DryRunFlagName); dryRunFlag != nil {
		resolved.DryRun = strings.EqualFold(dryRunFlag.Value.String(), "true")
		resolved.DryRunSet = dryRunFlag.Changed
		found = true
	}
	if assumeYesFlag := lookupFlag(command, AssumeYesFlagName); assumeYesFlag != nil {
		resolved.AssumeYes = strings.EqualFold(assumeYesFlag.Value.String(), "true")
		resolved.AssumeYesSet = assumeYesFlag.Changed
		found = true
	}
	if remoteFlag := lookupFlag(command, RemoteFlagName); remoteFlag != nil {
		resolved.Remote = strings.TrimSpace(remoteFlag.Value.String())
		resolved.RemoteSet = remoteFlag.Changed
		found = true
	}
	return resolved, found
}

func lookupFlag(command *cobra.Command, flagName string) *pflag.Flag {
	flagSets := []*pflag.FlagSet{command.Flags(), command.PersistentFlags(), command.InheritedFlags()}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSets = append(flagSets, rootCommand.PersistentFlags())
	}
	for _, flagSet := range flagSets {
		if flagSet == nil {
			continue
		}
		if flag := flagSet.Lookup(flagName); flag != nil {
			return flag
		}
	}
	return nil
}

func bindBoolFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil || !definition.Enabled || len(definition.Name) == 0 {
		return
	}
	if flagSet.Lookup(definition.Name) != nil {
		return
	}

	if len(definition.Shorthand) > 0 {
		flagSet.BoolP(definition.Name, definition.Shorthand, defaultValue, definition.Usage)
		return
	}
	flagSet.Bool(definition.Name, defaultValue, definition.Usage)
}

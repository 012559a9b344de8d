package githubapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/dependencies"
	"github.com/Ensembl/ensembl-git-tools/internal/githubauth"
	"github.com/Ensembl/ensembl-git-tools/internal/registry"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

const (
	protectUseConstant            = "gh-protect"
	protectShortConstant          = "Report or change GitHub branch protection"
	protectLongConstant           = "gh-protect inspects and changes branch protection for registry modules, owner/name repositories or every repository of an organization. Branch patterns are globs matched against the repository branches."
	protectStatusUseConstant      = "status [targets...]"
	protectStatusShortConstant    = "Show the protection of matching branches"
	protectEnableUseConstant      = "enable [targets...]"
	protectEnableShortConstant    = "Require reviews and status checks on matching branches"
	protectEnableExampleConstant  = "git-ensembl gh-protect enable api --branch main --branch 'release/*' --approvals 2 --check travis-ci"
	protectDisableUseConstant     = "disable [targets...]"
	protectDisableShortConstant   = "Remove protection from matching branches"
	pullsUseConstant              = "gh-prs [targets...]"
	pullsShortConstant            = "List open pull requests and close stale ones"
	pullsLongConstant             = "gh-prs lists open pull requests with their age and marks those without activity for --stale-days as stale. --close-stale comments on and closes stale pull requests after confirmation."
	pullsExampleConstant          = "git-ensembl gh-prs api --base main --stale-days 90 --close-stale"
	branchFlagNameConstant        = "branch"
	branchFlagShorthandConstant   = "b"
	branchFlagUsageConstant       = "Branch glob pattern, * within one path segment and ** across segments (repeatable)"
	organizationFlagNameConstant  = "org"
	organizationFlagUsageConstant = "Include every repository of the GitHub organization"
	approvalsFlagNameConstant     = "approvals"
	approvalsFlagUsageConstant    = "Required approving reviews (0 disables review requirements)"
	checkFlagNameConstant         = "check"
	checkFlagUsageConstant        = "Required status check context (repeatable)"
	strictFlagNameConstant        = "strict"
	strictFlagUsageConstant       = "Require branches to be up to date before merging"
	dismissStaleFlagNameConstant  = "dismiss-stale"
	dismissStaleFlagUsageConstant = "Dismiss approvals when new commits are pushed"
	adminsFlagNameConstant        = "enforce-admins"
	adminsFlagUsageConstant       = "Apply the rules to repository administrators"
	baseFlagNameConstant          = "base"
	baseFlagUsageConstant         = "Only pull requests targeting this branch"
	staleDaysFlagNameConstant     = "stale-days"
	staleDaysFlagUsageConstant    = "Days without activity after which a pull request is stale"
	closeStaleFlagNameConstant    = "close-stale"
	closeStaleFlagUsageConstant   = "Comment on and close stale pull requests"
	commentFlagNameConstant       = "comment"
	commentFlagUsageConstant      = "Comment posted before closing (%d is replaced by --stale-days)"
	staleDaysPlaceholderConstant  = "%d"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles gh-protect and gh-prs.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	Prompter              shared.ConfirmationPrompter
	ConfigurationProvider func() CommandConfiguration
	RegistryProvider      func() (*registry.Registry, error)
	HTTPClient            *http.Client
	EnvironmentLookup     githubauth.EnvironmentLookup
	Clock                 shared.Clock
}

// BuildCommands constructs gh-protect and gh-prs.
func (builder *CommandBuilder) BuildCommands() []*cobra.Command {
	return []*cobra.Command{builder.BuildProtect(), builder.BuildPulls()}
}

// BuildProtect constructs gh-protect with its status, enable and disable subcommands.
func (builder *CommandBuilder) BuildProtect() *cobra.Command {
	command := &cobra.Command{
		Use:   protectUseConstant,
		Short: protectShortConstant,
		Long:  protectLongConstant,
	}
	command.AddCommand(builder.buildProtectStatus(), builder.buildProtectEnable(), builder.buildProtectDisable())
	return command
}

func (builder *CommandBuilder) buildProtectStatus() *cobra.Command {
	command := &cobra.Command{
		Use:   protectStatusUseConstant,
		Short: protectStatusShortConstant,
		Args:  cobra.ArbitraryArgs,
	}
	bindTargetFlags(command)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments)
		if prepareError != nil {
			return prepareError
		}
		reports, statusError := run.protection.Status(command.Context(), run.repositories, run.patterns)
		fmt.Fprintln(command.OutOrStdout(), RenderProtection(reports))
		return statusError
	}
	return command
}

func (builder *CommandBuilder) buildProtectEnable() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:     protectEnableUseConstant,
		Short:   protectEnableShortConstant,
		Example: protectEnableExampleConstant,
		Args:    cobra.ArbitraryArgs,
	}
	bindTargetFlags(command)
	command.Flags().Int(approvalsFlagNameConstant, defaults.Approvals, approvalsFlagUsageConstant)
	command.Flags().StringSlice(checkFlagNameConstant, nil, checkFlagUsageConstant)
	strict := command.Flags().Bool(strictFlagNameConstant, false, strictFlagUsageConstant)
	dismissStale := command.Flags().Bool(dismissStaleFlagNameConstant, false, dismissStaleFlagUsageConstant)
	command.Flags().Bool(adminsFlagNameConstant, defaults.EnforceAdmins, adminsFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments)
		if prepareError != nil {
			return prepareError
		}
		settings := ProtectionSettings{
			RequiredApprovals: run.configuration.Approvals,
			DismissStale:      *dismissStale,
			StatusChecks:      run.configuration.StatusChecks,
			Strict:            *strict,
			EnforceAdmins:     run.configuration.EnforceAdmins,
		}
		if command.Flags().Changed(approvalsFlagNameConstant) {
			settings.RequiredApprovals, _ = command.Flags().GetInt(approvalsFlagNameConstant)
		}
		if command.Flags().Changed(checkFlagNameConstant) {
			checks, _ := command.Flags().GetStringSlice(checkFlagNameConstant)
			settings.StatusChecks = trimValues(checks)
		}
		if command.Flags().Changed(adminsFlagNameConstant) {
			settings.EnforceAdmins, _ = command.Flags().GetBool(adminsFlagNameConstant)
		}

		reports, enableError := run.protection.Enable(command.Context(), run.repositories, run.patterns, settings, run.protectionOptions())
		fmt.Fprintln(command.OutOrStdout(), RenderProtection(reports))
		return enableError
	}
	return command
}

func (builder *CommandBuilder) buildProtectDisable() *cobra.Command {
	command := &cobra.Command{
		Use:   protectDisableUseConstant,
		Short: protectDisableShortConstant,
		Args:  cobra.ArbitraryArgs,
	}
	bindTargetFlags(command)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments)
		if prepareError != nil {
			return prepareError
		}
		reports, disableError := run.protection.Disable(command.Context(), run.repositories, run.patterns, run.protectionOptions())
		fmt.Fprintln(command.OutOrStdout(), RenderProtection(reports))
		return disableError
	}
	return command
}

// BuildPulls constructs the gh-prs command.
func (builder *CommandBuilder) BuildPulls() *cobra.Command {
	defaults := DefaultCommandConfiguration()
	command := &cobra.Command{
		Use:     pullsUseConstant,
		Short:   pullsShortConstant,
		Long:    pullsLongConstant,
		Example: pullsExampleConstant,
		Args:    cobra.ArbitraryArgs,
	}
	command.Flags().String(organizationFlagNameConstant, "", organizationFlagUsageConstant)
	base := command.Flags().String(baseFlagNameConstant, "", baseFlagUsageConstant)
	command.Flags().Int(staleDaysFlagNameConstant, defaults.StaleDays, staleDaysFlagUsageConstant)
	closeStale := command.Flags().Bool(closeStaleFlagNameConstant, false, closeStaleFlagUsageConstant)
	command.Flags().String(commentFlagNameConstant, "", commentFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		run, prepareError := builder.prepare(command, arguments)
		if prepareError != nil {
			return prepareError
		}
		staleDays := run.configuration.StaleDays
		if command.Flags().Changed(staleDaysFlagNameConstant) {
			staleDays, _ = command.Flags().GetInt(staleDaysFlagNameConstant)
		}
		comment := run.configuration.CloseComment
		if command.Flags().Changed(commentFlagNameConstant) {
			comment, _ = command.Flags().GetString(commentFlagNameConstant)
		}
		comment = strings.ReplaceAll(comment, staleDaysPlaceholderConstant, strconv.Itoa(staleDays))

		service, serviceError := NewPullRequestService(run.client, run.prompter, builder.Clock, run.logger)
		if serviceError != nil {
			return serviceError
		}
		review, reviewError := service.Review(command.Context(), run.repositories, ReviewOptions{
			Base:               strings.TrimSpace(*base),
			StaleDays:          staleDays,
			CloseStale:         *closeStale,
			Comment:            comment,
			DryRun:             run.dryRun,
			ConfirmationPolicy: shared.ConfirmationPolicyFromBool(run.assumeYes),
		})
		fmt.Fprintln(command.OutOrStdout(), RenderPullRequests(review))
		return reviewError
	}
	return command
}

type githubRun struct {
	configuration CommandConfiguration
	client        *Client
	protection    *ProtectionService
	prompter      shared.ConfirmationPrompter
	logger        *zap.Logger
	repositories  []Repository
	patterns      []string
	dryRun        bool
	assumeYes     bool
}

func (run *githubRun) protectionOptions() ProtectionOptions {
	return ProtectionOptions{DryRun: run.dryRun, ConfirmationPolicy: shared.ConfirmationPolicyFromBool(run.assumeYes)}
}

func bindTargetFlags(command *cobra.Command) {
	command.Flags().StringSliceP(branchFlagNameConstant, branchFlagShorthandConstant, nil, branchFlagUsageConstant)
	command.Flags().String(organizationFlagNameConstant, "", organizationFlagUsageConstant)
}

func (builder *CommandBuilder) prepare(command *cobra.Command, targets []string) (*githubRun, error) {
	configuration := builder.resolveConfiguration()
	run := &githubRun{configuration: configuration, logger: builder.resolveLogger()}
	if executionFlags, available := flagutils.ResolveExecutionFlags(command); available {
		run.dryRun = executionFlags.DryRunSet && executionFlags.DryRun
		run.assumeYes = executionFlags.AssumeYesSet && executionFlags.AssumeYes
	}

	clientOptions := ClientOptions{BaseURL: configuration.APIURL, HTTPClient: builder.HTTPClient}
	if token, found := githubauth.NewResolver(builder.EnvironmentLookup).Resolve(configuration.Token); found {
		clientOptions.Token = &token
	}
	client, clientError := NewClient(command.Context(), clientOptions)
	if clientError != nil {
		return nil, clientError
	}
	run.client = client

	organization := configuration.Organization
	if command.Flags().Changed(organizationFlagNameConstant) {
		organization, _ = command.Flags().GetString(organizationFlagNameConstant)
	}
	var moduleRegistry *registry.Registry
	if builder.RegistryProvider != nil {
		resolvedRegistry, registryError := builder.RegistryProvider()
		if registryError != nil {
			return nil, registryError
		}
		moduleRegistry = resolvedRegistry
	}
	repositories, resolveError := ResolveRepositories(command.Context(), client, moduleRegistry, targets, organization)
	if resolveError != nil {
		return nil, resolveError
	}
	run.repositories = repositories

	var patterns []string
	if branchFlag := command.Flags().Lookup(branchFlagNameConstant); branchFlag != nil && branchFlag.Changed {
		patterns, _ = command.Flags().GetStringSlice(branchFlagNameConstant)
	}
	run.patterns = PatternsOrDefault(patterns, configuration.Branches)

	run.prompter = dependencies.ResolvePrompter(builder.Prompter, command.InOrStdin(), command.OutOrStdout())
	protection, protectionError := NewProtectionService(client, run.prompter, run.logger)
	if protectionError != nil {
		return nil, protectionError
	}
	run.protection = protection
	return run, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

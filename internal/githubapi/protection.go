package githubapi

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	enablePromptTemplateConstant   = "Enable protection on %d branches in %d repositories? [y/N] "
	disablePromptTemplateConstant  = "Remove protection from %d branches in %d repositories? [y/N] "
	invalidPatternTemplateConstant = "invalid branch pattern %q: %w"
	protectionLogMessageConstant   = "branch protection updated"
	protectionPlannedLogMessage    = "branch protection change planned"
	logFieldRepositoryConstant     = "repository"
	logFieldBranchConstant         = "branch"
	logFieldActionConstant         = "action"
	branchSegmentSeparatorConstant = '/'
)

// ProtectionAction describes what happened to a branch.
type ProtectionAction string

// Protection actions reported by ProtectionService.
const (
	ActionNone           ProtectionAction = ""
	ActionNoMatch        ProtectionAction = "no matching branch"
	ActionProtected      ProtectionAction = "protected"
	ActionUnprotected    ProtectionAction = "unprotected"
	ActionAlreadyOpen    ProtectionAction = "not protected"
	ActionWouldProtect   ProtectionAction = "would protect"
	ActionWouldUnprotect ProtectionAction = "would unprotect"
	ActionDeclined       ProtectionAction = "declined"
	ActionFailed         ProtectionAction = "failed"
)

// ProtectionAPI is the subset of Client used by ProtectionService.
type ProtectionAPI interface {
	ListBranches(executionContext context.Context, repository Repository) ([]string, error)
	BranchProtection(executionContext context.Context, repository Repository, branch string) (ProtectionStatus, error)
	ProtectBranch(executionContext context.Context, repository Repository, branch string, settings ProtectionSettings) error
	UnprotectBranch(executionContext context.Context, repository Repository, branch string) (bool, error)
}

// BranchReport describes one branch of one repository.
type BranchReport struct {
	Repository Repository
	Branch     string
	Status     ProtectionStatus
	Action     ProtectionAction
	Err        error
}

// ProtectionOptions configure Enable and Disable.
type ProtectionOptions struct {
	DryRun             bool
	ConfirmationPolicy shared.ConfirmationPolicy
}

// ProtectionService reports and changes branch protection over many repositories.
type ProtectionService struct {
	api      ProtectionAPI
	prompter shared.ConfirmationPrompter
	logger   *zap.Logger
}

// NewProtectionService constructs a ProtectionService.
func NewProtectionService(api ProtectionAPI, prompter shared.ConfirmationPrompter, logger *zap.Logger) (*ProtectionService, error) {
	if api == nil {
		return nil, ErrClientNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProtectionService{api: api, prompter: prompter, logger: logger}, nil
}

// MatchBranches returns the branches matching any glob pattern, in listing order.
// A single * stops at "/" while ** spans segments; {a,b} alternatives are accepted.
func MatchBranches(branches []string, patterns []string) ([]string, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		matcher, compileError := glob.Compile(pattern, branchSegmentSeparatorConstant)
		if compileError != nil {
			return nil, fmt.Errorf(invalidPatternTemplateConstant, pattern, compileError)
		}
		matchers = append(matchers, matcher)
	}

	var matched []string
	for _, branch := range branches {
		for _, matcher := range matchers {
			if matcher.Match(branch) {
				matched = append(matched, branch)
				break
			}
		}
	}
	return matched, nil
}

// Status reports the protection of every branch matching patterns.
func (service *ProtectionService) Status(executionContext context.Context, repositories []Repository, patterns []string) ([]BranchReport, error) {
	return service.collect(executionContext, repositories, patterns)
}

// Enable applies settings to every branch matching patterns after a single confirmation.
func (service *ProtectionService) Enable(executionContext context.Context, repositories []Repository, patterns []string, settings ProtectionSettings, options ProtectionOptions) ([]BranchReport, error) {
	return service.mutate(executionContext, repositories, patterns, options, enablePromptTemplateConstant, ActionWouldProtect, func(report *BranchReport) error {
		if protectError := service.api.ProtectBranch(executionContext, report.Repository, report.Branch, settings); protectError != nil {
			return protectError
		}
		report.Action = ActionProtected
		report.Status = ProtectionStatus{
			Protected:         true,
			RequiredApprovals: settings.RequiredApprovals,
			DismissStale:      settings.DismissStale,
			StatusChecks:      settings.StatusChecks,
			Strict:            settings.Strict,
			EnforceAdmins:     settings.EnforceAdmins,
		}
		return nil
	})
}

// Disable removes protection from every branch matching patterns after a single confirmation.
// Branches that were not protected are reported as such rather than failing.
func (service *ProtectionService) Disable(executionContext context.Context, repositories []Repository, patterns []string, options ProtectionOptions) ([]BranchReport, error) {
	return service.mutate(executionContext, repositories, patterns, options, disablePromptTemplateConstant, ActionWouldUnprotect, func(report *BranchReport) error {
		removed, removeError := service.api.UnprotectBranch(executionContext, report.Repository, report.Branch)
		if removeError != nil {
			return removeError
		}
		report.Status = ProtectionStatus{}
		report.Action = ActionUnprotected
		if !removed {
			report.Action = ActionAlreadyOpen
		}
		return nil
	})
}

func (service *ProtectionService) mutate(executionContext context.Context, repositories []Repository, patterns []string, options ProtectionOptions, promptTemplate string, plannedAction ProtectionAction, apply func(report *BranchReport) error) ([]BranchReport, error) {
	reports, collectError := service.collect(executionContext, repositories, patterns)

	pending := make([]int, 0, len(reports))
	pendingRepositories := make(map[string]struct{})
	for reportIndex, report := range reports {
		if report.Err == nil && report.Action == ActionNone {
			pending = append(pending, reportIndex)
			pendingRepositories[report.Repository.FullName()] = struct{}{}
		}
	}
	if len(pending) == 0 {
		return reports, collectError
	}

	if options.DryRun {
		for _, reportIndex := range pending {
			reports[reportIndex].Action = plannedAction
			service.logger.Info(protectionPlannedLogMessage, reportFields(reports[reportIndex])...)
		}
		return reports, collectError
	}

	confirmed, confirmError := options.ConfirmationPolicy.Confirm(service.prompter, fmt.Sprintf(promptTemplate, len(pending), len(pendingRepositories)))
	if confirmError != nil {
		return reports, multierr.Append(collectError, confirmError)
	}
	if !confirmed {
		for _, reportIndex := range pending {
			reports[reportIndex].Action = ActionDeclined
		}
		return reports, collectError
	}

	combined := collectError
	for _, reportIndex := range pending {
		report := &reports[reportIndex]
		if applyError := apply(report); applyError != nil {
			report.Action = ActionFailed
			report.Err = applyError
			combined = multierr.Append(combined, applyError)
			continue
		}
		service.logger.Info(protectionLogMessageConstant, reportFields(*report)...)
	}
	return reports, combined
}

// collect lists matching branches and their current protection. Failures are recorded on
// the affected repository and aggregated; other repositories are still processed.
func (service *ProtectionService) collect(executionContext context.Context, repositories []Repository, patterns []string) ([]BranchReport, error) {
	var reports []BranchReport
	var combined error
	for _, repository := range repositories {
		branches, listError := service.api.ListBranches(executionContext, repository)
		if listError != nil {
			reports = append(reports, BranchReport{Repository: repository, Action: ActionFailed, Err: listError})
			combined = multierr.Append(combined, listError)
			continue
		}
		matched, matchError := MatchBranches(branches, patterns)
		if matchError != nil {
			return nil, matchError
		}
		if len(matched) == 0 {
			reports = append(reports, BranchReport{Repository: repository, Action: ActionNoMatch})
			continue
		}
		for _, branch := range matched {
			status, statusError := service.api.BranchProtection(executionContext, repository, branch)
			report := BranchReport{Repository: repository, Branch: branch, Status: status}
			if statusError != nil {
				report.Action = ActionFailed
				report.Err = statusError
				combined = multierr.Append(combined, statusError)
			}
			reports = append(reports, report)
		}
	}
	return reports, combined
}

func reportFields(report BranchReport) []zap.Field {
	return []zap.Field{
		zap.String(logFieldRepositoryConstant, report.Repository.FullName()),
		zap.String(logFieldBranchConstant, report.Branch),
		zap.String(logFieldActionConstant, string(report.Action)),
	}
}

// PatternsOrDefault returns patterns without blanks, or defaults when none remain.
func PatternsOrDefault(patterns []string, defaults []string) []string {
	if trimmed := trimValues(patterns); len(trimmed) > 0 {
		return trimmed
	}
	return append([]string(nil), defaults...)
}

package githubapi

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

const (
	closePromptTemplateConstant = "Close %d stale pull requests? [y/N] "
	pullClosedLogMessage        = "stale pull request closed"
	logFieldNumberConstant      = "number"
	hoursPerDayConstant         = 24
)

// PullRequestState labels a pull request in a review.
type PullRequestState string

// Pull request states reported by PullRequestService.
const (
	PullRequestOpen       PullRequestState = "open"
	PullRequestStale      PullRequestState = "stale"
	PullRequestWouldClose PullRequestState = "would close"
	PullRequestClosed     PullRequestState = "closed"
	PullRequestCloseError PullRequestState = "close failed"
)

// PullRequestAPI is the subset of Client used by PullRequestService.
type PullRequestAPI interface {
	ListOpenPullRequests(executionContext context.Context, repository Repository, base string) ([]PullRequest, error)
	ClosePullRequest(executionContext context.Context, repository Repository, number int, comment string) error
}

// PullRequestReport describes one open pull request.
type PullRequestReport struct {
	PullRequest PullRequest
	Age         time.Duration
	Idle        time.Duration
	State       PullRequestState
	Err         error
}

// RepositoryFailure records a repository whose pull requests could not be listed.
type RepositoryFailure struct {
	Repository Repository
	Err        error
}

// PullRequestReview is the result of reviewing pull requests across repositories.
type PullRequestReview struct {
	Reports  []PullRequestReport
	Failures []RepositoryFailure
}

// ReviewOptions configure Review.
type ReviewOptions struct {
	Base               string
	StaleDays          int
	CloseStale         bool
	Comment            string
	DryRun             bool
	ConfirmationPolicy shared.ConfirmationPolicy
}

// PullRequestService lists open pull requests and closes stale ones.
type PullRequestService struct {
	api      PullRequestAPI
	prompter shared.ConfirmationPrompter
	clock    shared.Clock
	logger   *zap.Logger
}

// NewPullRequestService constructs a PullRequestService. A nil clock uses the system time.
func NewPullRequestService(api PullRequestAPI, prompter shared.ConfirmationPrompter, clock shared.Clock, logger *zap.Logger) (*PullRequestService, error) {
	if api == nil {
		return nil, ErrClientNotConfigured
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PullRequestService{api: api, prompter: prompter, clock: clock, logger: logger}, nil
}

// Review lists open pull requests, marks those idle for at least StaleDays as stale and,
// with CloseStale, comments on and closes them after one confirmation.
func (service *PullRequestService) Review(executionContext context.Context, repositories []Repository, options ReviewOptions) (PullRequestReview, error) {
	now := service.clock.Now()
	staleAfter := time.Duration(options.StaleDays) * hoursPerDayConstant * time.Hour

	review := PullRequestReview{}
	var combined error
	for _, repository := range repositories {
		pullRequests, listError := service.api.ListOpenPullRequests(executionContext, repository, options.Base)
		if listError != nil {
			review.Failures = append(review.Failures, RepositoryFailure{Repository: repository, Err: listError})
			combined = multierr.Append(combined, listError)
			continue
		}
		for _, pullRequest := range pullRequests {
			report := PullRequestReport{
				PullRequest: pullRequest,
				Age:         now.Sub(pullRequest.CreatedAt),
				Idle:        now.Sub(pullRequest.UpdatedAt),
				State:       PullRequestOpen,
			}
			if options.StaleDays > 0 && report.Idle >= staleAfter {
				report.State = PullRequestStale
			}
			review.Reports = append(review.Reports, report)
		}
	}

	if !options.CloseStale {
		return review, combined
	}
	var stale []int
	for reportIndex, report := range review.Reports {
		if report.State == PullRequestStale {
			stale = append(stale, reportIndex)
		}
	}
	if len(stale) == 0 {
		return review, combined
	}
	if options.DryRun {
		for _, reportIndex := range stale {
			review.Reports[reportIndex].State = PullRequestWouldClose
		}
		return review, combined
	}

	confirmed, confirmError := options.ConfirmationPolicy.Confirm(service.prompter, fmt.Sprintf(closePromptTemplateConstant, len(stale)))
	if confirmError != nil {
		return review, multierr.Append(combined, confirmError)
	}
	if !confirmed {
		return review, combined
	}

	for _, reportIndex := range stale {
		report := &review.Reports[reportIndex]
		pullRequest := report.PullRequest
		if closeError := service.api.ClosePullRequest(executionContext, pullRequest.Repository, pullRequest.Number, options.Comment); closeError != nil {
			report.State = PullRequestCloseError
			report.Err = closeError
			combined = multierr.Append(combined, closeError)
			continue
		}
		report.State = PullRequestClosed
		service.logger.Info(pullClosedLogMessage,
			zap.String(logFieldRepositoryConstant, pullRequest.Repository.FullName()),
			zap.Int(logFieldNumberConstant, pullRequest.Number),
		)
	}
	return review, combined
}

package githubapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/githubapi"
	"github.com/Ensembl/ensembl-git-tools/internal/shared"
)

var reviewTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

type stubPullRequestAPI struct {
	pullRequests map[string][]githubapi.PullRequest
	listErrors   map[string]error
	closeError   error
	bases        []string
	closed       []int
	comments     []string
}

func (api *stubPullRequestAPI) ListOpenPullRequests(_ context.Context, repository githubapi.Repository, base string) ([]githubapi.PullRequest, error) {
	api.bases = append(api.bases, base)
	if listError, exists := api.listErrors[repository.FullName()]; exists {
		return nil, listError
	}
	return api.pullRequests[repository.FullName()], nil
}

func (api *stubPullRequestAPI) ClosePullRequest(_ context.Context, _ githubapi.Repository, number int, comment string) error {
	if api.closeError != nil {
		return api.closeError
	}
	api.closed = append(api.closed, number)
	api.comments = append(api.comments, comment)
	return nil
}

func newStubPullRequestAPI() *stubPullRequestAPI {
	return &stubPullRequestAPI{pullRequests: map[string][]githubapi.PullRequest{
		"Ensembl/ensembl": {
			{Repository: coreRepository, Number: 7, Title: "Old idea", CreatedAt: reviewTime.AddDate(0, 0, -120), UpdatedAt: reviewTime.AddDate(0, 0, -45)},
			{Repository: coreRepository, Number: 9, Title: "Fresh work", CreatedAt: reviewTime.AddDate(0, 0, -3), UpdatedAt: reviewTime.AddDate(0, 0, -1)},
		},
		"Ensembl/ensembl-io": {
			{Repository: ioRepository, Number: 3, Title: "Exactly thirty", CreatedAt: reviewTime.AddDate(0, 0, -30), UpdatedAt: reviewTime.AddDate(0, 0, -30)},
		},
	}}
}

func newPullRequestService(testInstance *testing.T, api githubapi.PullRequestAPI, prompter shared.ConfirmationPrompter) *githubapi.PullRequestService {
	testInstance.Helper()
	service, serviceError := githubapi.NewPullRequestService(api, prompter, fixedClock{now: reviewTime}, nil)
	require.NoError(testInstance, serviceError)
	return service
}

func TestNewPullRequestServiceRequiresClient(testInstance *testing.T) {
	_, serviceError := githubapi.NewPullRequestService(nil, nil, nil, nil)
	require.ErrorIs(testInstance, serviceError, githubapi.ErrClientNotConfigured)
}

func TestReviewMarksStalePullRequests(testInstance *testing.T) {
	api := newStubPullRequestAPI()
	service := newPullRequestService(testInstance, api, nil)

	review, reviewError := service.Review(context.Background(), []githubapi.Repository{coreRepository, ioRepository}, githubapi.ReviewOptions{Base: "main", StaleDays: 30})
	require.NoError(testInstance, reviewError)
	require.Len(testInstance, review.Reports, 3)
	require.Equal(testInstance, []string{"main", "main"}, api.bases)

	states := make(map[int]githubapi.PullRequestState)
	for _, report := range review.Reports {
		states[report.PullRequest.Number] = report.State
	}
	require.Equal(testInstance, map[int]githubapi.PullRequestState{
		7: githubapi.PullRequestStale,
		9: githubapi.PullRequestOpen,
		3: githubapi.PullRequestStale,
	}, states)
	require.Equal(testInstance, 120*24*time.Hour, review.Reports[0].Age)
	require.Equal(testInstance, 45*24*time.Hour, review.Reports[0].Idle)
	require.Empty(testInstance, api.closed)
}

func TestReviewClosesStalePullRequests(testInstance *testing.T) {
	testCases := []struct {
		name            string
		options         githubapi.ReviewOptions
		answer          bool
		expectedState   githubapi.PullRequestState
		expectedClosed  []int
		expectedPrompts []string
	}{
		{
			name:            "confirmed",
			options:         githubapi.ReviewOptions{StaleDays: 30, CloseStale: true, Comment: "stale"},
			answer:          true,
			expectedState:   githubapi.PullRequestClosed,
			expectedClosed:  []int{7, 3},
			expectedPrompts: []string{"Close 2 stale pull requests? [y/N] "},
		},
		{
			name:            "declined",
			options:         githubapi.ReviewOptions{StaleDays: 30, CloseStale: true},
			expectedState:   githubapi.PullRequestStale,
			expectedPrompts: []string{"Close 2 stale pull requests? [y/N] "},
		},
		{
			name:          "dry run",
			options:       githubapi.ReviewOptions{StaleDays: 30, CloseStale: true, DryRun: true},
			expectedState: githubapi.PullRequestWouldClose,
		},
		{
			name:           "assume yes",
			options:        githubapi.ReviewOptions{StaleDays: 30, CloseStale: true, ConfirmationPolicy: shared.ConfirmationAssumeYes},
			expectedState:  githubapi.PullRequestClosed,
			expectedClosed: []int{7, 3},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			api := newStubPullRequestAPI()
			prompter := &stubPrompter{answer: testCase.answer}
			service := newPullRequestService(subTest, api, prompter)

			review, reviewError := service.Review(context.Background(), []githubapi.Repository{coreRepository, ioRepository}, testCase.options)
			require.NoError(subTest, reviewError)
			require.Equal(subTest, testCase.expectedState, review.Reports[0].State)
			require.Equal(subTest, testCase.expectedState, review.Reports[2].State)
			require.Equal(subTest, githubapi.PullRequestOpen, review.Reports[1].State)
			require.Equal(subTest, testCase.expectedClosed, api.closed)
			require.Equal(subTest, testCase.expectedPrompts, prompter.prompts)
		})
	}
}

func TestReviewAggregatesFailures(testInstance *testing.T) {
	api := newStubPullRequestAPI()
	api.listErrors = map[string]error{"Ensembl/ensembl": errors.New("rate limited")}
	api.closeError = errors.New("forbidden")
	service := newPullRequestService(testInstance, api, nil)

	review, reviewError := service.Review(context.Background(), []githubapi.Repository{coreRepository, ioRepository}, githubapi.ReviewOptions{
		StaleDays:          30,
		CloseStale:         true,
		ConfirmationPolicy: shared.ConfirmationAssumeYes,
	})
	require.Error(testInstance, reviewError)
	require.ErrorContains(testInstance, reviewError, "rate limited")
	require.ErrorContains(testInstance, reviewError, "forbidden")
	require.Equal(testInstance, []githubapi.RepositoryFailure{{Repository: coreRepository, Err: api.listErrors["Ensembl/ensembl"]}}, review.Failures)
	require.Len(testInstance, review.Reports, 1)
	require.Equal(testInstance, githubapi.PullRequestCloseError, review.Reports[0].State)
}

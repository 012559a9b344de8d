package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v32/github"
	"golang.org/x/oauth2"

	"github.com/Ensembl/ensembl-git-tools/internal/githubauth"
)

const (
	repositorySeparatorConstant     = "/"
	trailingSlashConstant           = "/"
	pageSizeConstant                = 100
	organizationRepositoryType      = "all"
	pullRequestStateOpenConstant    = "open"
	pullRequestStateClosedConstant  = "closed"
	pullRequestSortUpdatedConstant  = "updated"
	pullRequestDirectionAscConstant = "asc"
	invalidBaseURLTemplateConstant  = "invalid GitHub API URL %q: %w"
	repositoryFullNameTemplate      = "%s/%s"
)

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

// FullName returns owner/name.
func (repository Repository) FullName() string {
	return fmt.Sprintf(repositoryFullNameTemplate, repository.Owner, repository.Name)
}

// ParseRepository reads "owner/name".
func ParseRepository(value string) (Repository, error) {
	parts := strings.Split(strings.TrimSpace(value), repositorySeparatorConstant)
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) == 0 {
		return Repository{}, InvalidRepositoryError{Value: value}
	}
	return Repository{Owner: parts[0], Name: parts[1]}, nil
}

// ProtectionStatus describes the protection rules of one branch.
type ProtectionStatus struct {
	Protected         bool
	RequiredApprovals int
	DismissStale      bool
	StatusChecks      []string
	Strict            bool
	EnforceAdmins     bool
}

// ProtectionSettings are the rules applied when enabling protection.
type ProtectionSettings struct {
	RequiredApprovals int
	DismissStale      bool
	StatusChecks      []string
	Strict            bool
	EnforceAdmins     bool
}

// PullRequest is an open pull request.
type PullRequest struct {
	Repository Repository
	Number     int
	Title      string
	Author     string
	Base       string
	Head       string
	URL        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ClientOptions configure NewClient.
type ClientOptions struct {
	BaseURL    string
	Token      *githubauth.Token
	HTTPClient *http.Client
}

// Client wraps go-github with pagination and error classification.
type Client struct {
	api           *github.Client
	authenticated bool
}

// NewClient constructs a Client. A token, when present, is sent with every request through an
// oauth2 transport layered over options.HTTPClient.
func NewClient(executionContext context.Context, options ClientOptions) (*Client, error) {
	httpClient := options.HTTPClient
	if options.Token != nil {
		if httpClient != nil {
			executionContext = context.WithValue(executionContext, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(executionContext, options.Token.TokenSource())
	}

	api := github.NewClient(httpClient)
	if trimmed := strings.TrimSpace(options.BaseURL); len(trimmed) > 0 {
		if !strings.HasSuffix(trimmed, trailingSlashConstant) {
			trimmed += trailingSlashConstant
		}
		baseURL, parseError := url.Parse(trimmed)
		if parseError != nil {
			return nil, fmt.Errorf(invalidBaseURLTemplateConstant, options.BaseURL, parseError)
		}
		api.BaseURL = baseURL
	}
	return &Client{api: api, authenticated: options.Token != nil}, nil
}

// Authenticated reports whether the client sends a token.
func (client *Client) Authenticated() bool {
	return client.authenticated
}

// ListOrganizationRepositories returns every non-archived repository of the organization.
func (client *Client) ListOrganizationRepositories(executionContext context.Context, organization string) ([]Repository, error) {
	options := &github.RepositoryListByOrgOptions{Type: organizationRepositoryType, ListOptions: github.ListOptions{PerPage: pageSizeConstant}}
	var repositories []Repository
	for {
		page, response, listError := client.api.Repositories.ListByOrg(executionContext, organization, options)
		if listError != nil {
			return nil, OperationError{Operation: listOrganizationOperationConstant, Repository: organization, Cause: listError}
		}
		for _, repository := range page {
			if repository.GetArchived() {
				continue
			}
			repositories = append(repositories, Repository{Owner: repository.GetOwner().GetLogin(), Name: repository.GetName()})
		}
		if response.NextPage == 0 {
			return repositories, nil
		}
		options.Page = response.NextPage
	}
}

// ListBranches returns the names of every branch of the repository.
func (client *Client) ListBranches(executionContext context.Context, repository Repository) ([]string, error) {
	options := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: pageSizeConstant}}
	var branches []string
	for {
		page, response, listError := client.api.Repositories.ListBranches(executionContext, repository.Owner, repository.Name, options)
		if listError != nil {
			return nil, OperationError{Operation: listBranchesOperationConstant, Repository: repository.FullName(), Cause: listError}
		}
		for _, branch := range page {
			branches = append(branches, branch.GetName())
		}
		if response.NextPage == 0 {
			return branches, nil
		}
		options.Page = response.NextPage
	}
}

// BranchProtection reads the protection of a branch. Unprotected branches report Protected false.
func (client *Client) BranchProtection(executionContext context.Context, repository Repository, branch string) (ProtectionStatus, error) {
	protection, _, getError := client.api.Repositories.GetBranchProtection(executionContext, repository.Owner, repository.Name, branch)
	if getError != nil {
		if IsNotFound(getError) {
			return ProtectionStatus{}, nil
		}
		return ProtectionStatus{}, OperationError{Operation: getProtectionOperationConstant, Repository: repository.FullName(), Cause: getError}
	}

	status := ProtectionStatus{Protected: true}
	if reviews := protection.RequiredPullRequestReviews; reviews != nil {
		status.RequiredApprovals = reviews.RequiredApprovingReviewCount
		status.DismissStale = reviews.DismissStaleReviews
	}
	if checks := protection.RequiredStatusChecks; checks != nil {
		status.StatusChecks = append([]string(nil), checks.Contexts...)
		status.Strict = checks.Strict
	}
	if admins := protection.EnforceAdmins; admins != nil {
		status.EnforceAdmins = admins.Enabled
	}
	return status, nil
}

// ProtectBranch replaces the protection of a branch with settings.
func (client *Client) ProtectBranch(executionContext context.Context, repository Repository, branch string, settings ProtectionSettings) error {
	if !client.authenticated {
		return ErrTokenRequired
	}
	request := &github.ProtectionRequest{EnforceAdmins: settings.EnforceAdmins}
	if settings.RequiredApprovals > 0 {
		request.RequiredPullRequestReviews = &github.PullRequestReviewsEnforcementRequest{
			RequiredApprovingReviewCount: settings.RequiredApprovals,
			DismissStaleReviews:          settings.DismissStale,
		}
	}
	if len(settings.StatusChecks) > 0 || settings.Strict {
		request.RequiredStatusChecks = &github.RequiredStatusChecks{
			Strict:   settings.Strict,
			Contexts: append([]string{}, settings.StatusChecks...),
		}
	}
	if _, _, updateError := client.api.Repositories.UpdateBranchProtection(executionContext, repository.Owner, repository.Name, branch, request); updateError != nil {
		return OperationError{Operation: updateProtectionOperationConstant, Repository: repository.FullName(), Cause: updateError}
	}
	return nil
}

// UnprotectBranch removes the protection of a branch. It reports false when the branch was not protected.
func (client *Client) UnprotectBranch(executionContext context.Context, repository Repository, branch string) (bool, error) {
	if !client.authenticated {
		return false, ErrTokenRequired
	}
	if _, removeError := client.api.Repositories.RemoveBranchProtection(executionContext, repository.Owner, repository.Name, branch); removeError != nil {
		if IsNotFound(removeError) {
			return false, nil
		}
		return false, OperationError{Operation: removeProtectionOperationConstant, Repository: repository.FullName(), Cause: removeError}
	}
	return true, nil
}

// ListOpenPullRequests returns the open pull requests of the repository, least recently updated first.
// A non-empty base restricts the listing to pull requests targeting that branch.
func (client *Client) ListOpenPullRequests(executionContext context.Context, repository Repository, base string) ([]PullRequest, error) {
	options := &github.PullRequestListOptions{
		State:       pullRequestStateOpenConstant,
		Base:        base,
		Sort:        pullRequestSortUpdatedConstant,
		Direction:   pullRequestDirectionAscConstant,
		ListOptions: github.ListOptions{PerPage: pageSizeConstant},
	}
	var pullRequests []PullRequest
	for {
		page, response, listError := client.api.PullRequests.List(executionContext, repository.Owner, repository.Name, options)
		if listError != nil {
			return nil, OperationError{Operation: listPullRequestsOperationConstant, Repository: repository.FullName(), Cause: listError}
		}
		for _, pullRequest := range page {
			pullRequests = append(pullRequests, PullRequest{
				Repository: repository,
				Number:     pullRequest.GetNumber(),
				Title:      pullRequest.GetTitle(),
				Author:     pullRequest.GetUser().GetLogin(),
				Base:       pullRequest.GetBase().GetRef(),
				Head:       pullRequest.GetHead().GetRef(),
				URL:        pullRequest.GetHTMLURL(),
				CreatedAt:  pullRequest.GetCreatedAt(),
				UpdatedAt:  pullRequest.GetUpdatedAt(),
			})
		}
		if response.NextPage == 0 {
			return pullRequests, nil
		}
		options.Page = response.NextPage
	}
}

// ClosePullRequest optionally comments on a pull request and closes it.
func (client *Client) ClosePullRequest(executionContext context.Context, repository Repository, number int, comment string) error {
	if !client.authenticated {
		return ErrTokenRequired
	}
	if len(strings.TrimSpace(comment)) > 0 {
		if _, _, commentError := client.api.Issues.CreateComment(executionContext, repository.Owner, repository.Name, number, &github.IssueComment{Body: github.String(comment)}); commentError != nil {
			return OperationError{Operation: commentPullRequestOperationConstant, Repository: repository.FullName(), Cause: commentError}
		}
	}
	if _, _, editError := client.api.PullRequests.Edit(executionContext, repository.Owner, repository.Name, number, &github.PullRequest{State: github.String(pullRequestStateClosedConstant)}); editError != nil {
		return OperationError{Operation: closePullRequestOperationConstant, Repository: repository.FullName(), Cause: editError}
	}
	return nil
}

package githubapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v32/github"
)

const (
	operationErrorTemplateConstant       = "%s %s failed: %v"
	operationErrorNoRepositoryTemplate   = "%s failed: %v"
	invalidRepositoryTemplateConstant    = "invalid repository %q: expected owner/name"
	tokenRequiredMessageConstant         = "a GitHub token is required; set GH_TOKEN, GITHUB_TOKEN or tools.github.token"
	clientNotConfiguredMessageConstant   = "github client not configured"
	registryNotConfiguredMessageConstant = "module registry not configured"
	listBranchesOperationConstant        = OperationName("ListBranches")
	getProtectionOperationConstant       = OperationName("GetBranchProtection")
	updateProtectionOperationConstant    = OperationName("UpdateBranchProtection")
	removeProtectionOperationConstant    = OperationName("RemoveBranchProtection")
	listOrganizationOperationConstant    = OperationName("ListOrganizationRepositories")
	listPullRequestsOperationConstant    = OperationName("ListPullRequests")
	commentPullRequestOperationConstant  = OperationName("CommentPullRequest")
	closePullRequestOperationConstant    = OperationName("ClosePullRequest")
)

// OperationName identifies a GitHub REST call.
type OperationName string

var (
	// ErrTokenRequired indicates a mutating call without credentials.
	ErrTokenRequired = errors.New(tokenRequiredMessageConstant)
	// ErrClientNotConfigured indicates a service was constructed without a client.
	ErrClientNotConfigured = errors.New(clientNotConfiguredMessageConstant)
	// ErrRegistryNotConfigured indicates module targets were given without a registry.
	ErrRegistryNotConfigured = errors.New(registryNotConfiguredMessageConstant)
)

// OperationError wraps a failed REST call with the repository it targeted.
type OperationError struct {
	Operation  OperationName
	Repository string
	Cause      error
}

// Error describes the failed call.
func (operationError OperationError) Error() string {
	if len(operationError.Repository) == 0 {
		return fmt.Sprintf(operationErrorNoRepositoryTemplate, operationError.Operation, operationError.Cause)
	}
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Repository, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// InvalidRepositoryError reports a target that is not of the form owner/name.
type InvalidRepositoryError struct {
	Value string
}

// Error describes the malformed repository.
func (repositoryError InvalidRepositoryError) Error() string {
	return fmt.Sprintf(invalidRepositoryTemplateConstant, repositoryError.Value)
}

// IsNotFound reports whether err is a GitHub 404 response.
func IsNotFound(err error) bool {
	var responseError *github.ErrorResponse
	if errors.As(err, &responseError) && responseError.Response != nil {
		return responseError.Response.StatusCode == http.StatusNotFound
	}
	return false
}

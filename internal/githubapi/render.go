package githubapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

const (
	tableMaxColumnWidthConstant = 60
	tableColumnPaddingConstant  = 2
	repositoryHeaderConstant    = "REPOSITORY"
	branchHeaderConstant        = "BRANCH"
	protectedHeaderConstant     = "PROTECTED"
	approvalsHeaderConstant     = "APPROVALS"
	checksHeaderConstant        = "CHECKS"
	adminsHeaderConstant        = "ADMINS"
	actionHeaderConstant        = "ACTION"
	numberHeaderConstant        = "#"
	titleHeaderConstant         = "TITLE"
	authorHeaderConstant        = "AUTHOR"
	baseHeaderConstant          = "BASE"
	ageHeaderConstant           = "AGE"
	idleHeaderConstant          = "IDLE"
	stateHeaderConstant         = "STATE"
	yesCellConstant             = "yes"
	noCellConstant              = "no"
	emptyCellConstant           = "-"
	strictSuffixConstant        = " (strict)"
	checkSeparatorConstant      = ","
	dayTemplateConstant         = "%dd"
	failureTemplateConstant     = "%s: %v"
	noPullRequestsMessage       = "No open pull requests"
)

func newTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = tableMaxColumnWidthConstant
	table.Separator = strings.Repeat(" ", tableColumnPaddingConstant)
	return table
}

// RenderProtection renders branch protection reports.
func RenderProtection(reports []BranchReport) string {
	table := newTable()
	table.AddRow(repositoryHeaderConstant, branchHeaderConstant, protectedHeaderConstant, approvalsHeaderConstant, checksHeaderConstant, adminsHeaderConstant, actionHeaderConstant)
	for _, report := range reports {
		if report.Err != nil || len(report.Branch) == 0 {
			table.AddRow(report.Repository.FullName(), valueOrEmpty(report.Branch), emptyCellConstant, emptyCellConstant, emptyCellConstant, emptyCellConstant, describeAction(report))
			continue
		}
		protected := color.RedString(noCellConstant)
		approvals := emptyCellConstant
		checks := emptyCellConstant
		admins := emptyCellConstant
		if report.Status.Protected {
			protected = color.GreenString(yesCellConstant)
			approvals = strconv.Itoa(report.Status.RequiredApprovals)
			if len(report.Status.StatusChecks) > 0 {
				checks = strings.Join(report.Status.StatusChecks, checkSeparatorConstant)
			}
			if report.Status.Strict {
				checks += strictSuffixConstant
			}
			admins = yesNo(report.Status.EnforceAdmins)
		}
		table.AddRow(report.Repository.FullName(), report.Branch, protected, approvals, checks, admins, describeAction(report))
	}
	return table.String()
}

// RenderPullRequests renders a pull request review followed by repository failures.
func RenderPullRequests(review PullRequestReview) string {
	var builder strings.Builder
	if len(review.Reports) == 0 {
		builder.WriteString(noPullRequestsMessage)
	} else {
		table := newTable()
		table.AddRow(repositoryHeaderConstant, numberHeaderConstant, titleHeaderConstant, authorHeaderConstant, baseHeaderConstant, ageHeaderConstant, idleHeaderConstant, stateHeaderConstant)
		for _, report := range review.Reports {
			pullRequest := report.PullRequest
			table.AddRow(
				pullRequest.Repository.FullName(),
				strconv.Itoa(pullRequest.Number),
				pullRequest.Title,
				pullRequest.Author,
				pullRequest.Base,
				formatDays(report.Age),
				formatDays(report.Idle),
				colorState(report.State),
			)
		}
		builder.WriteString(table.String())
	}
	for _, failure := range review.Failures {
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf(failureTemplateConstant, failure.Repository.FullName(), failure.Err))
	}
	return builder.String()
}

func describeAction(report BranchReport) string {
	if report.Err != nil {
		return color.RedString(fmt.Sprintf(failureTemplateConstant, ActionFailed, report.Err))
	}
	if report.Action == ActionNone {
		return emptyCellConstant
	}
	return string(report.Action)
}

func colorState(state PullRequestState) string {
	switch state {
	case PullRequestStale, PullRequestWouldClose:
		return color.YellowString(string(state))
	case PullRequestCloseError:
		return color.RedString(string(state))
	default:
		return string(state)
	}
}

func formatDays(duration time.Duration) string {
	return fmt.Sprintf(dayTemplateConstant, int(duration.Hours())/hoursPerDayConstant)
}

func yesNo(value bool) string {
	if value {
		return yesCellConstant
	}
	return noCellConstant
}

func valueOrEmpty(value string) string {
	if len(value) == 0 {
		return emptyCellConstant
	}
	return value
}

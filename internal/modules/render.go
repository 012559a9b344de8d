package modules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/Ensembl/ensembl-git-tools/internal/registry"
)

const (
	tableMaxColumnWidthConstant = 80
	tableColumnPaddingConstant  = 2
	groupHeaderConstant         = "GROUP"
	membersHeaderConstant       = "MEMBERS"
	moduleHeaderConstant        = "MODULE"
	repositoryHeaderConstant    = "REPOSITORY"
	defaultBranchHeaderConstant = "BRANCH"
	remoteURLHeaderConstant     = "URL"
	currentBranchHeaderConstant = "BRANCH"
	upstreamHeaderConstant      = "UPSTREAM"
	aheadHeaderConstant         = "AHEAD"
	behindHeaderConstant        = "BEHIND"
	stateHeaderConstant         = "STATE"
	stateCleanConstant          = "clean"
	stateDirtyConstant          = "dirty"
	stateNotClonedConstant      = "not cloned"
	stateErrorTemplateConstant  = "error: %v"
	emptyCellConstant           = "-"
	memberSeparatorConstant     = ", "
	outcomeLineTemplateConstant = "%s: %s"
	outcomeDetailTemplate       = "%s: %s %s"
	execHeaderTemplateConstant  = "== %s =="
	failedStatusConstant        = "failed"
)

func newTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = tableMaxColumnWidthConstant
	table.Separator = strings.Repeat(" ", tableColumnPaddingConstant)
	return table
}

// RenderGroups renders each group with its members.
func RenderGroups(groups []registry.Group) string {
	table := newTable()
	table.AddRow(groupHeaderConstant, membersHeaderConstant)
	for _, group := range groups {
		table.AddRow(group.Name, strings.Join(group.Members, memberSeparatorConstant))
	}
	return table.String()
}

// ModuleListing is one row of the module table.
type ModuleListing struct {
	Module    registry.Module
	RemoteURL string
}

// RenderModules renders modules with their repository, default branch and remote URL.
func RenderModules(listings []ModuleListing) string {
	table := newTable()
	table.AddRow(moduleHeaderConstant, repositoryHeaderConstant, defaultBranchHeaderConstant, remoteURLHeaderConstant)
	for _, listing := range listings {
		table.AddRow(listing.Module.Name, listing.Module.Repository, listing.Module.DefaultBranch, listing.RemoteURL)
	}
	return table.String()
}

// RenderStatus renders status reports in module order, colouring the state column.
func RenderStatus(results []ModuleResult[StatusReport]) string {
	cleanColor := color.New(color.FgGreen).SprintFunc()
	dirtyColor := color.New(color.FgRed).SprintFunc()
	missingColor := color.New(color.FgYellow).SprintFunc()

	table := newTable()
	table.AddRow(moduleHeaderConstant, currentBranchHeaderConstant, upstreamHeaderConstant, aheadHeaderConstant, behindHeaderConstant, stateHeaderConstant)
	for _, result := range results {
		report := result.Value
		switch {
		case result.Err != nil:
			table.AddRow(result.Module.Name, emptyCellConstant, emptyCellConstant, emptyCellConstant, emptyCellConstant, dirtyColor(fmt.Sprintf(stateErrorTemplateConstant, unwrapModuleError(result.Err))))
		case !report.Cloned:
			table.AddRow(result.Module.Name, emptyCellConstant, emptyCellConstant, emptyCellConstant, emptyCellConstant, missingColor(stateNotClonedConstant))
		default:
			state := cleanColor(stateCleanConstant)
			if report.Dirty {
				state = dirtyColor(stateDirtyConstant)
			}
			upstream, ahead, behind := emptyCellConstant, emptyCellConstant, emptyCellConstant
			if len(report.Upstream) > 0 {
				upstream = report.Upstream
				ahead = strconv.Itoa(report.Ahead)
				behind = strconv.Itoa(report.Behind)
			}
			table.AddRow(result.Module.Name, report.BranchDisplay(), upstream, ahead, behind, state)
		}
	}
	return table.String()
}

// RenderOutcome renders a single outcome line, or the planned commands for dry runs.
func RenderOutcome(result ModuleResult[Outcome]) string {
	if result.Err != nil {
		return fmt.Sprintf(outcomeDetailTemplate, result.Module.Name, failedStatusConstant, unwrapModuleError(result.Err))
	}
	outcome := result.Value
	if outcome.Status == OutcomePlanned {
		lines := make([]string, 0)
		for _, command := range strings.Split(outcome.Output, "\n") {
			lines = append(lines, fmt.Sprintf(outcomeLineTemplateConstant, outcome.Module, command))
		}
		return strings.Join(lines, "\n")
	}
	if len(outcome.Detail) == 0 {
		return fmt.Sprintf(outcomeLineTemplateConstant, outcome.Module, outcome.Status)
	}
	return fmt.Sprintf(outcomeDetailTemplate, outcome.Module, outcome.Status, outcome.Detail)
}

// RenderExecOutput renders exec output under a header naming the module. Output captured
// before a failure is printed ahead of the error.
func RenderExecOutput(result ModuleResult[Outcome]) string {
	header := fmt.Sprintf(execHeaderTemplateConstant, result.Module.Name)
	if result.Err != nil {
		if len(result.Value.Output) > 0 {
			header += "\n" + result.Value.Output
		}
		return header + "\n" + unwrapModuleError(result.Err).Error()
	}
	if result.Value.Status == OutcomeSkipped {
		return header + "\n" + result.Value.Detail
	}
	if len(result.Value.Output) == 0 {
		return header
	}
	return header + "\n" + result.Value.Output
}

func unwrapModuleError(err error) error {
	if moduleError, isModuleError := err.(ModuleError); isModuleError {
		return moduleError.Err
	}
	return err
}

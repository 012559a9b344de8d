package registry

import (
	"fmt"
	"strings"
)

const (
	unknownTargetsTemplateConstant  = "unknown module or group: %s"
	groupCycleTemplateConstant      = "group cycle detected: %s"
	invalidModuleTemplateConstant   = "invalid module %q: %s"
	listSeparatorConstant           = ", "
	cyclePathSeparatorConstant      = " -> "
	moduleNameRequiredConstant      = "name required"
	moduleRepositoryRequiredMessage = "repository or remote_url required"
)

// UnknownTargetError lists every requested name that is neither a module nor a group.
type UnknownTargetError struct {
	Names []string
}

// Error lists the unknown names.
func (unknownError UnknownTargetError) Error() string {
	return fmt.Sprintf(unknownTargetsTemplateConstant, strings.Join(unknownError.Names, listSeparatorConstant))
}

// GroupCycleError reports a group that eventually contains itself.
type GroupCycleError struct {
	Path []string
}

// Error renders the cycle path.
func (cycleError GroupCycleError) Error() string {
	return fmt.Sprintf(groupCycleTemplateConstant, strings.Join(cycleError.Path, cyclePathSeparatorConstant))
}

// InvalidModuleError reports a module definition missing required fields.
type InvalidModuleError struct {
	Name   string
	Reason string
}

// Error describes the invalid module.
func (invalidError InvalidModuleError) Error() string {
	return fmt.Sprintf(invalidModuleTemplateConstant, invalidError.Name, invalidError.Reason)
}

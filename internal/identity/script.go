package identity

import (
	"fmt"
	"strings"
)

const (
	// AuthorNameEnvironmentName is the git author name variable.
	AuthorNameEnvironmentName = "GIT_AUTHOR_NAME"
	// AuthorEmailEnvironmentName is the git author email variable.
	AuthorEmailEnvironmentName = "GIT_AUTHOR_EMAIL"
	// CommitterNameEnvironmentName is the git committer name variable.
	CommitterNameEnvironmentName = "GIT_COMMITTER_NAME"
	// CommitterEmailEnvironmentName is the git committer email variable.
	CommitterEmailEnvironmentName = "GIT_COMMITTER_EMAIL"

	singleQuoteConstant              = "'"
	escapedSingleQuoteConstant       = `'\''`
	conditionTestTemplateConstant    = `[ "$%s" = %s ]`
	conditionJoinConstant            = " && "
	conditionOpenTemplateConstant    = "if %s; then\n"
	conditionElseTemplateConstant    = "elif %s; then\n"
	assignmentTemplateConstant       = "    %s=%s\n"
	filterExportTemplateConstant     = "    export %s %s\n"
	conditionCloseConstant           = "fi\n"
	shExportTemplateConstant         = "export %s=%s\n"
	shUnsetTemplateConstant          = "unset %s\n"
	cshExportTemplateConstant        = "setenv %s %s\n"
	cshUnsetTemplateConstant         = "unsetenv %s\n"
	unsupportedShellTemplateConstant = "unsupported shell %q"
	variableSeparatorConstant        = " "
)

// Shell selects the syntax of printed environment commands.
type Shell string

// Supported shells.
const (
	ShellSh  Shell = "sh"
	ShellCsh Shell = "csh"
)

// ShellChoices lists the accepted --shell values.
var ShellChoices = []string{string(ShellSh), string(ShellCsh)}

// IdentityVariables lists the environment variables that carry a shared identity.
var IdentityVariables = []string{
	AuthorNameEnvironmentName,
	AuthorEmailEnvironmentName,
	CommitterNameEnvironmentName,
	CommitterEmailEnvironmentName,
}

// UnsupportedShellError reports a shell other than sh or csh.
type UnsupportedShellError struct {
	Shell string
}

// Error describes the unsupported shell.
func (shellError UnsupportedShellError) Error() string {
	return fmt.Sprintf(unsupportedShellTemplateConstant, shellError.Shell)
}

// ShellQuote wraps value in single quotes so sh and csh read it literally.
func ShellQuote(value string) string {
	return singleQuoteConstant + strings.ReplaceAll(value, singleQuoteConstant, escapedSingleQuoteConstant) + singleQuoteConstant
}

// EnvFilterScript builds the git filter-branch --env-filter script applying mappings
// to both author and committer. The first matching mapping wins for each role.
func EnvFilterScript(mappings []Mapping) string {
	var builder strings.Builder
	roles := []struct {
		name  string
		email string
	}{
		{name: AuthorNameEnvironmentName, email: AuthorEmailEnvironmentName},
		{name: CommitterNameEnvironmentName, email: CommitterEmailEnvironmentName},
	}
	for _, role := range roles {
		for mappingIndex, mapping := range mappings {
			conditions := []string{fmt.Sprintf(conditionTestTemplateConstant, role.email, ShellQuote(mapping.From.Email))}
			if len(mapping.From.Name) > 0 {
				conditions = append(conditions, fmt.Sprintf(conditionTestTemplateConstant, role.name, ShellQuote(mapping.From.Name)))
			}
			conditionTemplate := conditionOpenTemplateConstant
			if mappingIndex > 0 {
				conditionTemplate = conditionElseTemplateConstant
			}
			builder.WriteString(fmt.Sprintf(conditionTemplate, strings.Join(conditions, conditionJoinConstant)))
			builder.WriteString(fmt.Sprintf(assignmentTemplateConstant, role.name, ShellQuote(mapping.To.Name)))
			builder.WriteString(fmt.Sprintf(assignmentTemplateConstant, role.email, ShellQuote(mapping.To.Email)))
			builder.WriteString(fmt.Sprintf(filterExportTemplateConstant, role.name, role.email))
		}
		if len(mappings) > 0 {
			builder.WriteString(conditionCloseConstant)
		}
	}
	return builder.String()
}

// ExportScript prints the commands that make identity the author and committer of new commits.
func ExportScript(identity Identity, shell Shell) (string, error) {
	template, templateError := exportTemplate(shell)
	if templateError != nil {
		return "", templateError
	}
	values := map[string]string{
		AuthorNameEnvironmentName:     identity.Name,
		AuthorEmailEnvironmentName:    identity.Email,
		CommitterNameEnvironmentName:  identity.Name,
		CommitterEmailEnvironmentName: identity.Email,
	}
	var builder strings.Builder
	for _, variable := range IdentityVariables {
		builder.WriteString(fmt.Sprintf(template, variable, ShellQuote(values[variable])))
	}
	return builder.String(), nil
}

// UnsetScript prints the commands that clear a shared identity.
func UnsetScript(shell Shell) (string, error) {
	switch shell {
	case ShellSh:
		return fmt.Sprintf(shUnsetTemplateConstant, strings.Join(IdentityVariables, variableSeparatorConstant)), nil
	case ShellCsh:
		var builder strings.Builder
		for _, variable := range IdentityVariables {
			builder.WriteString(fmt.Sprintf(cshUnsetTemplateConstant, variable))
		}
		return builder.String(), nil
	default:
		return "", UnsupportedShellError{Shell: string(shell)}
	}
}

func exportTemplate(shell Shell) (string, error) {
	switch shell {
	case ShellSh:
		return shExportTemplateConstant, nil
	case ShellCsh:
		return cshExportTemplateConstant, nil
	default:
		return "", UnsupportedShellError{Shell: string(shell)}
	}
}

package identity

import (
	"fmt"
	"strings"
)

const (
	openingBracketConstant      = "<"
	closingBracketConstant      = ">"
	emailSeparatorConstant      = "@"
	identityTemplateConstant    = "%s <%s>"
	parseErrorTemplateConstant  = "invalid identity %q: %s"
	missingNameReasonConstant   = "name is required"
	missingEmailReasonConstant  = "email in angle brackets is required"
	invalidEmailReasonConstant  = "email must contain @"
	forbiddenCharacterReason    = "name and email must not contain <, > or line breaks"
	trailingTextReasonConstant  = "unexpected text after >"
	forbiddenCharactersConstant = "<>\r\n"
)

// ParseError reports malformed identity text.
type ParseError struct {
	Input  string
	Reason string
}

// Error describes the malformed identity.
func (parseError ParseError) Error() string {
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.Input, parseError.Reason)
}

// Identity is a commit author or committer.
type Identity struct {
	Name  string
	Email string
}

// String formats the identity as "Name <email>".
func (identity Identity) String() string {
	return fmt.Sprintf(identityTemplateConstant, identity.Name, identity.Email)
}

// Parse reads "Name <email>". Both parts are required, the email must contain @,
// and neither part may contain angle brackets or line breaks.
func Parse(text string) (Identity, error) {
	trimmed := strings.TrimSpace(text)
	openIndex := strings.Index(trimmed, openingBracketConstant)
	if openIndex < 0 || !strings.HasSuffix(trimmed, closingBracketConstant) {
		if closeIndex := strings.Index(trimmed, closingBracketConstant); openIndex >= 0 && closeIndex > openIndex {
			return Identity{}, ParseError{Input: text, Reason: trailingTextReasonConstant}
		}
		return Identity{}, ParseError{Input: text, Reason: missingEmailReasonConstant}
	}

	identity := Identity{
		Name:  strings.TrimSpace(trimmed[:openIndex]),
		Email: strings.TrimSpace(trimmed[openIndex+1 : len(trimmed)-1]),
	}
	if len(identity.Name) == 0 {
		return Identity{}, ParseError{Input: text, Reason: missingNameReasonConstant}
	}
	if validationError := validateParts(text, identity.Name, identity.Email); validationError != nil {
		return Identity{}, validationError
	}
	return identity, nil
}

// Matcher selects commits by email and, when Name is set, by name as well.
type Matcher struct {
	Name  string
	Email string
}

// ParseMatcher accepts "Name <email>", "<email>" or a bare email address.
func ParseMatcher(text string) (Matcher, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.Contains(trimmed, openingBracketConstant) {
		if validationError := validateParts(text, "", trimmed); validationError != nil {
			return Matcher{}, validationError
		}
		return Matcher{Email: trimmed}, nil
	}
	if strings.HasPrefix(trimmed, openingBracketConstant) && strings.HasSuffix(trimmed, closingBracketConstant) {
		email := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		if validationError := validateParts(text, "", email); validationError != nil {
			return Matcher{}, validationError
		}
		return Matcher{Email: email}, nil
	}
	parsed, parseError := Parse(text)
	if parseError != nil {
		return Matcher{}, parseError
	}
	return Matcher{Name: parsed.Name, Email: parsed.Email}, nil
}

// Matches reports whether the name and email satisfy the matcher. Comparison is exact.
func (matcher Matcher) Matches(name string, email string) bool {
	if email != matcher.Email {
		return false
	}
	return len(matcher.Name) == 0 || name == matcher.Name
}

// String formats the matcher the way it was written.
func (matcher Matcher) String() string {
	if len(matcher.Name) == 0 {
		return openingBracketConstant + matcher.Email + closingBracketConstant
	}
	return Identity{Name: matcher.Name, Email: matcher.Email}.String()
}

func validateParts(input string, name string, email string) error {
	if len(email) == 0 {
		return ParseError{Input: input, Reason: missingEmailReasonConstant}
	}
	if strings.ContainsAny(name, forbiddenCharactersConstant) || strings.ContainsAny(email, forbiddenCharactersConstant) {
		return ParseError{Input: input, Reason: forbiddenCharacterReason}
	}
	if !strings.Contains(email, emailSeparatorConstant) {
		return ParseError{Input: input, Reason: invalidEmailReasonConstant}
	}
	return nil
}

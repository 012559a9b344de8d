package identity

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	authorMapReadTemplateConstant  = "failed to read author map %s: %w"
	authorMapParseTemplateConstant = "failed to parse author map %s: %w"
	authorMapEntryTemplateConstant = "entry %d %s: %w"
	authorMapEmptyMessageConstant  = "author map contains no entries"
	authorMapPathMissingMessage    = "author map path must be provided"
	authorMapFromFieldConstant     = "from"
	authorMapToFieldConstant       = "to"
)

var (
	// ErrAuthorMapEmpty indicates the author map file declared no mappings.
	ErrAuthorMapEmpty = errors.New(authorMapEmptyMessageConstant)
	// ErrAuthorMapPathRequired indicates no author map file was named.
	ErrAuthorMapPathRequired = errors.New(authorMapPathMissingMessage)
)

// Mapping rewrites commits matched by From to the To identity.
type Mapping struct {
	From Matcher
	To   Identity
}

type mappingDocument struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ParseAuthorMap decodes a YAML or JSON list of {from, to} entries.
func ParseAuthorMap(content []byte) ([]Mapping, error) {
	var documents []mappingDocument
	if decodeError := yaml.Unmarshal(content, &documents); decodeError != nil {
		return nil, decodeError
	}
	if len(documents) == 0 {
		return nil, ErrAuthorMapEmpty
	}

	mappings := make([]Mapping, 0, len(documents))
	for documentIndex, document := range documents {
		matcher, matcherError := ParseMatcher(document.From)
		if matcherError != nil {
			return nil, fmt.Errorf(authorMapEntryTemplateConstant, documentIndex+1, authorMapFromFieldConstant, matcherError)
		}
		replacement, replacementError := Parse(document.To)
		if replacementError != nil {
			return nil, fmt.Errorf(authorMapEntryTemplateConstant, documentIndex+1, authorMapToFieldConstant, replacementError)
		}
		mappings = append(mappings, Mapping{From: matcher, To: replacement})
	}
	return mappings, nil
}

// LoadAuthorMap reads and parses the author map at path.
func LoadAuthorMap(fileSystem afero.Fs, path string) ([]Mapping, error) {
	if len(path) == 0 {
		return nil, ErrAuthorMapPathRequired
	}
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	content, readError := afero.ReadFile(fileSystem, path)
	if readError != nil {
		return nil, fmt.Errorf(authorMapReadTemplateConstant, path, readError)
	}
	mappings, parseError := ParseAuthorMap(content)
	if parseError != nil {
		return nil, fmt.Errorf(authorMapParseTemplateConstant, path, parseError)
	}
	return mappings, nil
}

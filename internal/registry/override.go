package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	overrideReadErrorTemplateConstant  = "failed to read registry override %s: %w"
	overrideParseErrorTemplateConstant = "failed to parse registry override %s: %w"
)

// Override describes modules and groups loaded from a registry file. JSON documents are accepted as YAML.
type Override struct {
	DefaultGroup string              `yaml:"default_group" json:"default_group"`
	Modules      []Module            `yaml:"modules" json:"modules"`
	Groups       map[string][]string `yaml:"groups" json:"groups"`
}

// LoadOverride reads an override file. When required is false a missing file yields an empty override.
func LoadOverride(fileSystem afero.Fs, filePath string, required bool) (Override, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Override{}, nil
	}

	contentBytes, readError := afero.ReadFile(fileSystem, trimmedPath)
	if readError != nil {
		if !required && errors.Is(readError, fs.ErrNotExist) {
			return Override{}, nil
		}
		return Override{}, fmt.Errorf(overrideReadErrorTemplateConstant, trimmedPath, readError)
	}

	var override Override
	if unmarshalError := yaml.Unmarshal(contentBytes, &override); unmarshalError != nil {
		return Override{}, fmt.Errorf(overrideParseErrorTemplateConstant, trimmedPath, unmarshalError)
	}
	return override, nil
}

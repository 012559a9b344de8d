package modules

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/Ensembl/ensembl-git-tools/internal/registry"
)

const gitDirectoryNameConstant = ".git"

// CheckoutState describes what exists at a module's path.
type CheckoutState int

// Possible checkout states.
const (
	CheckoutAbsent CheckoutState = iota
	CheckoutNotRepository
	CheckoutCloned
)

// Workspace maps modules to checkout paths under a single directory.
type Workspace struct {
	directory  string
	fileSystem afero.Fs
}

// NewWorkspace constructs a Workspace. A nil file system uses the operating system.
func NewWorkspace(fileSystem afero.Fs, directory string) Workspace {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return Workspace{directory: directory, fileSystem: fileSystem}
}

// Directory returns the workspace root.
func (workspace Workspace) Directory() string {
	return workspace.directory
}

// ModulePath returns <directory>/<module name>.
func (workspace Workspace) ModulePath(module registry.Module) string {
	return filepath.Join(workspace.directory, module.Name)
}

// State inspects the module path. A .git file counts as a clone so worktrees are recognized.
func (workspace Workspace) State(module registry.Module) (CheckoutState, error) {
	modulePath := workspace.ModulePath(module)
	exists, existsError := afero.Exists(workspace.fileSystem, modulePath)
	if existsError != nil {
		return CheckoutAbsent, existsError
	}
	if !exists {
		return CheckoutAbsent, nil
	}

	cloned, clonedError := afero.Exists(workspace.fileSystem, filepath.Join(modulePath, gitDirectoryNameConstant))
	if clonedError != nil {
		return CheckoutAbsent, clonedError
	}
	if cloned {
		return CheckoutCloned, nil
	}
	return CheckoutNotRepository, nil
}

// EnsureDirectory creates the workspace root when missing.
func (workspace Workspace) EnsureDirectory() error {
	return workspace.fileSystem.MkdirAll(workspace.directory, 0o755)
}

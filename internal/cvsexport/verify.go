package cvsexport

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"
)

const (
	gitAdministrativeDirectoryConstant = ".git"
	diffContextLinesConstant           = 3
	diffFromPrefixConstant             = "cvs/"
	diffToPrefixConstant               = "git/"
	treeMismatchTemplateConstant       = "CVS checkout differs from git worktree in %d paths"
	walkFailureTemplateConstant        = "failed to walk %s: %w"
	readFailureTemplateConstant        = "failed to read %s: %w"
	differenceLineTemplateConstant     = "%s %s\n"
)

// DifferenceKind classifies how a path differs between the git worktree and the CVS checkout.
type DifferenceKind string

// Difference kinds reported by Verify.
const (
	DifferenceAdded    DifferenceKind = "added"
	DifferenceRemoved  DifferenceKind = "removed"
	DifferenceModified DifferenceKind = "modified"
)

// Difference is one path whose content is not the same in both trees.
// Added paths exist only in git, removed paths only in CVS.
type Difference struct {
	Path string
	Kind DifferenceKind
	Diff string
}

// TreeMismatchError reports that verification found differences.
type TreeMismatchError struct {
	Differences []Difference
}

// Error summarizes the number of differing paths.
func (mismatchError TreeMismatchError) Error() string {
	return fmt.Sprintf(treeMismatchTemplateConstant, len(mismatchError.Differences))
}

// Verify compares the git worktree with the CVS checkout, ignoring .git and CVS directories.
// Differences are sorted by path.
func (service *Service) Verify(repositoryPath string, cvsDirectory string) ([]Difference, error) {
	gitFiles, gitError := collectFiles(service.fileSystem, repositoryPath)
	if gitError != nil {
		return nil, gitError
	}
	cvsFiles, cvsError := collectFiles(service.fileSystem, cvsDirectory)
	if cvsError != nil {
		return nil, cvsError
	}

	var differences []Difference
	for relativePath := range gitFiles {
		if _, inCVS := cvsFiles[relativePath]; !inCVS {
			differences = append(differences, Difference{Path: relativePath, Kind: DifferenceAdded})
		}
	}
	for relativePath := range cvsFiles {
		if _, inGit := gitFiles[relativePath]; !inGit {
			differences = append(differences, Difference{Path: relativePath, Kind: DifferenceRemoved})
			continue
		}
		gitContent, readGitError := readFile(service.fileSystem, gitFiles[relativePath])
		if readGitError != nil {
			return nil, readGitError
		}
		cvsContent, readCVSError := readFile(service.fileSystem, cvsFiles[relativePath])
		if readCVSError != nil {
			return nil, readCVSError
		}
		if bytes.Equal(gitContent, cvsContent) {
			continue
		}
		diffText, diffError := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(cvsContent)),
			B:        difflib.SplitLines(string(gitContent)),
			FromFile: diffFromPrefixConstant + relativePath,
			ToFile:   diffToPrefixConstant + relativePath,
			Context:  diffContextLinesConstant,
		})
		if diffError != nil {
			return nil, diffError
		}
		differences = append(differences, Difference{Path: relativePath, Kind: DifferenceModified, Diff: diffText})
	}

	sort.Slice(differences, func(left int, right int) bool {
		return differences[left].Path < differences[right].Path
	})
	return differences, nil
}

// collectFiles maps slash-separated relative paths to absolute paths for every regular file under root.
func collectFiles(fileSystem afero.Fs, root string) (map[string]string, error) {
	files := make(map[string]string)
	walkError := afero.Walk(fileSystem, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && (info.Name() == gitAdministrativeDirectoryConstant || info.Name() == cvsAdministrativeDirectoryConstant) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		relativePath, relativeError := filepath.Rel(root, path)
		if relativeError != nil {
			return relativeError
		}
		files[filepath.ToSlash(relativePath)] = path
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(walkFailureTemplateConstant, root, walkError)
	}
	return files, nil
}

func readFile(fileSystem afero.Fs, path string) ([]byte, error) {
	content, readError := afero.ReadFile(fileSystem, path)
	if readError != nil {
		return nil, fmt.Errorf(readFailureTemplateConstant, path, readError)
	}
	return content, nil
}

// RenderDifferences lists each difference and appends unified diffs for modified files.
func RenderDifferences(differences []Difference) string {
	var builder strings.Builder
	for _, difference := range differences {
		builder.WriteString(fmt.Sprintf(differenceLineTemplateConstant, difference.Kind, difference.Path))
	}
	for _, difference := range differences {
		if len(difference.Diff) > 0 {
			builder.WriteString(difference.Diff)
		}
	}
	return builder.String()
}

package cvsexport_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/cvsexport"
)

func writeTree(testInstance *testing.T, fileSystem afero.Fs, files map[string]string) {
	testInstance.Helper()
	for path, content := range files {
		require.NoError(testInstance, afero.WriteFile(fileSystem, path, []byte(content), 0o644))
	}
}

func TestVerifyReportsDifferences(testInstance *testing.T) {
	fileSystem := newCVSCheckout(testInstance)
	writeTree(testInstance, fileSystem, map[string]string{
		"/repo/.git/HEAD":        "ref: refs/heads/main\n",
		"/repo/README":           "Ensembl core API\n",
		"/repo/modules/Gene.pm":  "package Gene;\nsub stable_id { }\nsub biotype { }\n1;\n",
		"/repo/modules/Slice.pm": "package Slice;\n1;\n",
		"/cvs/CVS/Entries":       "/README/1.1///\n",
		"/cvs/README":            "Ensembl core API\n",
		"/cvs/modules/CVS/Root":  ":ext:cvs.sanger.ac.uk:/cvsroot/ensembl\n",
		"/cvs/modules/Gene.pm":   "package Gene;\nsub stable_id { }\n1;\n",
		"/cvs/modules/Exon.pm":   "package Exon;\n1;\n",
	})
	service := newExportService(testInstance, newScriptedShellExecutor(nil), fileSystem)

	differences, verifyError := service.Verify("/repo", "/cvs")
	require.NoError(testInstance, verifyError)
	require.Len(testInstance, differences, 3)
	require.Equal(testInstance, cvsexport.Difference{Path: "modules/Exon.pm", Kind: cvsexport.DifferenceRemoved}, differences[0])
	require.Equal(testInstance, "modules/Gene.pm", differences[1].Path)
	require.Equal(testInstance, cvsexport.DifferenceModified, differences[1].Kind)
	require.Contains(testInstance, differences[1].Diff, "--- cvs/modules/Gene.pm")
	require.Contains(testInstance, differences[1].Diff, "+++ git/modules/Gene.pm")
	require.Contains(testInstance, differences[1].Diff, "+sub biotype { }\n")
	require.Equal(testInstance, cvsexport.Difference{Path: "modules/Slice.pm", Kind: cvsexport.DifferenceAdded}, differences[2])

	rendered := cvsexport.RenderDifferences(differences)
	require.Contains(testInstance, rendered, "removed modules/Exon.pm\nmodified modules/Gene.pm\nadded modules/Slice.pm\n")
	require.EqualError(testInstance, cvsexport.TreeMismatchError{Differences: differences}, "CVS checkout differs from git worktree in 3 paths")
}

func TestVerifyMatchingTrees(testInstance *testing.T) {
	fileSystem := newCVSCheckout(testInstance)
	writeTree(testInstance, fileSystem, map[string]string{
		"/repo/.git/HEAD":  "ref: refs/heads/main\n",
		"/repo/README":     "Ensembl core API\n",
		"/cvs/CVS/Entries": "/README/1.1///\n",
		"/cvs/README":      "Ensembl core API\n",
	})
	service := newExportService(testInstance, newScriptedShellExecutor(nil), fileSystem)

	differences, verifyError := service.Verify("/repo", "/cvs")
	require.NoError(testInstance, verifyError)
	require.Empty(testInstance, differences)
}

package cvsexport_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/Ensembl/ensembl-git-tools/internal/cvsexport"
	flagutils "github.com/Ensembl/ensembl-git-tools/internal/utils/flags"
)

func executeCommand(testInstance *testing.T, command *cobra.Command, arguments ...string) (string, error) {
	testInstance.Helper()
	root := &cobra.Command{Use: "git-ensembl", SilenceUsage: true, SilenceErrors: true}
	flagutils.BindExecutionFlags(root, flagutils.ExecutionDefaults{}, flagutils.DefaultExecutionFlagDefinitions())
	root.AddCommand(command)

	output := &bytes.Buffer{}
	root.SetOut(output)
	root.SetErr(output)
	root.SetArgs(append([]string{"cvs-export"}, arguments...))
	executionError := root.ExecuteContext(context.Background())
	return output.String(), executionError
}

func TestCVSExportCommandExportsAndVerifies(testInstance *testing.T) {
	fileSystem := newCVSCheckout(testInstance)
	writeTree(testInstance, fileSystem, map[string]string{
		"/repo/README": "Ensembl core API\n",
		"/cvs/README":  "Ensembl core API (stale)\n",
	})
	executor := newScriptedShellExecutor(map[string]scriptedResponse{testRevListConstant: {output: "0123456789abcdef0123\n"}})
	builder := &cvsexport.CommandBuilder{
		Executor:   executor,
		FileSystem: fileSystem,
		ConfigurationProvider: func() cvsexport.CommandConfiguration {
			return cvsexport.CommandConfiguration{CVSDirectory: testCVSDirectoryConstant, RepositoryPath: testRepositoryConstant}
		},
	}

	output, executionError := executeCommand(testInstance, builder.Build(), "release/109..release/110", "--commit", "--verify")
	require.ErrorAs(testInstance, executionError, new(cvsexport.TreeMismatchError))
	require.Contains(testInstance, output, "committed 0123456789ab\n")
	require.Contains(testInstance, output, "modified README\n")
	require.Contains(testInstance, output, "+Ensembl core API\n")
	require.Contains(testInstance, executor.commands, "git cvsexportcommit -w /cvs -p -u -c 0123456789abcdef0123")
}

func TestCVSExportCommandDryRun(testInstance *testing.T) {
	executor := newScriptedShellExecutor(map[string]scriptedResponse{testRevListConstant: {output: "aaa111\n"}})
	builder := &cvsexport.CommandBuilder{Executor: executor, FileSystem: newCVSCheckout(testInstance)}

	output, executionError := executeCommand(testInstance, builder.Build(), "release/109..release/110", "--cvs-dir", "/cvs", "-C", "/repo", "--dry-run")
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, "cvs -q update -d\ngit cvsexportcommit -w /cvs -p -u aaa111\n", output)
}

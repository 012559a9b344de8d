package main

import (
	"fmt"
	"os"

	"github.com/Ensembl/ensembl-git-tools/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the git-ensembl command-line application.
func main() {
	executionError := cli.Execute()
	if executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
	}
	os.Exit(cli.ExitCode(executionError))
}

// Package cli constructs the git-ensembl command-line interface, wiring the
// Cobra command hierarchy, the configuration loader, the module registry and
// structured logging. Execute runs the default command set; ExitCode maps the
// returned error to a process exit status.
package cli

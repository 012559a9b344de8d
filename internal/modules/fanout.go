package modules

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Ensembl/ensembl-git-tools/internal/registry"
)

const (
	moduleErrorTemplateConstant   = "%s: %v"
	modulesFailedTemplateConstant = "%d of %d modules failed: %s"
	moduleNameSeparatorConstant   = ", "
	minimumWorkerCountConstant    = 1
)

// ModuleError attributes an error to a module.
type ModuleError struct {
	Module string
	Err    error
}

// Error prefixes the cause with the module name.
func (moduleError ModuleError) Error() string {
	return fmt.Sprintf(moduleErrorTemplateConstant, moduleError.Module, moduleError.Err)
}

// Unwrap exposes the cause.
func (moduleError ModuleError) Unwrap() error {
	return moduleError.Err
}

// ModulesFailedError summarizes a multi-module run in which some modules failed.
type ModulesFailedError struct {
	Failed []string
	Total  int
	Err    error
}

// Error names the failed modules.
func (failedError ModulesFailedError) Error() string {
	return fmt.Sprintf(modulesFailedTemplateConstant, len(failedError.Failed), failedError.Total, strings.Join(failedError.Failed, moduleNameSeparatorConstant))
}

// Unwrap exposes the combined per-module errors.
func (failedError ModulesFailedError) Unwrap() error {
	return failedError.Err
}

// ModuleResult pairs a module with the value or error its operation produced.
type ModuleResult[T any] struct {
	Module registry.Module
	Value  T
	Err    error
}

// ForEachModule runs operation for every module with at most jobs concurrent workers.
// Results keep the order of modules. The returned error is nil when every module
// succeeded and a ModulesFailedError otherwise.
func ForEachModule[T any](executionContext context.Context, modules []registry.Module, jobs int, operation func(context.Context, registry.Module) (T, error)) ([]ModuleResult[T], error) {
	if jobs < minimumWorkerCountConstant {
		jobs = minimumWorkerCountConstant
	}

	results := make([]ModuleResult[T], len(modules))
	var group errgroup.Group
	group.SetLimit(jobs)
	for moduleIndex, module := range modules {
		group.Go(func() error {
			value, operationError := operation(executionContext, module)
			results[moduleIndex] = ModuleResult[T]{Module: module, Value: value}
			if operationError != nil {
				results[moduleIndex].Err = ModuleError{Module: module.Name, Err: operationError}
			}
			return nil
		})
	}
	_ = group.Wait()

	var combined error
	var failed []string
	for _, result := range results {
		if result.Err != nil {
			combined = multierr.Append(combined, result.Err)
			failed = append(failed, result.Module.Name)
		}
	}
	if combined == nil {
		return results, nil
	}
	return results, ModulesFailedError{Failed: failed, Total: len(modules), Err: combined}
}

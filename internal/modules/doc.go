// Package modules runs git operations across the checkouts of registry modules.
//
// Every module lives at <directory>/<module name>. Operations fan out with a
// bounded number of workers, results are reported in module order, and a
// failure in one module never stops the others.
package modules

// Package registry holds the table of Ensembl modules and the named groups used to
// select them. The built-in table can be extended or replaced from configuration
// and from a JSON or YAML override file.
package registry

// Package identity parses "Name <email>" identities and rewrites commit authorship.
package identity

// Package internalcheck holds source-level policy tests for the apicheck packages.
//
// The tests load the apicheck packages with golang.org/x/tools/go/packages
// and walk their syntax trees. They keep the evaluator a pure function of its
// arguments (no environment, files or process exit) and check that every fmt
// call formats a symbol Value through its String method and its raw integers
// in decimal.
//
// The package has no exported API.
package internalcheck

// Package main provides the entry point for the dependents CLI.
//
// dependents walks the "Used by" listing of a GitHub repository and prints
// the dependent repositories ranked by stars.
//
// Usage:
//
//	dependents scan https://github.com/owner/repo
//	dependents compare owner/repo
//
// See --help for all available options.
package main

func main() {
	Execute()
}

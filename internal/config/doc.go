// Package config provides configuration structures and utilities for dependents.
// A Config starts from built-in defaults and is refined, from weakest to
// strongest, by the .dependents file, DEPENDENTS_* environment variables and
// explicit command line flags.
package config

// Package app provides CLI option interfaces and grouped flag sets.
package app

import (
	"github.com/spf13/pflag"
)

// CliOptions abstracts the configuration options of a command line app.
type CliOptions interface {
	// Flags returns the flags grouped by section name.
	Flags() NamedFlagSets
	// Complete fills in defaults derived from other options.
	Complete() error
	// Validate checks all options for conflicts and invalid values.
	Validate() error
}

// NamedFlagSets stores named flag sets in the order they were declared.
type NamedFlagSets struct {
	// Order is the order in which the flag sets were added.
	Order []string
	// FlagSets maps section name to flag set.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for the given name, creating it on first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}

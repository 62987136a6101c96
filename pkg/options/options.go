// Package options defines the contract shared by all configurable option
// groups and small helpers for composing flag names.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group that can be bound to a
// command line.
type IOptions interface {
	// Validate checks the option values and may normalize them in place.
	// It returns every problem found rather than stopping at the first.
	Validate() []error

	// AddFlags binds the options to the given flag set. Prefixes are
	// prepended to every flag name, joined with ".".
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join builds a flag-name prefix from the given segments, producing strings
// like "mysql." or "server.http.". An empty segment list yields "".
func Join(prefixes ...string) string {
	p := strings.Join(prefixes, ".")
	if p == "" {
		return ""
	}
	return p + "."
}

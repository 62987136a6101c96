// Package component defines the shared contracts for backing-service
// components such as the MySQL raw store and the Milvus chunk index.
package component

import "github.com/spf13/pflag"

// ConfigOptions is implemented by every component option type. It gives each
// backing service the same configure-complete-validate lifecycle regardless
// of what it connects to.
type ConfigOptions interface {
	// Complete fills defaults and derived fields. Call it before Validate.
	Complete() error

	// Validate checks required fields, ranges, and field combinations.
	Validate() error

	// AddFlags binds the options to fs. namePrefix is prepended to every
	// flag name ("mysql." yields --mysql.host and so on).
	AddFlags(fs *pflag.FlagSet, namePrefix string)
}

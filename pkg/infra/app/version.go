package app

import (
	"github.com/kart-io/version"
	"github.com/spf13/pflag"
)

// GetVersion returns the short git version string.
func GetVersion() string {
	return version.Get().GitVersion
}

// GetVersionInfo returns build metadata: git version, commit, build date.
func GetVersionInfo() version.Info {
	return version.Get()
}

// AddVersionFlags wires --version into the given flag set.
func AddVersionFlags(fs *pflag.FlagSet) {
	version.AddFlags(fs)
}

// PrintAndExitIfRequested honors --version before the app starts.
func PrintAndExitIfRequested() {
	version.PrintAndExitIfRequested()
}

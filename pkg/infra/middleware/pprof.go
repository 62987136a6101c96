package middleware

import (
	"net/http/pprof"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// RegisterPprofRoutesWithOptions 注册 Pprof 路由端点。
// 仅应在受信网络或鉴权保护下启用。
func RegisterPprofRoutesWithOptions(engine *gin.Engine, opts mwopts.PprofOptions) {
	// Set profiling rates if specified
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}
	if opts.MutexProfileFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexProfileFraction)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/debug/pprof"
	}
	prefix = strings.TrimSuffix(prefix, "/")

	// Index handler, shows all available profiles
	engine.GET(prefix+"/", gin.WrapF(pprof.Index))
	engine.GET(prefix, gin.WrapF(pprof.Index))

	if opts.EnableCmdline {
		engine.GET(prefix+"/cmdline", gin.WrapF(pprof.Cmdline))
	}

	// CPU profile
	if opts.EnableProfile {
		engine.GET(prefix+"/profile", gin.WrapF(pprof.Profile))
	}

	if opts.EnableSymbol {
		engine.GET(prefix+"/symbol", gin.WrapF(pprof.Symbol))
		engine.POST(prefix+"/symbol", gin.WrapF(pprof.Symbol))
	}

	if opts.EnableTrace {
		engine.GET(prefix+"/trace", gin.WrapF(pprof.Trace))
	}

	// Named runtime profiles
	profiles := []string{
		"allocs",
		"block",
		"goroutine",
		"heap",
		"mutex",
		"threadcreate",
	}
	for _, profile := range profiles {
		engine.GET(prefix+"/"+profile, gin.WrapH(pprof.Handler(profile)))
	}
}

// EnableBlockProfiling enables block profiling with the given rate.
// A rate of 1 records every blocking event, while 0 disables profiling.
func EnableBlockProfiling(rate int) {
	runtime.SetBlockProfileRate(rate)
}

// EnableMutexProfiling enables mutex profiling with the given fraction.
// A fraction of 1 records every contention event, while 0 disables profiling.
func EnableMutexProfiling(fraction int) {
	runtime.SetMutexProfileFraction(fraction)
}

// DisableBlockProfiling disables block profiling.
func DisableBlockProfiling() {
	runtime.SetBlockProfileRate(0)
}

// DisableMutexProfiling disables mutex profiling.
func DisableMutexProfiling() {
	runtime.SetMutexProfileFraction(0)
}

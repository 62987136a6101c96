// Package security provides CORS and related protection middleware.
package security

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/provenance/pkg/options/middleware"
)

// CORS returns CORS middleware with default options.
func CORS() gin.HandlerFunc {
	return CORSWithOptions(*mwopts.NewCORSOptions())
}

// validateCORSOptions 校验 CORS 配置，CORSWithOptions 启动时调用。
func validateCORSOptions(opts mwopts.CORSOptions) error {
	if len(opts.AllowOrigins) == 0 {
		return fmt.Errorf("CORS: AllowOrigins must be explicitly configured, empty list not allowed")
	}

	hasWildcard := false
	for _, origin := range opts.AllowOrigins {
		if origin == "*" {
			hasWildcard = true
			continue
		}
		if err := validateOriginFormat(origin); err != nil {
			return fmt.Errorf("CORS: invalid origin format '%s': %w", origin, err)
		}
	}

	// 通配符与凭证互斥，RFC6454 的安全要求
	if hasWildcard && opts.AllowCredentials {
		return fmt.Errorf("CORS: cannot use wildcard origin '*' with AllowCredentials=true (RFC6454 security requirement)")
	}
	return nil
}

// validateOriginFormat enforces the scheme://host[:port] shape, with no
// path, query, or fragment.
func validateOriginFormat(origin string) error {
	if origin == "" {
		return fmt.Errorf("origin cannot be empty")
	}
	if !strings.Contains(origin, "://") {
		return fmt.Errorf("origin must include scheme (http:// or https://)")
	}

	schemeEnd := strings.Index(origin, "://") + 3
	if schemeEnd < len(origin) && strings.ContainsAny(origin[schemeEnd:], "/?#") {
		return fmt.Errorf("origin should not include path, query, or fragment")
	}
	return nil
}

func fillCORSDefaults(opts *mwopts.CORSOptions) {
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}
	if len(opts.AllowMethods) == 0 {
		opts.AllowMethods = []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodHead,
			http.MethodOptions,
		}
	}
	if len(opts.AllowHeaders) == 0 {
		opts.AllowHeaders = []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
		}
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 86400
	}
}

// CORSWithOptions returns CORS middleware for the given options. Invalid
// configuration panics so the process fails at startup rather than serving
// a broken policy.
func CORSWithOptions(opts mwopts.CORSOptions) gin.HandlerFunc {
	if err := validateCORSOptions(opts); err != nil {
		panic(err)
	}
	fillCORSDefaults(&opts)

	allowMethods := strings.Join(opts.AllowMethods, ", ")
	allowHeaders := strings.Join(opts.AllowHeaders, ", ")
	exposeHeaders := strings.Join(opts.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowedOrigin := ""
		for _, o := range opts.AllowOrigins {
			if o == "*" || o == origin {
				allowedOrigin = o
				break
			}
		}
		if allowedOrigin == "" {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		if opts.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if exposeHeaders != "" {
			c.Header("Access-Control-Expose-Headers", exposeHeaders)
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", allowMethods)
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Package pathutil provides path matching helpers shared by middleware.
package pathutil

import "strings"

// Matcher reports whether a request path should be skipped.
type Matcher func(path string) bool

// NewPathMatcher 构建路径匹配器。
// skipPaths 精确匹配，skipPrefixes 前缀匹配。
// 精确路径使用 map 查找，避免每个请求线性扫描。
func NewPathMatcher(skipPaths, skipPrefixes []string) Matcher {
	if len(skipPaths) == 0 && len(skipPrefixes) == 0 {
		return func(string) bool { return false }
	}

	exact := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		exact[p] = struct{}{}
	}

	return func(path string) bool {
		if _, ok := exact[path]; ok {
			return true
		}
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}
}

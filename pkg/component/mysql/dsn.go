package mysql

import (
	"fmt"
	"net/url"
)

// BuildDSN renders the go-sql-driver DSN for the given options:
// username:password@tcp(host:port)/database?params
//
// The password is query-escaped. Unescaped characters like @ or / in a
// password would otherwise change how the driver parses the DSN.
func BuildDSN(opts *Options) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		opts.Username,
		url.QueryEscape(opts.Password),
		opts.Host,
		opts.Port,
		opts.Database,
	)
}

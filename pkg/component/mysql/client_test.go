package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reachableOptions() *Options {
	opts := NewOptions()
	opts.Host = "localhost"
	opts.Database = "testdb"
	return opts
}

// 没有本地 MySQL 时 New 会失败，这里只验证 API 形状，不断言连接结果。
func TestNewWithoutServer(t *testing.T) {
	if _, err := New(reachableOptions()); err != nil {
		t.Logf("expected failure without a MySQL server: %v", err)
	}
}

func TestNewWithContextWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewWithContext(ctx, reachableOptions()); err != nil {
		t.Logf("expected failure without a MySQL server: %v", err)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	valid := Options{Host: "localhost", Port: 3306, Username: "root", Database: "testdb"}

	tests := []struct {
		name   string
		mutate func(*Options)
		nilOpt bool
	}{
		{name: "nil options", nilOpt: true},
		{name: "empty host", mutate: func(o *Options) { o.Host = "" }},
		{name: "empty database", mutate: func(o *Options) { o.Database = "" }},
		{name: "empty username", mutate: func(o *Options) { o.Username = "" }},
		{name: "zero port", mutate: func(o *Options) { o.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts *Options
			if !tt.nilOpt {
				o := valid
				tt.mutate(&o)
				opts = &o
			}
			_, err := New(opts)
			assert.Error(t, err)
		})
	}
}

func TestValidateOptions(t *testing.T) {
	valid := Options{Host: "localhost", Port: 3306, Username: "root", Database: "testdb"}
	require.NoError(t, validateOptions(&valid))

	tooHigh := valid
	tooHigh.Port = 65536
	assert.Error(t, validateOptions(&tooHigh))

	tooLow := valid
	tooLow.Port = 0
	assert.Error(t, validateOptions(&tooLow))
}

func TestClientName(t *testing.T) {
	assert.Equal(t, "mysql", (&Client{}).Name())
}

func TestFactoryHoldsOptions(t *testing.T) {
	opts := reachableOptions()
	factory := NewFactory(opts)
	require.NotNil(t, factory)
	assert.Same(t, opts, factory.Options())
}

func TestFactoryCloneIsIndependent(t *testing.T) {
	factory := NewFactory(reachableOptions())
	cloned := factory.Clone()

	require.NotSame(t, factory, cloned)
	require.NotSame(t, factory.Options(), cloned.Options())

	cloned.Options().Database = "cloned_db"
	assert.NotEqual(t, "cloned_db", factory.Options().Database)
}

func TestFactoryCreateNilOptions(t *testing.T) {
	_, err := NewFactory(nil).Create(context.Background())
	assert.Error(t, err)
}

func TestFactoryCreateWithoutServer(t *testing.T) {
	if _, err := NewFactory(reachableOptions()).Create(context.Background()); err != nil {
		t.Logf("expected failure without a MySQL server: %v", err)
	}
}

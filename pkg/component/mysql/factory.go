package mysql

import (
	"context"
	"fmt"

	"github.com/kart-io/provenance/pkg/component/storage"
)

// Factory creates MySQL clients from a fixed set of options, implementing
// storage.Factory so callers can defer connection setup and inject fakes in
// tests.
//
// Example:
//
//	opts := NewOptions()
//	opts.Host = "localhost"
//	opts.Database = "provenance"
//
//	factory := NewFactory(opts)
//	client, err := factory.Create(context.Background())
//	if err != nil {
//	    log.Fatalf("failed to create MySQL client: %v", err)
//	}
//	defer client.Close()
type Factory struct {
	opts *Options
}

// NewFactory returns a factory bound to opts. One factory can create any
// number of clients with the same configuration.
func NewFactory(opts *Options) *Factory {
	return &Factory{opts: opts}
}

// Create builds a client, connects, and verifies connectivity before
// returning. The context bounds the whole creation process.
func (f *Factory) Create(ctx context.Context) (storage.Client, error) {
	if f.opts == nil {
		return nil, fmt.Errorf("mysql options cannot be nil")
	}

	client, err := NewWithContext(ctx, f.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql client: %w", err)
	}
	return client, nil
}

// Options exposes the factory's configuration for inspection.
func (f *Factory) Options() *Options {
	return f.opts
}

// Clone returns a factory with a copy of the options, for deriving variants:
//
//	devFactory := factory.Clone()
//	devFactory.Options().Database = "dev_db"
func (f *Factory) Clone() *Factory {
	optsCopy := *f.opts
	return &Factory{opts: &optsCopy}
}

package component_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/provenance/pkg/component"
	"github.com/kart-io/provenance/pkg/component/mysql"
)

func TestConfigOptionsInterface(t *testing.T) {
	var opts component.ConfigOptions = mysql.NewOptions()

	require.NoError(t, opts.Complete())
	require.NoError(t, opts.Validate())

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs, "")

	flagCount := 0
	fs.VisitAll(func(_ *pflag.Flag) { flagCount++ })
	assert.NotZero(t, flagCount, "AddFlags must register at least one flag")
}

func TestConfigOptionsCompleteIsIdempotent(t *testing.T) {
	opts := mysql.NewOptions()

	require.NoError(t, opts.Complete())
	require.NoError(t, opts.Complete())
}

func TestConfigOptionsValidateAfterComplete(t *testing.T) {
	opts := mysql.NewOptions()

	require.NoError(t, opts.Complete())
	assert.NoError(t, opts.Validate())
}

func TestConfigOptionsAddFlagsNaming(t *testing.T) {
	tests := []struct {
		name       string
		namePrefix string
		expectFlag string
	}{
		{name: "component prefix", namePrefix: "mysql.", expectFlag: "mysql.host"},
		{name: "instance prefix", namePrefix: "raw-store.mysql.", expectFlag: "raw-store.mysql.host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			mysql.NewOptions().AddFlags(fs, tt.namePrefix)

			assert.NotNil(t, fs.Lookup(tt.expectFlag), "expected flag %q", tt.expectFlag)
		})
	}
}

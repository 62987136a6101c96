// Package app bootstraps CLI applications on Cobra, Viper, and Pflag.
//
// It wires the pieces a service binary needs: a root command, config
// loading from file plus environment plus flags, and option validation
// through the functional options pattern:
//
//	app := app.NewApp(
//	    app.WithName("provenance-apiserver"),
//	    app.WithDescription("Hybrid retrieval API server"),
//	    app.WithOptions(opts),
//	    app.WithRunFunc(run),
//	)
//	app.Run()
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	options "github.com/kart-io/provenance/pkg/options/app"
	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// App holds the assembled command and its configuration pipeline.
type App struct {
	name        string
	shortDesc   string
	description string
	options     options.CliOptions
	runFunc     RunFunc
	cmd         *cobra.Command
	args        cobra.PositionalArgs
	silence     bool
	noVersion   bool
	noConfig    bool
}

// RunFunc is the application body, invoked after config load and option
// validation succeed.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// WithName sets the binary name used for the command and config lookup.
func WithName(name string) Option {
	return func(a *App) { a.name = name }
}

// WithShortDescription sets the one-line description.
func WithShortDescription(desc string) Option {
	return func(a *App) { a.shortDesc = desc }
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions attaches the CLI option set to complete and validate.
func WithOptions(opts options.CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the application body.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithArgs sets positional argument validation.
func WithArgs(args cobra.PositionalArgs) Option {
	return func(a *App) { a.args = args }
}

// WithSilence suppresses Cobra's own error printing.
func WithSilence() Option {
	return func(a *App) { a.silence = true }
}

// WithNoVersion drops the version flag.
func WithNoVersion() Option {
	return func(a *App) { a.noVersion = true }
}

// WithNoConfig disables config file loading.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// NewApp applies the options and builds the root command.
func NewApp(opts ...Option) *App {
	a := &App{
		name: filepath.Base(os.Args[0]),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:   a.name,
		Short: a.shortDesc,
		Long:  a.description,
		RunE:  a.runCommand,
		Args:  a.args,
		// 出错时不打印 usage，用户可以用 --help 查看
		SilenceUsage: true,
	}
	if a.silence {
		cmd.SilenceErrors = true
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	a.addGlobalFlags(cmd)

	if a.options != nil {
		fss := a.options.Flags()
		for _, name := range fss.Order {
			cmd.Flags().AddFlagSet(fss.FlagSets[name])
		}
	}

	a.cmd = cmd
}

func (a *App) addGlobalFlags(cmd *cobra.Command) {
	if !a.noConfig {
		cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	}
	if !a.noVersion {
		version.AddFlags(cmd.PersistentFlags())
	}
	cmd.PersistentFlags().BoolP("help", "h", false, "Help for "+a.name)
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if !a.noVersion {
		version.PrintAndExitIfRequested()
	}

	if !a.noConfig {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc != nil {
		return a.runFunc()
	}
	return nil
}

// loadConfig merges config file, environment variables, and flags. Flags
// explicitly set on the command line win over file and environment values.
func (a *App) loadConfig(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(a.name)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(filepath.Join(os.Getenv("HOME"), "."+a.name))
		viper.AddConfigPath("/etc/" + a.name)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// 找不到配置文件不算错误，继续用环境变量和 flag
	}

	expandEnvVars()

	viper.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(a.name, "-", "_")))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// Unmarshal 会覆盖 flag 值，先记下用户显式设置的 flag，之后重放
	changedFlags := make(map[string]string)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changedFlags[f.Name] = f.Value.String()
		}
	})

	if err := viper.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, val := range changedFlags {
		if err := cmd.Flags().Set(name, val); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars 展开配置值里的 ${VAR} 和 $VAR，未定义的变量保持原样。
func expandEnvVars() {
	for _, key := range viper.AllKeys() {
		strVal, ok := viper.Get(key).(string)
		if !ok {
			continue
		}

		expanded := envPattern.ReplaceAllStringFunc(strVal, func(match string) string {
			var varName string
			if strings.HasPrefix(match, "${") {
				varName = match[2 : len(match)-1]
			} else {
				varName = match[1:]
			}
			if envVal := os.Getenv(varName); envVal != "" {
				return envVal
			}
			return match
		})
		if expanded != strVal {
			viper.Set(key, expanded)
		}
	}
}

// Run executes the root command, exiting nonzero on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command exposes the underlying cobra command, mainly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

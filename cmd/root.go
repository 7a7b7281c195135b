// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/config"
	"github.com/xkilldash9x/pypi-token-client/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	cfgFile   string
	headful   bool
	headless  bool
	persistTo string
	username  string
	password  string
	baseURL   string
	logLevel  string
	noKeyring bool
}

// NewRootCommand builds the command tree wired to the real browser, keyring
// and terminal.
func NewRootCommand() *cobra.Command {
	return newRootCmd(defaultDeps())
}

func newRootCmd(d deps) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "pypi-token-client",
		Short: "Create, list and delete PyPI API tokens by driving a browser.",
		Long: `pypi-token-client logs into PyPI with a real (by default headless) browser
and manages the account's API tokens the way a person would through the web UI.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, flags); err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			applyFlagOverrides(cmd, cfg, flags)

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting pypi-token-client", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.cfgFile, "config", "c", "", "config file (default is ./"+config.DefaultConfigName+".yaml)")
	pf.BoolVar(&flags.headful, "headful", false, "display the browser window (i.e. no-headless mode)")
	pf.BoolVar(&flags.headless, "headless", true, "run the browser without a window")
	pf.StringVar(&flags.persistTo, "persist-to", "", "keep the browser profile in this directory between runs, e.g. ~/.pypi-token-client/persist-chromium")
	pf.StringVarP(&flags.username, "username", "u", "", "PyPI username (prompted for when missing)")
	pf.StringVar(&flags.password, "password", "", "PyPI password (looked up in the keyring or prompted for when missing)")
	pf.StringVar(&flags.baseURL, "base-url", "", "package index to manage, e.g. https://test.pypi.org")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&flags.noKeyring, "no-keyring", false, "neither read nor store credentials in the system keyring")
	rootCmd.MarkFlagsMutuallyExclusive("headful", "headless")

	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(
		newLoginCmd(d),
		newCreateCmd(d),
		newListCmd(d),
		newDeleteCmd(d),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree with args and logs the failure, if any.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	return execute(ctx, rootCmd)
}

func execute(ctx context.Context, rootCmd *cobra.Command) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// No-op when the pre-run already set the logger up.
		observability.InitializeLogger(fallbackLoggerConfig())
		logger := observability.GetLogger()
		if errors.Is(err, context.Canceled) {
			logger.Info("Interrupted.")
		} else {
			logger.Error("Command execution failed", zap.Error(err))
		}
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file and environment into v and binds
// the flags that map one to one onto config keys.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, flags *globalFlags) error {
	if flags.cfgFile != "" {
		v.SetConfigFile(flags.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(config.DefaultConfigName)
		v.SetConfigType("yaml")
	}

	config.BindEnvironment(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	bindings := map[string]string{
		"persist-to": "browser.persist_dir",
		"username":   "pypi.username",
		"password":   "pypi.password",
		"base-url":   "pypi.base_url",
		"log-level":  "logger.level",
	}
	for flag, key := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	if flags.noKeyring {
		v.Set("login.use_keyring", false)
	}
	return nil
}

// applyFlagOverrides handles the flags that don't map onto a single key.
func applyFlagOverrides(cmd *cobra.Command, cfg config.Interface, flags *globalFlags) {
	switch {
	case cmd.Flags().Changed("headful"):
		cfg.SetBrowserHeadless(!flags.headful)
	case cmd.Flags().Changed("headless"):
		cfg.SetBrowserHeadless(flags.headless)
	}
}

func fallbackLoggerConfig() config.LoggerConfig {
	return config.NewDefaultConfig().Logger()
}

func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not initialized")
	}
	return cfg, nil
}

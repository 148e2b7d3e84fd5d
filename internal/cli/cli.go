package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vk/assetgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	CodeFailure = 1
	CodeUsage   = 2
)

func usageError(err error) error {
	return &ExitError{Code: CodeUsage, Message: err.Error()}
}

func failure(err error) error {
	return &ExitError{Code: CodeFailure, Message: err.Error()}
}

// options are the raw flag values shared by all commands.
type options struct {
	root            string
	configPath      string
	logLevel        string
	logFormat       string
	workers         int
	healthcheckPort int
	optimize        bool
	url             string
}

func (o *options) appConfig() (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		Root:            o.root,
		ConfigPath:      o.configPath,
		LogFormat:       o.logFormat,
		LogLevel:        o.logLevel,
		HealthcheckPort: o.healthcheckPort,
		WorkerCount:     o.workers,
		Optimize:        o.optimize,
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

func (o *options) newApp(outW io.Writer) (*app.App, error) {
	cfg, err := o.appConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(outW, cfg)
	if err != nil {
		return nil, failure(err)
	}
	return a, nil
}

// Execute runs the command line in args. Every returned error is an
// *ExitError.
func Execute(ctx context.Context, args []string, outW io.Writer) error {
	loadDotEnv()

	cmd := NewRootCommand(outW)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return usageError(err)
	}
	return nil
}

// NewRootCommand builds the command tree. Output and logs go to outW.
// Flag defaults come from ASSETGRID_* environment variables.
func NewRootCommand(outW io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "assetgrid",
		Short: "Compile, join and copy web assets",
		Long: `assetgrid compiles the sources of a web project, joins them into
output files in dependency order and copies static assets to the public
directory. It can watch the project and notify browsers to reload.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&opts.root, "root", envString("ASSETGRID_ROOT", "."), "Project root directory.")
	pf.StringVarP(&opts.configPath, "config", "c", envString("ASSETGRID_CONFIG", ""), "Project config file (.hcl or .yaml). Defaults to assetgrid.hcl or assetgrid.yaml in the root.")
	pf.StringVar(&opts.logLevel, "log-level", envString("ASSETGRID_LOG_LEVEL", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", envString("ASSETGRID_LOG_FORMAT", "text"), "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&opts.workers, "workers", envInt("ASSETGRID_WORKERS", 0), "Number of concurrent build workers. 0 uses the CPU count.")
	pf.IntVar(&opts.healthcheckPort, "healthcheck-port", envInt("ASSETGRID_HEALTHCHECK_PORT", 0), "Port for the health check, metrics and live reload server. 0 is disabled.")

	build := &cobra.Command{
		Use:   "build",
		Short: "Build the project once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(outW)
			if err != nil {
				return err
			}
			if _, err := a.Build(cmd.Context()); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	build.Flags().BoolVar(&opts.optimize, "optimize", false, "Optimize outputs regardless of the project config.")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Build the project and rebuild on changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(outW)
			if err != nil {
				return err
			}
			if err := a.Watch(cmd.Context()); err != nil {
				return failure(err)
			}
			return nil
		},
	}

	packages := &cobra.Command{
		Use:   "packages",
		Short: "Print the resolved package order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(outW)
			if err != nil {
				return err
			}
			if err := a.Packages(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return failure(err)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as HCL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(outW)
			if err != nil {
				return err
			}
			if err := a.WriteConfig(cmd.OutOrStdout()); err != nil {
				return failure(err)
			}
			return nil
		},
	}

	listen := &cobra.Command{
		Use:   "listen",
		Short: "Print reload events from a running watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.url == "" {
				return usageError(errors.New("--url is required"))
			}
			cfg, err := opts.appConfig()
			if err != nil {
				return err
			}
			if err := app.Listen(cmd.Context(), outW, cfg, opts.url); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	listen.Flags().StringVar(&opts.url, "url", envString("ASSETGRID_RELOAD_URL", ""), "Base URL of the watcher's health check server, e.g. http://localhost:8080.")

	root.AddCommand(build, watch, packages, configCmd, listen)
	return root
}

// loadDotEnv loads .env from the working directory. Existing environment
// variables win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Ignoring non-integer environment variable.", "key", key, "value", v)
		return def
	}
	return n
}

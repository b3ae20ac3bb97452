package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mnehpets/onerpc/dispatch"
)

// rootOptions holds the flag values. Flags only override the loaded
// configuration when they are set explicitly.
type rootOptions struct {
	configPath string
	envFile    string

	namespace string
	separator string
	logLevel  string

	addr           string
	path           string
	metricsPath    string
	corsOrigins    []string
	maxBatch       int
	trustRequestID bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaults := DefaultConfig()

	rootCmd := &cobra.Command{
		Use:          "onerpc",
		Short:        "A JSON-RPC 2.0 dispatcher for the onerpc sample API",
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML configuration file")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with ONERPC_* variables; ignored if missing")
	pf.StringVar(&opts.namespace, "namespace", defaults.Namespace, "handler group namespace")
	pf.StringVar(&opts.separator, "separator", defaults.Separator, "method name segment separator")
	pf.StringVar(&opts.logLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg, cmd.ErrOrStderr()))
		},
	}
	sf := serveCmd.Flags()
	sf.StringVar(&opts.addr, "addr", defaults.Addr, "listen address")
	sf.StringVar(&opts.path, "path", defaults.Path, "RPC endpoint path")
	sf.StringVar(&opts.metricsPath, "metrics-path", defaults.MetricsPath, "Prometheus endpoint path; empty disables metrics")
	sf.StringSliceVar(&opts.corsOrigins, "cors-origin", nil, "allowed CORS origin (repeatable, * for any)")
	sf.IntVar(&opts.maxBatch, "max-batch", defaults.MaxBatch, "maximum requests per batch; 0 for no limit")
	sf.BoolVar(&opts.trustRequestID, "trust-request-id", false, "reuse X-Request-ID headers sent by clients")

	callCmd := &cobra.Command{
		Use:   "call <method> [params]",
		Short: "Evaluate one call locally and print the result as JSON",
		Long: `Evaluate one call without starting a server. params is a JSON array of
positional arguments or a JSON object of named arguments.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			var params string
			if len(args) == 2 {
				params = args[1]
			}
			return runCall(cmd, cfg, args[0], params)
		},
	}

	methodsCmd := &cobra.Command{
		Use:   "methods",
		Short: "List the callable method names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			return runMethods(cmd, cfg)
		},
	}

	rootCmd.AddCommand(serveCmd, callCmd, methodsCmd)
	return rootCmd
}

// config loads the layered configuration and applies explicitly set flags.
func (o *rootOptions) config(cmd *cobra.Command) (Config, error) {
	cfg, err := LoadConfig(o.configPath, o.envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("namespace") {
		cfg.Namespace = o.namespace
	}
	if flags.Changed("separator") {
		cfg.Separator = o.separator
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("addr") {
		cfg.Addr = o.addr
	}
	if flags.Changed("path") {
		cfg.Path = o.path
	}
	if flags.Changed("metrics-path") {
		cfg.MetricsPath = o.metricsPath
	}
	if flags.Changed("cors-origin") {
		cfg.CORSOrigins = o.corsOrigins
	}
	if flags.Changed("max-batch") {
		cfg.MaxBatch = o.maxBatch
	}
	if flags.Changed("trust-request-id") {
		cfg.TrustRequestID = o.trustRequestID
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}

func runCall(cmd *cobra.Command, cfg Config, method, params string) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())
	s, err := newStack(cfg, logger)
	if err != nil {
		return err
	}

	if group, selector, err := s.mapper.Split(method); err == nil {
		logger.Debug("resolved", slog.String("group", group), slog.String("selector", selector))
	}

	args, err := dispatch.ParseArguments(json.RawMessage(params))
	if err != nil {
		return fmt.Errorf("call %s: params: %w", method, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	result, err := s.evaluator.Evaluate(cmd.Context(), method, args)
	if err != nil {
		rpcErr, ok := dispatch.AsError(err)
		if !ok {
			rpcErr = dispatch.NewInternalError("internal error")
		}
		if encErr := enc.Encode(map[string]any{"error": rpcErr}); encErr != nil {
			return encErr
		}
		return fmt.Errorf("call %s: %w", method, err)
	}
	return enc.Encode(result)
}

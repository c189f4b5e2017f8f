package main

import (
	"github.com/spf13/cobra"

	"github.com/searchktools/fast-backend/app"
	"github.com/searchktools/fast-backend/apperror"
	"github.com/searchktools/fast-backend/buildinfo"
	"github.com/searchktools/fast-backend/config"
	"github.com/searchktools/fast-backend/logger"
)

type rootFlags struct {
	configFile string
	envFile    string
	host       string
	port       int
	protocol   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "fast-backend",
		Short: "Minimal HTTP backend with health, metrics, JSON processing and binary passthrough endpoints",
		Long: `fast-backend serves GET /health, GET /metrics, POST /api/process and POST /api/grpc
behind access logging and a permissive CORS policy.

The bind address comes from HOST and PORT (default 0.0.0.0:8080). Other settings are
read from the environment, an optional config file and a .env file.`,
		Version:       buildinfo.Resolve(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, flags)
		},
	}
	cmd.SetVersionTemplate("fast-backend version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file filling unset environment variables")
	pf.StringVar(&flags.host, "host", "", "bind host (overrides HOST)")
	pf.IntVar(&flags.port, "port", 0, "bind port (overrides PORT)")
	pf.StringVar(&flags.protocol, "protocol", "", "wire protocol: http1 or h2c")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(newServeCmd(flags), newVersionCmd(), newRoutesCmd(flags))
	return cmd
}

// newServeCmd runs the server explicitly; the root command does the same.
func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, flags)
		},
	}
}

// loadConfig resolves configuration, letting explicitly set flags win.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	overrides := map[string]any{}
	set := cmd.Flags().Changed
	if set("host") {
		overrides["host"] = flags.host
	}
	if set("port") {
		overrides["port"] = flags.port
	}
	if set("protocol") {
		overrides["protocol"] = flags.protocol
	}
	if set("log-level") {
		overrides["log_level"] = flags.logLevel
	}

	return config.Load(config.Options{
		File:      flags.configFile,
		DotEnv:    flags.envFile,
		Overrides: overrides,
	})
}

func runServer(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Service:     buildinfo.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := app.New(cfg, log).Run(cmd.Context()); err != nil {
		if apperror.CodeOf(err) == apperror.CodeBindFailure {
			log.Error("failed to start server", logger.String("addr", cfg.Addr()), logger.Err(err))
		} else {
			log.Error("server exited with error", logger.Err(err))
		}
		return err
	}
	return nil
}

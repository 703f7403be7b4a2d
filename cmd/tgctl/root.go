package main

import (
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/teselagen-client/internal/config"
	"github.com/Sternrassler/teselagen-client/pkg/logging"
	"github.com/Sternrassler/teselagen-client/pkg/metrics"
	"github.com/Sternrassler/teselagen-client/pkg/platform"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	configFile  string
	lab         string
	pageSize    int
	all         bool
	metricsAddr string

	cfg      *config.Config
	platform *platform.Platform
	redis    *redis.Client
}

// newRootCmd builds the command tree. The caller must call app.close after
// Execute: cobra skips post-run hooks when a command fails.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "tgctl",
		Short:         "Query a TeselaGen platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file path (YAML or JSON)")
	flags.StringVar(&a.lab, "lab", "", "laboratory id or name")
	flags.IntVar(&a.pageSize, "page-size", 0, "records per page (default from config)")
	flags.BoolVar(&a.all, "all", false, "walk every page instead of fetching one")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(
		newStatusCommand(a),
		newLabsCommand(a),
		newAliquotsCommand(a),
		newSamplesCommand(a),
		newExperimentsCommand(a),
	)

	return rootCmd, a
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("lab") {
		cfg.Lab = a.lab
	}
	if cmd.Flags().Changed("page-size") {
		if a.pageSize < 1 {
			return fmt.Errorf("--page-size must be >= 1 (got %d)", a.pageSize)
		}
		cfg.PageSize = a.pageSize
	}
	a.cfg = cfg

	logCfg := cfg.LoggingConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)

	if a.metricsAddr != "" {
		if _, _, err := metrics.Serve(cmd.Context(), a.metricsAddr); err != nil {
			return err
		}
	}

	a.redis = cfg.RedisClient()
	p, err := platform.New(cfg.ClientConfig(a.redis))
	if err != nil {
		return err
	}
	a.platform = p
	return nil
}

// login authenticates and selects the configured lab.
func (a *app) login(cmd *cobra.Command) error {
	return a.platform.Login(cmd.Context(), a.cfg.LabSelector())
}

// close releases the platform session and the Redis client. It is a no-op
// when setup never ran and safe to call twice.
func (a *app) close() error {
	var err error
	if a.platform != nil {
		err = a.platform.Close()
		a.platform = nil
	}
	if a.redis != nil {
		if cerr := a.redis.Close(); err == nil {
			err = cerr
		}
		a.redis = nil
	}
	return err
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the platform server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := a.platform.API.GetServerStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{"host": a.platform.API.HostURL(), "status": status})
		},
	}
}

func newLabsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "labs",
		Short: "List the laboratories available to the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.platform.API.EnsureLogin(cmd.Context()); err != nil {
				return err
			}
			labs, err := a.platform.API.GetLaboratories(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, labs)
		},
	}
}

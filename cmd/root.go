package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dorkyrobot/cftp/internal/aws"
	"github.com/dorkyrobot/cftp/internal/config"
	"github.com/dorkyrobot/cftp/internal/minio"
	"github.com/dorkyrobot/cftp/internal/nav"
	"github.com/dorkyrobot/cftp/internal/observability"
	"github.com/dorkyrobot/cftp/internal/output"
	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/store/memory"
	"github.com/dorkyrobot/cftp/internal/tui"
)

type rootOptions struct {
	configPath string
	verbose    bool
	snet       bool
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:   "cftp [flags] [command [args...]]",
		Short: "FTP-style shell for object storage",
		Long: `cftp browses an object store as if it were a filesystem: regions hold
containers, and keys split on a delimiter form directories.

Without a command, cftp starts an interactive shell. With one, it runs that
shell command and exits, e.g.

  cftp -r us-east-1 ls -l /photos/2024/`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, &opts, args)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().SetInterspersed(false)
	root.Flags().BoolVarP(&opts.snet, "snet", "s", false, "connect to the initial region over its private network")

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringP("username", "u", "", "account name or access key ID")
	pf.StringP("api-key", "k", "", "API key or secret access key")
	pf.StringP("region", "r", "", "region to connect to on startup")
	pf.String("backend", "", "object store backend: s3, minio or memory")
	pf.String("delimiter", "", "pseudo-directory delimiter")
	pf.String("endpoint", "", "service endpoint for regions without their own")
	pf.String("profile", "", "AWS shared config profile")
	pf.Bool("path-style", false, "use path-style S3 addressing")
	pf.String("fixture", "", "YAML fixture for the memory backend")
	pf.Int("page-size", 0, "entries requested per listing page")
	pf.Int("chunk-size", 0, "read buffer size for downloads")
	pf.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newConfigCmd(&opts))
	return root
}

// Execute runs the root command.
func Execute() error {
	err := newRootCmd().ExecuteContext(context.Background())
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
	}
	return err
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if err := observability.InitCLILogger(cfg.LogLevel); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfg.Path(), err)
	}
	return cfg, nil
}

func runRoot(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := newStore(cfg)
	if err != nil {
		return err
	}

	env := &Env{
		Cfg:      cfg,
		Engine:   nav.New(s, cfg.Delim(), nav.WithPageSize(cfg.PageSize), nav.WithChunkSize(cfg.ChunkSize)),
		User:     promptUser(cfg),
		Out:      cmd.OutOrStdout(),
		TTY:      output.IsTTY(os.Stdout),
		Progress: tui.NewProgressFunc,
	}
	if err := startup(ctx, env, cfg.Region, opts.snet); err != nil {
		return err
	}

	sh := NewShell(env)
	if len(args) > 0 {
		if err := sh.RunCommand(ctx, args); err != nil && !errors.Is(err, errExit) {
			return err
		}
		return nil
	}

	reader := tui.NewLineReader(os.Stdin, env.Out, func(line string) []string {
		return sh.Complete(ctx, line)
	})
	return sh.Loop(ctx, reader)
}

// startup checks the credentials by listing regions and, when region is
// set, connecting to it. Bad credentials end the program; any other failure
// to reach the region leaves the shell unconnected.
func startup(ctx context.Context, env *Env, region string, secure bool) error {
	if _, err := env.Engine.ListRegions(ctx); err != nil {
		return failf(err, "Unable to connect to object storage! Exiting. (%v)", err)
	}
	if region == "" {
		return nil
	}

	err := env.Engine.ChangeRegion(ctx, region, secure)
	switch {
	case store.IsAuthenticationFailed(err):
		return failf(err, "Unable to connect to object storage! Exiting. (%v)", err)
	case err != nil:
		observability.CLILogger.Warn("Unable to connect to initial region",
			zap.String("region", region),
			zap.Error(err))
		fmt.Fprintf(env.Out, "Unable to access region %s.\n", region)
	}
	return nil
}

func promptUser(cfg *config.Config) string {
	switch {
	case cfg.Username != "":
		return cfg.Username
	case cfg.Profile != "":
		return cfg.Profile
	}
	return "cftp"
}

// newStore builds the backend selected by cfg.
func newStore(cfg *config.Config) (store.Store, error) {
	regions := cfg.RegionList()

	switch cfg.Backend {
	case config.BackendMemory:
		s, err := memory.Load(cfg.Fixture, cfg.Delim())
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.BackendMinIO:
		mc := minio.Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.Username,
			SecretKey: cfg.APIKey,
			Delimiter: cfg.Delim(),
		}
		for _, r := range regions {
			mc.Regions = append(mc.Regions, minio.Region{Name: r.Name, Endpoint: r.Endpoint, PrivateEndpoint: r.PrivateEndpoint})
		}
		s, err := minio.New(mc)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		ac := aws.Config{
			AccessKeyID:     cfg.Username,
			SecretAccessKey: cfg.APIKey,
			Profile:         cfg.Profile,
			Endpoint:        cfg.Endpoint,
			ForcePathStyle:  cfg.PathStyle,
			Delimiter:       cfg.Delim(),
		}
		for _, r := range regions {
			ac.Regions = append(ac.Regions, aws.Region{Name: r.Name, Endpoint: r.Endpoint, PrivateEndpoint: r.PrivateEndpoint})
		}
		s, err := aws.New(ac)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", cfg.Path())
			_, err = out.Write(data)
			return err
		},
	}
}

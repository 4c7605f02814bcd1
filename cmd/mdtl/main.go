// Command mdtl fills in missing translations of a multilingual markdown
// documentation site.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/mdtl"
	"github.com/ZaguanLabs/mdtl/cache"
	"github.com/ZaguanLabs/mdtl/config"
	"github.com/ZaguanLabs/mdtl/logging"
	"github.com/ZaguanLabs/mdtl/logging/gologger"
	"github.com/ZaguanLabs/mdtl/plugin"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&globalOptions{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", classify(err))
		return 1
	}
	return 0
}

type globalOptions struct {
	root       string
	configPath string
	logLevel   string
}

func newRootCmd(g *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   mdtl.Name,
		Short: mdtl.Description,
		Long: `mdtl translates "<name>.<default>.md" pages of a documentation site into
every configured language, writing "<name>.<locale>.md" next to the source.
Existing translations are never overwritten.

Configuration is read from mdtl.yaml (or mdtl.yml, mdtl.toml) in the project
root. A .env file there is loaded for API keys.`,
		Version:       mdtl.VersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.root, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Configuration file (default: mdtl.yaml in --root)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level")

	root.AddCommand(
		newBuildCmd(g),
		newServeCmd(g),
		newStatusCmd(g),
		newCacheCmd(g),
		newVersionCmd(),
	)
	return root
}

// ---------------------------------------------------------------------------
// build
// ---------------------------------------------------------------------------

type buildOptions struct {
	workers      int
	dryRun       bool
	refreshStale bool
	strict       bool
}

func newBuildCmd(g *globalOptions) *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Translate every missing page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, g, opts)
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent translations (default: translate.workers)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "List planned translations without calling the service")
	cmd.Flags().BoolVar(&opts.refreshStale, "refresh-stale", false, "Re-translate pages whose source changed")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when any page fails")
	return cmd
}

func runBuild(cmd *cobra.Command, g *globalOptions, opts *buildOptions) error {
	cfg, logs, err := load(g)
	if err != nil {
		return err
	}

	pluginOpts := []plugin.Option{
		plugin.WithLoggerProvider(logs),
		plugin.WithWorkers(opts.workers),
		plugin.WithDryRun(opts.dryRun),
	}
	if opts.refreshStale {
		pluginOpts = append(pluginOpts, plugin.WithRefreshStale(true))
	}

	p := plugin.New(cfg, pluginOpts...)
	p.OnStartup("build")

	report, err := p.OnPreBuild(cmd.Context(), cfg.DefaultLanguage())
	if report != nil {
		printReport(cmd.OutOrStdout(), report, opts.dryRun)
	}
	if err != nil {
		return err
	}
	if opts.strict && report != nil && report.Failed > 0 {
		return errTranslationsFailed(report.Failed)
	}
	return nil
}

func printReport(w io.Writer, report *mdtl.Report, dryRun bool) {
	if dryRun {
		for _, res := range report.Results {
			fmt.Fprintf(w, "would translate %s\n", res.Job)
		}
		fmt.Fprintf(w, "%d planned, %d already present\n", report.Discovered, report.Skipped)
		return
	}
	for _, res := range report.Failures() {
		fmt.Fprintf(w, "failed %s: %v\n", res.Job, res.Err)
	}
	for _, target := range report.Stale {
		fmt.Fprintf(w, "stale %s\n", target)
	}
	fmt.Fprintln(w, report.Summary())
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the lifecycle as the live server does (translation is skipped)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logs, err := load(g)
			if err != nil {
				return err
			}
			p := plugin.New(cfg, plugin.WithLoggerProvider(logs))
			p.OnStartup(plugin.CommandServe)
			if _, err := p.OnPreBuild(cmd.Context(), cfg.DefaultLanguage()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "serve: translation skipped")
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

type statusOutput struct {
	Sources  int      `json:"sources"`
	Missing  []string `json:"missing"`
	Stale    []string `json:"stale"`
	Existing int      `json:"existing"`
}

func newStatusCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List missing and stale translations (no network)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logs, err := load(g)
			if err != nil {
				return err
			}
			scan, stale, err := plugin.New(cfg, plugin.WithLoggerProvider(logs)).Status()
			if err != nil {
				return err
			}

			out := statusOutput{
				Sources:  scan.Sources,
				Missing:  []string{},
				Stale:    []string{},
				Existing: len(scan.Existing),
			}
			for _, job := range scan.Jobs {
				out.Missing = append(out.Missing, job.TargetPath)
			}
			out.Stale = append(out.Stale, stale...)

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			for _, job := range scan.Jobs {
				fmt.Fprintf(w, "missing %s\n", job)
			}
			for _, target := range stale {
				fmt.Fprintf(w, "stale   %s\n", target)
			}
			fmt.Fprintf(w, "%d sources, %d missing, %d present, %d stale\n",
				out.Sources, len(out.Missing), out.Existing, len(out.Stale))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Export or import the translation cache",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "export FILE",
			Short: "Write all cached translations to a JSON file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := load(g)
				if err != nil {
					return err
				}
				tc, err := openCache(cfg)
				if err != nil {
					return err
				}
				meta := map[string]string{"exported_at": time.Now().UTC().Format(time.RFC3339)}
				if err := cache.NewExporter(tc).ExportToFile(args[0], meta); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported cache to %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "import FILE",
			Short: "Load translations from a JSON export into the cache",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := load(g)
				if err != nil {
					return err
				}
				tc, err := openCache(cfg)
				if err != nil {
					return err
				}
				// Memory caches only persist through the snapshot file.
				_, inMemory := tc.(*cache.InMemoryCache)
				snapshot := cfg.CacheFile()
				if inMemory && snapshot == "" {
					return &mdtl.ConfigError{
						Field:   "cache.file",
						Message: "a memory cache keeps imported entries only in cache.file; set it or use a redis cache",
					}
				}
				res, err := cache.NewImporter(tc).ImportFromFile(args[0])
				if err != nil {
					return err
				}
				if inMemory {
					if err := cache.SaveSnapshot(tc, snapshot, res.Metadata); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries (%d failed)\n", res.Imported, res.Failed)
				return nil
			},
		},
	)
	return cmd
}

// openCache opens the configured cache and, when a snapshot file is
// configured, loads it.
func openCache(cfg *config.Config) (cache.TranslationCache, error) {
	tc, err := plugin.OpenCache(cfg)
	if err != nil {
		return nil, err
	}
	if tc == nil {
		return nil, plugin.ErrCacheDisabled
	}
	if snapshot := cfg.CacheFile(); snapshot != "" {
		if _, err := cache.LoadSnapshot(tc, snapshot); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s version %s\n", mdtl.Name, mdtl.VersionString())
			if mdtl.BuildDate != "" {
				fmt.Fprintf(w, "  built: %s\n", mdtl.BuildDate)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func load(g *globalOptions) (*config.Config, logging.Provider, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.Load(g.root)
	}
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	logs, err := gologger.NewProvider(gologger.Config{Level: level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, &mdtl.ConfigError{Field: "log.format", Message: err.Error()}
	}
	return cfg, logs, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tuanbt/podmgr/cmd/podmgr/tui"
	"github.com/tuanbt/podmgr/internal/config"
	"github.com/tuanbt/podmgr/internal/discover"
	"github.com/tuanbt/podmgr/internal/logger"
	"github.com/tuanbt/podmgr/internal/podman"
	"github.com/tuanbt/podmgr/internal/queue"
	"github.com/tuanbt/podmgr/internal/secrets"
	"github.com/tuanbt/podmgr/internal/worker"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "podmgr",
	Short: "Container image rebuild and secret sync manager",
	Long: `podmgr scans a directory tree for compose files, quadlet units and
Dockerfiles, and manages image rebuilds through an interactive terminal
interface or line-oriented subcommands.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file path")
	pf.StringP("path", "p", "", "scan root directory")
	pf.StringArray("include", nil, "regex a path must match to be scanned")
	pf.StringArray("exclude", nil, "regex that removes paths from the scan")
	pf.StringArray("build-arg", nil, "build argument passed to every build")
	pf.Bool("no-cache", false, "disable the build cache")
	pf.Bool("dry-run", false, "log what would run instead of invoking podman")
	pf.String("log-level", "", "log verbosity (debug, info, warn, error)")

	rootCmd.Flags().Bool("rebuild-all", false, "queue every discovered image after the first scan")

	rootCmd.AddCommand(imagesCmd, rebuildCmd, secretsCmd)
	secretsCmd.AddCommand(secretsInitCmd, secretsSyncCmd, secretsVerifyCmd)
}

// loadConfig merges the config file with command-line overrides, flags
// winning over file values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if root, _ := cmd.Flags().GetString("path"); root != "" {
		cfg.ScanRoot = root
	}
	if include, _ := cmd.Flags().GetStringArray("include"); len(include) > 0 {
		cfg.IncludePatterns = include
	}
	if exclude, _ := cmd.Flags().GetStringArray("exclude"); len(exclude) > 0 {
		cfg.ExcludePatterns = exclude
	}
	if args, _ := cmd.Flags().GetStringArray("build-arg"); len(args) > 0 {
		cfg.BuildArgs = args
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.NoCache = true
	}
	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		cfg.DryRun = true
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if all, _ := cmd.Flags().GetBool("rebuild-all"); all {
		cfg.RebuildAll = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRuntime(cfg *config.Config, log *slog.Logger) podman.Runtime {
	if cfg.DryRun {
		return podman.NewFake()
	}
	return podman.NewCLI(cfg.PodmanBinary, log)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// File-only logging keeps stdout clean for the terminal UI.
	log, err := logger.NewEmbeddedLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	scanner, err := discover.NewScanner(cfg.ScanRoot, cfg.IncludePatterns, cfg.ExcludePatterns, log)
	if err != nil {
		return err
	}
	runner := worker.NewRunner(newRuntime(cfg, log), log)
	model := tui.NewModel(cfg, scanner, newRuntime(cfg, log), runner, log)

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Route SIGINT/SIGTERM through the message stream so cancellation is
	// an ordinary transition; bubbletea restores the terminal on exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			p.Send(tui.InterruptMsg{})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal session failed: %w", err)
	}
	return nil
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List discovered images without starting the UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logger.NewConsoleLogger(cfg)

		scanner, err := discover.NewScanner(cfg.ScanRoot, cfg.IncludePatterns, cfg.ExcludePatterns, log)
		if err != nil {
			return err
		}
		result, err := scanner.Scan(cmd.Context())
		if err != nil {
			return err
		}

		for _, img := range result.Images {
			buildable := "pull"
			if img.HasBuildfile {
				buildable = "build"
			}
			fmt.Printf("%-50s %-20s %-6s %s\n", img.Image, img.Container, buildable, img.SourceDir)
		}
		for _, df := range result.Dockerfiles {
			fmt.Printf("%-50s %-20s %-6s %s\n", df.Image, "-", df.Source, df.DockerfilePath)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s (%s): %v\n", w.Path, w.Kind, w.Err)
		}
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [image...]",
	Short: "Rebuild images without the UI",
	Long: `Rebuild the named images, or every discovered image when none are
named. Jobs run one at a time in discovery order; duplicate references
collapse into a single job.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := logger.NewSystemLogger(cfg)
		if err != nil {
			return err
		}

		scanner, err := discover.NewScanner(cfg.ScanRoot, cfg.IncludePatterns, cfg.ExcludePatterns, log)
		if err != nil {
			return err
		}
		result, err := scanner.Scan(cmd.Context())
		if err != nil {
			return err
		}

		wanted := map[string]bool{}
		for _, arg := range args {
			wanted[discover.NormalizeRef(arg)] = true
		}

		q := queue.New()
		for _, img := range result.Images {
			key := discover.NormalizeRef(img.Image)
			if len(wanted) > 0 && !wanted[key] {
				continue
			}
			action := queue.ActionPull
			if img.HasBuildfile {
				action = queue.ActionBuild
			}
			err := q.Enqueue(queue.Spec{
				Image:      img.Image,
				DedupKey:   key,
				Container:  img.Container,
				ContextDir: img.SourceDir,
				EntryPath:  img.EntryPath,
				BuildArgs:  cfg.BuildArgs,
				NoCache:    cfg.NoCache,
				Action:     action,
			})
			if err != nil {
				log.Debug("duplicate reference collapsed", "image", img.Image)
			}
		}
		if q.Len() == 0 {
			return fmt.Errorf("no matching images discovered under %s", cfg.ScanRoot)
		}

		return runJobs(cmd.Context(), q, newRuntime(cfg, log), log)
	},
}

// runJobs drains the queue serially, streaming output to stdout.
func runJobs(ctx context.Context, q *queue.Queue, rt podman.Runtime, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := worker.NewRunner(rt, log)
	failed := 0
	id := 0
	for {
		spec, ok := q.Next()
		if !ok {
			break
		}
		id++
		fmt.Printf("==> %s %s\n", spec.Action, spec.Image)
		runner.Start(ctx, id, spec)

		for ev := range runner.Events() {
			if ev.JobID != id {
				continue
			}
			if ev.Done {
				q.Release(spec.DedupKey)
				switch ev.Status {
				case queue.StatusSucceeded:
					fmt.Printf("==> %s: ok\n", spec.Image)
				case queue.StatusCancelled:
					fmt.Printf("==> %s: cancelled\n", spec.Image)
				default:
					failed++
					fmt.Printf("==> %s: failed: %v\n", spec.Image, ev.Err)
				}
				break
			}
			fmt.Println(ev.Line)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("interrupted")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d job(s) failed", failed)
	}
	return nil
}

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Synchronize secret files to the configured store",
}

func newSyncer(cfg *config.Config, log *slog.Logger) (*secrets.Syncer, error) {
	var store secrets.Store
	var err error
	switch cfg.Secrets.Store {
	case "vault":
		hostname, _ := os.Hostname()
		store, err = secrets.NewVaultStore(cfg.Secrets.VaultURL, cfg.Secrets.VaultKey, hostname)
	default:
		store, err = secrets.NewLocalStore(cfg.Secrets.LocalDir)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Secrets.Passphrase == "" {
		return nil, fmt.Errorf("secrets.passphrase is required (set PODMGR_SECRETS_PASSPHRASE)")
	}
	return secrets.NewSyncer(store, cfg.Secrets.RecordsFile, cfg.Secrets.Passphrase, "", log), nil
}

var secretsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty secrets records file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := secrets.InitRecords(cfg.Secrets.RecordsFile); err != nil {
			return err
		}
		fmt.Printf("created %s\n", cfg.Secrets.RecordsFile)
		return nil
	},
}

var secretsSyncCmd = &cobra.Command{
	Use:   "sync <file...>",
	Short: "Upload changed secret files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logger.NewConsoleLogger(cfg)

		syncer, err := newSyncer(cfg, log)
		if err != nil {
			return err
		}
		results, err := syncer.Sync(cmd.Context(), args)
		if err != nil {
			return err
		}
		return reportResults(results)
	},
}

var secretsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check stored secrets against the records file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logger.NewConsoleLogger(cfg)

		syncer, err := newSyncer(cfg, log)
		if err != nil {
			return err
		}
		results, err := syncer.Verify(cmd.Context())
		if err != nil {
			return err
		}
		return reportResults(results)
	},
}

func reportResults(results []secrets.SyncResult) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "%-40s error: %v\n", r.FileName, r.Err)
		case r.Uploaded:
			fmt.Printf("%-40s uploaded\n", r.FileName)
		case r.Skipped:
			fmt.Printf("%-40s unchanged\n", r.FileName)
		default:
			fmt.Printf("%-40s ok\n", r.FileName)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

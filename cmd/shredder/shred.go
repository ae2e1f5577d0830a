package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"secureshred/internal/config"
	"secureshred/internal/job"
	"secureshred/internal/logging"
	"secureshred/internal/reporting"
	"secureshred/internal/security"
	"secureshred/internal/storage"
	"secureshred/internal/telemetry"
	"secureshred/internal/ui"
	"secureshred/internal/walk"
	"secureshred/internal/wipe"
)

type shredFlags struct {
	passes   int
	profile  string
	cipher   string
	policy   string
	maxSpeed float64
	dryRun   bool
	force    bool
	plain    bool
}

func newShredCmd(g *globalFlags) *cobra.Command {
	f := &shredFlags{}
	cmd := &cobra.Command{
		Use:   "shred <file|folder>...",
		Short: "Erase files and folders beyond recovery",
		Example: `  shredder shred secrets.txt
  shredder shred --passes 7 --cipher xchacha20 old-backups/
  shredder shred --dry-run ~/Downloads/tax-2019`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShred(cmd, g, f, args)
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&f.passes, "passes", "p", 0, "overwrite passes before the encryption pass (default from config)")
	fl.StringVar(&f.profile, "profile", "", "wipe profile: "+strings.Join(config.Profiles(), ", "))
	fl.StringVar(&f.cipher, "cipher", "", "cipher for the final pass: aes-256-cbc or xchacha20")
	fl.StringVar(&f.policy, "on-enumeration-error", "", "when a folder cannot be listed: discard or partial")
	fl.Float64Var(&f.maxSpeed, "max-speed", -1, "write throughput cap in MB/s, 0 for unlimited")
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "list what would be erased and stop")
	fl.BoolVarP(&f.force, "force", "f", false, "skip the confirmation prompt")
	fl.BoolVar(&f.plain, "plain", false, "plain line output instead of the progress view")
	return cmd
}

func loadShredConfig(g *globalFlags, f *shredFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if f.profile != "" {
		if err := config.ApplyProfile(cfg, f.profile); err != nil {
			return nil, err
		}
	}
	if f.passes != 0 {
		cfg.Wipe.Passes = f.passes
	}
	if f.cipher != "" {
		cfg.Encrypt.Cipher = f.cipher
	}
	if f.policy != "" {
		cfg.Walk.OnEnumerationError = f.policy
	}
	if f.maxSpeed >= 0 {
		cfg.Wipe.MaxSpeedMBps = f.maxSpeed
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runShred(cmd *cobra.Command, g *globalFlags, f *shredFlags, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadShredConfig(g, f)
	if err != nil {
		return err
	}
	cipher, err := wipe.ParseCipher(cfg.Encrypt.Cipher)
	if err != nil {
		return err
	}
	policy, err := walk.ParsePolicy(cfg.Walk.OnEnumerationError)
	if err != nil {
		return err
	}

	interactive := !f.plain && !f.dryRun && isTerminal(out)
	logger, err := logging.New(cfg.Logging, g.verbose, !interactive)
	if err != nil {
		return errors.Wrap(err, "failed to initialise logging")
	}
	defer func() { _ = logger.Sync() }()

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	if err := security.CheckTargets(args, security.ProtectedPaths(cfg.Security)); err != nil {
		return err
	}

	fs := afero.NewOsFs()
	store := storage.NewFsStore(fs)
	staging, err := storage.NewStaging(fs, cfg.Encrypt.StagingDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := staging.Close(); err != nil {
			logger.Warn("staging cleanup failed", zap.Error(err))
		}
	}()

	shredder := job.NewShredder(
		store,
		wipe.NewEngine(store,
			wipe.NewRandomOverwriter(store, wipe.OverwriteConfig{
				ChunkSize:    cfg.Wipe.ChunkSize,
				MaxSpeedMBps: cfg.Wipe.MaxSpeedMBps,
				Logger:       logger.Named("overwrite"),
			}),
			wipe.NewDiscardEncryptor(store, wipe.EncryptConfig{
				Cipher:       cipher,
				Staging:      staging,
				ChunkSize:    cfg.Wipe.ChunkSize,
				MaxSpeedMBps: cfg.Wipe.MaxSpeedMBps,
				Logger:       logger.Named("encrypt"),
			}),
			logger.Named("engine")),
		walk.NewWalker(store, policy, logger.Named("walk")),
		logger.Named("job"),
	)

	req := job.Request{Passes: cfg.Wipe.Passes, Cipher: string(cipher)}
	for _, a := range args {
		req.Targets = append(req.Targets, storage.HandleFor(a))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := shredder.Plan(ctx, req, job.Callbacks{
		OnStatus: func(msg string) { fmt.Fprintln(out, msg) },
	})
	if err != nil {
		return err
	}
	if plan.Interrupted() {
		fmt.Fprintln(out, "Cancelled while scanning; nothing was changed.")
		return withExitCode(exitWarning, job.StatusCancelled)
	}
	printPlan(out, plan, cfg)
	if f.dryRun {
		fmt.Fprintln(out, "Dry run: nothing was changed.")
		return nil
	}

	var largest int64
	for _, t := range plan.Targets {
		largest = max(largest, t.Size)
	}
	if err := storage.EnsureRoom(staging.Dir(), largest); err != nil {
		return err
	}

	if !f.force && cfg.Security.RequireConfirmation {
		prompt := fmt.Sprintf("Permanently destroy %d file(s) in %s?", len(plan.Targets), plan.Subject)
		if !security.Confirm(cmd.InOrStdin(), out, prompt) {
			fmt.Fprintln(out, "Aborted.")
			logger.Info("shred declined at confirmation")
			return nil
		}
	}

	// Only the listing the user just saw is erased.
	stream := shredder.StartPlan(ctx, plan)
	var outcome job.Outcome
	if interactive {
		outcome, _, err = ui.RunTUI(stream, stop, "Shredding "+plan.Subject)
		if err != nil {
			// The job keeps running; fall back to line output.
			logger.Warn("progress view failed", zap.Error(err))
			outcome = ui.RunPlain(out, stream, 10)
		}
	} else {
		outcome = ui.RunPlain(out, stream, 10)
	}
	if outcome.Err != nil {
		return outcome.Err
	}

	res := outcome.Result
	cert := reporting.New(res, cfg.Reporting.ListTargets)
	paths, err := reporting.Save(fs, cfg.Reporting, cert)
	if err != nil {
		logger.Error("certificate not saved", zap.Error(err))
		fmt.Fprintf(out, "Warning: certificate not saved: %v\n", err)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, reporting.RenderText(cert, strings.Join(paths, ", ")))

	if res.Record.Status != job.StatusShredded {
		return withExitCode(exitWarning, res.Record.Status)
	}
	return nil
}

func printPlan(out io.Writer, plan *job.Plan, cfg *config.Config) {
	fmt.Fprintf(out, "%d file(s), %d bytes in %s; %d overwrite pass(es) then %s\n",
		len(plan.Targets), plan.Total, plan.Subject, cfg.Wipe.Passes, cfg.Encrypt.Cipher)
	for _, t := range plan.Targets {
		fmt.Fprintf(out, "  %10d  %s\n", t.Size, t.Handle)
	}
	for _, r := range plan.Roots {
		if r.Listing == nil {
			continue
		}
		if r.Listing.Err != nil {
			fmt.Fprintf(out, "  ! %v\n", r.Listing.Err)
		}
		for _, sk := range r.Listing.Skipped {
			fmt.Fprintf(out, "  ! skipped %s: %v\n", sk.Dir, sk.Err)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

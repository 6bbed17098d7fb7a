package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/guarzo/eve-battles/internal/analysis"
	"github.com/guarzo/eve-battles/internal/battle"
	"github.com/guarzo/eve-battles/internal/feed"
	"github.com/guarzo/eve-battles/internal/killmail"
	"github.com/guarzo/eve-battles/internal/shiptype"
	"github.com/guarzo/eve-battles/internal/store"
)

var (
	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Record killmails from the zKillboard feed until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runListen,
	}

	importCmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Store killmails from a JSON array file ('-' for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	battlesCmd = &cobra.Command{
		Use:   "battles",
		Short: "Detect battles in a time window",
		Args:  cobra.NoArgs,
		RunE:  runBattles,
	}

	recentCmd = &cobra.Command{
		Use:   "recent",
		Short: "List significant battles from the last hours",
		Args:  cobra.NoArgs,
		RunE:  runRecent,
	}

	battleCmd = &cobra.Command{
		Use:   "battle <id>",
		Short: "Show one battle with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runBattle,
	}

	pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete killmails older than the retention period",
		Args:  cobra.NoArgs,
		RunE:  runPrune,
	}

	// Flags
	fromFlag            string
	toFlag              string
	hoursFlag           int
	minParticipantsFlag int
	overrideFlags       []string
	cycleFlags          []string
)

func init() {
	rootCmd.AddCommand(listenCmd, importCmd, battlesCmd, recentCmd, battleCmd, pruneCmd)

	battlesCmd.Flags().StringVar(&fromFlag, "from", "", "Window start (RFC3339)")
	battlesCmd.Flags().StringVar(&toFlag, "to", "", "Window end (RFC3339), defaults to now")
	battlesCmd.MarkFlagRequired("from")

	recentCmd.Flags().IntVar(&hoursFlag, "hours", 24, "Hours to look back")
	recentCmd.Flags().IntVar(&minParticipantsFlag, "min-participants", 0, "Minimum unique pilots (0 uses the configured minimum)")

	battleCmd.Flags().StringArrayVar(&overrideFlags, "override", nil, "Pin a participant to a side: character:ship=side_N or =unassigned")
	battleCmd.Flags().StringArrayVar(&cycleFlags, "cycle", nil, "Move a participant (character:ship) to the next side, after overrides")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			logger.Printf("Received signal: %s, shutting down.", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()
	return ctx, cancel
}

func openStore() (*store.DB, error) {
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return db, nil
}

func newService(db *store.DB) *analysis.Service {
	return analysis.NewService(db, shiptype.NewStatic(), cfg.AnalysisConfig(), logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runListen(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if retention := cfg.Retention(); retention > 0 {
		removed, err := db.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			return err
		}
		logger.WithField("removed", removed).Info("Pruned old killmails")
	}

	listener := feed.NewListener(cfg.FeedConfig(), db, logger)
	logger.Println("Started killmail listener.")
	if err := listener.Run(ctx); err != nil {
		return err
	}

	stats := listener.Stats()
	logger.WithFields(logrus.Fields{
		"received": stats.Received,
		"stored":   stats.Stored,
		"ignored":  stats.Ignored,
		"failed":   stats.Failed,
	}).Info("Listener finished")
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var records []json.RawMessage
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}
	raws := make([]killmail.RawEvent, len(records))
	for i, r := range records {
		raws[i] = killmail.RawEvent(r)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	rejected, err := db.SaveBatch(cmd.Context(), raws)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]int{
		"records":  len(raws),
		"rejected": rejected,
	})
}

func runBattles(cmd *cobra.Command, args []string) error {
	from, err := time.Parse(time.RFC3339, fromFlag)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to := time.Now()
	if toFlag != "" {
		if to, err = time.Parse(time.RFC3339, toFlag); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	det, err := newService(db).DetectBattles(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), det)
}

func runRecent(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	det, err := newService(db).DetectRecentBattles(cmd.Context(), hoursFlag, minParticipantsFlag)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), det)
}

func runBattle(cmd *cobra.Command, args []string) error {
	overrides, err := parseOverrides(overrideFlags)
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := newService(db)
	b, err := svc.GetBattleWithTimeline(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(overrides) > 0 {
		if b, err = svc.AssignSides(b, overrides); err != nil {
			return err
		}
	}
	for _, f := range cycleFlags {
		key, err := battle.ParseParticipantKey(f)
		if err != nil {
			return fmt.Errorf("cycle %q: %w", f, err)
		}
		current, ok := b.SideOf(key)
		if !ok {
			return fmt.Errorf("cycle %q: not a participant of battle %s", f, b.ID)
		}
		next := battle.CycleOverride(nil, key, current, b.SideIDs())
		if b, err = svc.AssignSides(b, next); err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), b)
}

// parseOverrides reads "character:ship=side" flags.
func parseOverrides(flags []string) (battle.Overrides, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(battle.Overrides, len(flags))
	for _, f := range flags {
		keyPart, sidePart, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("override %q: want character:ship=side", f)
		}
		key, err := battle.ParseParticipantKey(keyPart)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", f, err)
		}
		side := battle.SideID(strings.TrimSpace(sidePart))
		if err := side.Validate(); err != nil {
			return nil, fmt.Errorf("override %q: %w", f, err)
		}
		out[key] = side
	}
	return out, nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	retention := cfg.Retention()
	if retention <= 0 {
		logger.Info("Retention disabled; nothing to prune")
		return nil
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := db.Prune(cmd.Context(), time.Now().Add(-retention))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]int64{"removed": removed})
}

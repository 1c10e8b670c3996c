package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/vaultsync/internal/model"
	"github.com/alfredjeanlab/vaultsync/internal/syncengine"
	"github.com/alfredjeanlab/vaultsync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a sync engine and print what it does",
	Long: `Run a sync engine against the server and print connectivity changes,
cache invalidations and settings refreshes as they happen.

With --view, the device also reports itself as viewing the given items
until the command exits.`,
	GroupID: "sync",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, _ := cmd.Flags().GetStringSlice("view")
		heartbeat, _ := cmd.Flags().GetDuration("heartbeat")
		verbose, _ := cmd.Flags().GetBool("verbose")

		deviceID, err := resolveDeviceID()
		if err != nil {
			return err
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		out := &watchPrinter{w: os.Stdout, palette: ui.NewPalette(!jsonOutput && ui.ShouldUseColor(os.Stdout)), json: jsonOutput}
		engine, err := syncengine.New(syncengine.Config{
			DeviceID:          deviceID,
			Backend:           syncClient,
			Cache:             out,
			Logger:            logger,
			HeartbeatInterval: heartbeat,
			OnStateChange:     out.State,
			OnSettings:        out.Settings,
		})
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := engine.LoadSettings(ctx); err != nil {
			logger.Warn("could not load settings", "error", err)
		}
		for _, item := range items {
			release, err := engine.ViewItem(ctx, item)
			if err != nil {
				return err
			}
			defer release()
		}
		if err := engine.Start(); err != nil {
			return err
		}

		<-ctx.Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringSlice("view", nil, "item IDs to report as viewed (repeatable)")
	watchCmd.Flags().Duration("heartbeat", syncengine.DefaultHeartbeatInterval, "presence heartbeat interval")
	watchCmd.Flags().BoolP("verbose", "v", false, "log engine internals to stderr")
}

// watchPrinter is the watch command's cache: it prints every invalidation.
type watchPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	palette ui.Palette
	json    bool
}

// watchLine is one line of --json output.
type watchLine struct {
	Time   string `json:"time"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (p *watchPrinter) line(kind, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ts := time.Now().Format("15:04:05")
	if p.json {
		if err := json.NewEncoder(p.w).Encode(watchLine{Time: ts, Kind: kind, Detail: detail}); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		}
		return
	}
	fmt.Fprintf(p.w, "%s %-12s %s\n", p.palette.Muted(ts), kind, detail)
}

func (p *watchPrinter) InvalidateItem(id string) { p.line("invalidate", "item "+p.palette.Accent(id)) }

func (p *watchPrinter) InvalidateItemList() { p.line("invalidate", "item list") }

func (p *watchPrinter) State(s syncengine.State) { p.line("state", p.palette.State(s.String())) }

func (p *watchPrinter) Settings(s model.Settings) {
	p.line("settings", fmt.Sprintf("theme=%s language=%s timeFormat=%s", s.Theme, s.Language, s.TimeFormat))
}

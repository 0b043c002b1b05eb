package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/j0nc0x/hdamanager/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the editable workspace and reload on changes",
	Long: `Watch the editable workspace for definition file changes and rebuild
the catalog when they settle. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, cleanup, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		wcfg := watcher.DefaultConfig(m.EditDir())
		if watchDebounce > 0 {
			wcfg.DebounceDur = watchDebounce
		}
		w, err := watcher.New(wcfg)
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()

		onChange, err := w.Start()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Printf("watching %s\n", m.EditDir())
		for {
			select {
			case <-onChange:
				cat, err := m.Load(ctx)
				if err != nil {
					fmt.Printf("reload failed: %v\n", err)
					continue
				}
				fmt.Printf("reloaded: %d node types\n", len(cat.All()))
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Debounce duration for change events (default 1s)")
	rootCmd.AddCommand(watchCmd)
}

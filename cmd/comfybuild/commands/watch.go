package commands

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/effekt/comfybuild/internal/config"
	"github.com/effekt/comfybuild/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [variant...]",
	Short: "Re-validate variants when their documents change",
	Long: `Watch the configs directory and re-resolve and re-validate variants as
their documents change. With no arguments every variant is checked;
otherwise only the named ones.

Press Ctrl-C to stop.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	only := make([]string, 0, len(args))
	for _, arg := range args {
		only = append(only, config.NormalizeName(arg))
	}

	check := func(name string) {
		// A change to one document can affect every descendant, so all
		// watched variants are re-checked.
		names := only
		if len(names) == 0 {
			all, err := loader.List()
			if err != nil {
				logging.Error().Err(err).Msg("failed to list variants")
				return
			}
			names = all
		} else if !slices.Contains(names, name) {
			// Still re-check: the changed document may be an ancestor.
			names = append([]string{}, only...)
		}

		for _, n := range names {
			if err := validateVariant(loader, n); err != nil {
				logging.Error().Str("variant", n).Err(err).Msg("variant invalid")
			} else {
				logging.Info().Str("variant", n).Msg("variant valid")
			}
		}
	}

	watcher, err := config.NewWatcher(loader, check)
	if err != nil {
		return err
	}
	watcher.Start()
	defer watcher.Stop()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", loader.Dir())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-cmd.Context().Done():
	}
	return nil
}

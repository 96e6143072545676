package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/modwatch-dev/modwatch/internal/cache"
	"github.com/modwatch-dev/modwatch/internal/ignore"
	"github.com/modwatch-dev/modwatch/internal/watch"
	"github.com/modwatch-dev/modwatch/internal/workspace"
)

// RunWatch scans the workspace once, then keeps the forest current:
// filesystem events flow through the watcher into the invalidation
// layer until the process is interrupted.
func RunWatch(cmd *cobra.Command, args []string) error {
	rootPath, err := resolveRoot(args)
	if err != nil {
		return err
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")
	rescanEvery, _ := cmd.Flags().GetDuration("rescan-every")

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "modwatch",
	})

	rules, err := LoadIgnoreRules(rootPath)
	if err != nil {
		return err
	}
	matcher := ignore.NewMatcher(rules)
	scanner := workspace.NewScanner(newParser(cmd), matcher)

	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	start := time.Now()
	f, err := scanner.Scan(baseCtx, rootPath)
	if err != nil {
		return err
	}
	summary := summarize("watch", rootPath, f.Snapshot(), start)
	logger.Info("initial scan complete",
		"modules", summary.Modules, "parsed", summary.Parsed, "errored", summary.Errored)

	inv, err := cache.New(scanner, f, rootPath, cache.Options{
		Debounce: debounce,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	watcher, err := watch.New(watch.Config{
		Root:    rootPath,
		Matcher: matcher,
		OnEvent: inv.HandleEvent,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- inv.Run(ctx) }()
	go func() { errs <- watcher.Run(ctx) }()

	if rescanEvery > 0 {
		go func() {
			ticker := time.NewTicker(rescanEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := inv.Refresh(ctx); err != nil && ctx.Err() == nil {
						logger.Warn("periodic refresh failed", "err", err)
					}
				}
			}
		}()
	}

	logger.Info("watching for manifest changes", "root", rootPath)

	// Both loops return nil on clean cancellation; the first real error
	// tears down its sibling.
	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	logger.Info("shutting down")
	return firstErr
}

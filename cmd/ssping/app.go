package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/ssping/internal/config"
	"github.com/hamed0406/ssping/internal/domain"
	"github.com/hamed0406/ssping/internal/httpapi"
	"github.com/hamed0406/ssping/internal/interval"
	"github.com/hamed0406/ssping/internal/logging"
	"github.com/hamed0406/ssping/internal/notify"
	"github.com/hamed0406/ssping/internal/pinger"
	"github.com/hamed0406/ssping/internal/probe"
	"github.com/hamed0406/ssping/internal/proxy"
	"github.com/hamed0406/ssping/internal/repo"
	"github.com/hamed0406/ssping/internal/repo/memory"
	"github.com/hamed0406/ssping/internal/repo/postgres"
	"github.com/hamed0406/ssping/internal/target"
)

const shutdownTimeout = 5 * time.Second

type app struct {
	env     config.Config
	console io.Writer // ping lines, like the errors, go to stderr
	code    int

	url      string
	count    uint64
	interval interval.Interval
	listen   string
	logDir   string
	verbose  bool
}

// run parses args, pings until done and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{env: config.FromEnv(), console: stderr, code: pinger.ExitSuccess}
	cmd := a.command()
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return pinger.ExitFailure
	}
	return a.code
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ssping [flags] PROXY_URL",
		Short:         "Measure HTTP round trips through a Shadowsocks proxy",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          a.execute,
	}

	a.interval = interval.Default
	f := cmd.Flags()
	f.StringVarP(&a.url, "url", "u", target.DefaultURL, "URL to request through the proxy")
	f.Uint64VarP(&a.count, "count", "c", 0, "Stop after this many probes (default: until interrupted)")
	f.VarP(&a.interval, "interval", "i", "Seconds to wait between probes")
	f.StringVar(&a.listen, "listen", a.env.StatusAddr, "Status API address, empty disables it")
	f.StringVar(&a.logDir, "log-dir", a.env.LogDir, "Directory for the JSON log, empty disables it")
	f.BoolVarP(&a.verbose, "verbose", "v", a.env.Verbose, "Debug logging")
	return cmd
}

func (a *app) execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	srv, err := proxy.Parse(args[0])
	if err != nil {
		return err
	}
	tgt, err := target.Resolve(a.url)
	if err != nil {
		return err
	}
	var maxCount *uint64
	if cmd.Flags().Changed("count") {
		maxCount = &a.count
	}

	logger, err := logging.NewLogger(logging.Options{Dir: a.logDir, Console: a.console, Verbose: a.verbose})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	// stderr may not support fsync
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := openStore(ctx, a.env, logger)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	start := clock.Now()
	runID := domain.NewRunID(start)
	board := httpapi.NewBoard(domain.RunSummary{
		RunID:     runID,
		Target:    tgt.Host,
		Proxy:     srv.Host(),
		StartedAt: start.UTC(),
	})
	exec := probe.NewExecutor(logger, proxy.NewDialer(), srv, tgt, "ssping/"+version)
	loop := pinger.NewLoop(logger, pinger.Config{
		Server:   srv,
		Target:   tgt,
		MaxCount: maxCount,
		Interval: a.interval,
		RunID:    runID,
	}, exec, clock, pinger.Observers{pinger.StoreObserver{Store: store}, board})

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, stopLoop := context.WithCancel(gctx)
	defer stopLoop()

	var counters domain.Counters
	g.Go(func() error {
		defer stopLoop()
		counters = loop.Run(loopCtx)
		return nil
	})
	var cleanup error
	if a.listen != "" {
		hs := &http.Server{
			Addr:              a.listen,
			Handler:           httpapi.NewServer(logger, board, store).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			errc := make(chan error, 1)
			go func() { errc <- hs.ListenAndServe() }()
			logger.Debug("status_listen", zap.String("addr", a.listen))
			select {
			case err := <-errc:
				return fmt.Errorf("status server: %w", err)
			case <-loopCtx.Done():
			}
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := hs.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cleanup = multierr.Append(cleanup, fmt.Errorf("status server shutdown: %w", err))
			}
			return nil
		})
	}
	runErr := g.Wait()

	elapsed := clock.Since(start)
	pinger.Summary(logger, counters, elapsed)

	if n := a.notifiers(); len(n) > 0 {
		summary := board.Snapshot()
		summary.Counters = counters
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		cleanup = multierr.Append(cleanup, notify.SendSummary(nctx, n, summary, elapsed))
		cancel()
	}
	cleanup = multierr.Append(cleanup, closeStore())
	if cleanup != nil {
		logger.Warn("cleanup_failed", zap.Error(cleanup))
	}

	a.code = pinger.ExitCode(counters, runErr)
	return runErr
}

// notifiers collects the configured run summary targets.
func (a *app) notifiers() notify.Multi {
	var m notify.Multi
	if a.env.SlackWebhook != "" {
		m = append(m, notify.NewSlack(a.env.SlackWebhook))
	}
	return m
}

// openStore picks PostgreSQL when configured, else the in-memory ring.
func openStore(ctx context.Context, env config.Config, logger *zap.Logger) (repo.ResultStore, func() error, error) {
	if env.DatabaseURL == "" {
		return memory.New(env.ResultBuffer), func() error { return nil }, nil
	}
	pg, err := postgres.New(ctx, env.DatabaseURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("result store: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("result store schema: %w", err)
	}
	return pg, func() error { pg.Close(); return nil }, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rubiojr/tracekit/pkg/collector"
	"github.com/rubiojr/tracekit/pkg/config"
	"github.com/rubiojr/tracekit/pkg/log"
	"github.com/rubiojr/tracekit/pkg/tracekit"
	"github.com/urfave/cli/v3"
)

// CollectCommand creates the collect command
func CollectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Run a collector that receives remote log entries and prints them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address to listen on",
				Value: ":8080",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Require this bearer token from clients",
				Sources: cli.EnvVars("TRACEKIT_COLLECTOR_TOKEN"),
			},
			&cli.IntFlag{
				Name:  "buffer",
				Usage: "Number of recent entries kept for GET /api/logs",
				Value: collector.DefaultBufferSize,
			},
			&cli.BoolFlag{
				Name:  "boxed",
				Usage: "Print received entries inside boxes",
			},
			&cli.BoolFlag{
				Name:  "cors",
				Usage: "Allow cross-origin requests",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return collect(ctx, collectOptions{
				configPath: c.String("config"),
				addr:       c.String("addr"),
				token:      c.String("token"),
				bufferSize: c.Int("buffer"),
				boxed:      c.Bool("boxed"),
				cors:       c.Bool("cors"),
			})
		},
	}
}

type collectOptions struct {
	configPath string
	addr       string
	token      string
	bufferSize int
	boxed      bool
	cors       bool
}

// collect serves the ingest endpoints and echoes every accepted entry to the
// terminal. Terminal settings follow the config file and are reloaded when
// it changes; remote forwarding is never enabled for the echo logger.
func collect(ctx context.Context, opts collectOptions) error {
	logger := log.ForService("collector")

	f, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	echo, err := tracekit.New(f.TerminalOptions()...)
	if err != nil {
		return fmt.Errorf("creating echo logger: %w", err)
	}
	defer echo.Close()

	srv := collector.New(collector.Options{
		AuthToken:  opts.token,
		BufferSize: opts.bufferSize,
	})
	id, entries := srv.Subscribe()
	defer srv.Unsubscribe(id)

	var handler http.Handler = srv
	if opts.cors {
		handler = collector.CorsMiddleware(handler)
	}
	server := &http.Server{
		Addr:              opts.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(opts.configPath); err == nil {
		go func() {
			err := config.Watch(ctx, opts.configPath, func(f *config.File) {
				if err := echo.Configure(f.TerminalOptions()...); err != nil {
					logger.Errorf("applying reloaded configuration: %v", err)
				}
			})
			if err != nil {
				logger.Warnf("config reload disabled: %v", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", opts.addr)
		logger.Infof("  POST /api/logs - ingest an entry")
		logger.Infof("  GET  /api/logs - recent entries, or a WebSocket stream")
		logger.Infof("  GET  /api/health - health check")
		serveErr <- server.ListenAndServe()
	}()

	for {
		select {
		case r, ok := <-entries:
			if !ok {
				return nil
			}
			echoEntry(echo, r, opts.boxed)
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("collector server: %w", err)
		case <-ctx.Done():
			fmt.Println("\nShutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	}
}

func echoEntry(echo *tracekit.Logger, r collector.Received, boxed bool) {
	opts := []tracekit.CallOption{
		tracekit.InNamespace(r.Entry.Namespace),
		tracekit.WithMetadata(r.Entry.Metadata),
	}
	if boxed {
		opts = append(opts, tracekit.Boxed(true), tracekit.WithTitle(fmt.Sprintf("%s via %s", r.Entry.Namespace, r.Via)))
	}
	echo.Log(r.Entry.Level, r.Entry.Message, opts...)
}

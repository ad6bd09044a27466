package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/tracekit/pkg/config"
	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/render"
	"github.com/rubiojr/tracekit/pkg/tracekit"
	"github.com/rubiojr/tracekit/pkg/transport"
	"github.com/urfave/cli/v3"
)

// LogCommand creates the log command
func LogCommand() *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "Write a log entry to the terminal and, optionally, a remote collector",
		ArgsUsage: "MESSAGE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, trace, info, success, warn, error, fatal)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "namespace",
				Aliases: []string{"n"},
				Usage:   "Namespace to log under",
			},
			&cli.BoolFlag{
				Name:  "boxed",
				Usage: "Render the entry inside a box",
			},
			&cli.StringFlag{
				Name:  "border-style",
				Usage: "Box border style (rounded, ascii, minimal)",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Box title",
			},
			&cli.IntFlag{
				Name:  "padding",
				Usage: "Box padding",
			},
			&cli.BoolFlag{
				Name:  "centered",
				Usage: "Center box content",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "Override the level color (ANSI number or #rrggbb)",
			},
			&cli.StringSliceFlag{
				Name:    "meta",
				Aliases: []string{"m"},
				Usage:   "Metadata as key=value, repeatable",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Forward the entry to the remote collector",
			},
			&cli.StringFlag{
				Name:  "transport",
				Usage: "Remote transport (http, websocket)",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Remote endpoint for the selected transport",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Remote auth token",
				Sources: cli.EnvVars("TRACEKIT_TOKEN"),
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable ANSI colors",
			},
			&cli.BoolFlag{
				Name:  "no-timestamp",
				Usage: "Omit timestamps",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return logMessage(c)
		},
	}
}

// logMessage builds a logger from the config file and flags, writes one
// entry and waits for remote delivery before returning.
func logMessage(c *cli.Command) error {
	msg := strings.Join(c.Args().Slice(), " ")
	if msg == "" {
		return fmt.Errorf("a message is required")
	}

	level, err := core.ParseLevel(c.String("level"))
	if err != nil {
		return err
	}

	f, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	opts, err := loggerFlagOptions(c, f.Options())
	if err != nil {
		return err
	}
	var sendErr error
	opts = append(opts, tracekit.WithErrorHandler(func(err error) { sendErr = err }))
	logger, err := tracekit.New(opts...)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Printf("Warning: failed to close logger: %v\n", err)
		}
	}()

	callOpts, err := callFlagOptions(c)
	if err != nil {
		return err
	}

	logger.Log(level, msg, callOpts...)
	logger.Flush()
	return sendErr
}

// loggerFlagOptions appends flag overrides to the options read from the
// config file. --url applies to whichever transport ends up selected.
func loggerFlagOptions(c *cli.Command, opts []tracekit.Option) ([]tracekit.Option, error) {
	if c.IsSet("namespace") {
		opts = append(opts, tracekit.WithNamespace(c.String("namespace")))
	}
	if c.IsSet("border-style") {
		style, err := render.ParseBorderStyle(c.String("border-style"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, tracekit.WithDefaultBorderStyle(style))
	}
	if c.Bool("no-color") {
		opts = append(opts, tracekit.WithColors(false))
	}
	if c.Bool("no-timestamp") {
		opts = append(opts, tracekit.WithTimestamp(false))
	}
	if c.Bool("remote") {
		opts = append(opts, tracekit.WithRemote(true))
	}
	if c.IsSet("transport") {
		kind, err := transport.ParseKind(c.String("transport"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, tracekit.WithTransportType(kind))
	}
	if c.IsSet("token") {
		opts = append(opts, tracekit.WithAuthToken(c.String("token")))
	}
	if c.IsSet("url") {
		cfg := tracekit.DefaultConfig()
		for _, opt := range opts {
			opt(&cfg)
		}
		if cfg.TransportType == transport.KindWebSocket {
			opts = append(opts, tracekit.WithSocketURL(c.String("url")))
		} else {
			opts = append(opts, tracekit.WithHTTPURL(c.String("url")))
		}
	}
	return opts, nil
}

func callFlagOptions(c *cli.Command) ([]tracekit.CallOption, error) {
	var opts []tracekit.CallOption
	if c.IsSet("boxed") {
		opts = append(opts, tracekit.Boxed(c.Bool("boxed")))
	}
	if c.IsSet("title") {
		opts = append(opts, tracekit.WithTitle(c.String("title")))
	}
	if c.IsSet("padding") {
		opts = append(opts, tracekit.WithPadding(c.Int("padding")))
	}
	if c.Bool("centered") {
		opts = append(opts, tracekit.Centered())
	}
	if c.IsSet("color") {
		opts = append(opts, tracekit.WithColor(lipgloss.Color(c.String("color"))))
	}
	if meta := c.StringSlice("meta"); len(meta) > 0 {
		md, err := parseMetadata(meta)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tracekit.WithMetadata(md))
	}
	return opts, nil
}

// parseMetadata turns key=value pairs into a metadata map. Values that parse
// as JSON (numbers, booleans, objects) keep their type; anything else is a
// string.
func parseMetadata(pairs []string) (map[string]any, error) {
	md := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		md[key] = v
	}
	return md, nil
}

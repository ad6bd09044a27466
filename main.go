package main

import (
	"context"
	"log"
	"os"

	"github.com/rubiojr/tracekit/cmd"
	"github.com/rubiojr/tracekit/pkg/config"
	tklog "github.com/rubiojr/tracekit/pkg/log"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "tracekit",
		Usage: "Styled terminal logging with remote log collection",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Silence diagnostic output",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			tklog.SetGlobalDebug(c.Bool("debug"))
			tklog.Silence(c.Bool("quiet"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.LogCommand(),
			cmd.CollectCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		log.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
)

func main() {
	cmd := &cli.Command{
		Name:    "argo-futures",
		Usage:   "Leveraged futures trading bot with backtest gated entries",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration `FILE`",
				Sources: cli.EnvVars("ARGO_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			backtestCommand(),
			downloadCommand(),
			reportCommand(),
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the configuration file",
				Action: func(_ context.Context, _ *cli.Command) error {
					schema, err := config.GenerateSchemaJSON()
					if err != nil {
						return err
					}

					fmt.Println(schema)

					return nil
				},
			},
			{
				Name:  "version",
				Usage: "Print the engine version",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Println(version.GetVersion())

					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the process logger from the global flags.
func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	if cmd.Bool("debug") {
		return logger.NewLoggerWithLevel(zapcore.DebugLevel)
	}

	return logger.NewLogger()
}

// loadConfig reads the file named by --config. An empty name loads defaults.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	return config.Load(cmd.String("config"))
}

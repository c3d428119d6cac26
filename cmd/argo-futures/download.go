package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-futures/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical futures bars to a parquet file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Futures symbol such as BTCUSDT",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Kline interval",
				Value:   string(marketdata.Interval15m),
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format. Defaults to now",
				Value: time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output `DIR` for the parquet file",
				Value:   "data",
			},
			&cli.BoolFlag{
				Name:  "testnet",
				Usage: "Download from the futures testnet",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	interval, err := marketdata.ParseInterval(cmd.String("interval"))
	if err != nil {
		return err
	}

	params := marketdata.DownloadParams{
		Symbol:   strings.ToUpper(cmd.String("symbol")),
		Interval: interval,
		Start:    cmd.Timestamp("start"),
		End:      cmd.Timestamp("end"),
	}

	provider := marketdata.NewBinanceProvider(marketdata.BinanceProviderConfig{Testnet: cmd.Bool("testnet")}, log)

	var bar *progressbar.ProgressBar

	onProgress := func(current float64, total float64, _ string) {
		if bar == nil {
			bar = progressbar.NewOptions64(int64(total),
				progressbar.OptionSetDescription("Downloading "+params.Symbol),
				progressbar.OptionShowCount(),
			)
		}

		_ = bar.Set64(int64(current))
	}

	path, err := marketdata.DownloadToParquet(ctx, provider, params, cmd.String("out"), log, onProgress)
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return err
	}

	fmt.Println(TitleStyle.Render("Download complete"))
	fmt.Println(HelpStyle.Render(path))

	return nil
}

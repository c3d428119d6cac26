package marketdata

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/rxtech-lab/argo-futures/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// DownloadParams holds the parameters for a historical download.
type DownloadParams struct {
	Symbol   string    `validate:"required"`
	Interval Interval  `validate:"required"`
	Start    time.Time `validate:"required"`
	End      time.Time `validate:"required,gtfield=Start"`
}

// Validate checks the parameters.
func (p DownloadParams) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	if _, err := ParseInterval(p.Interval.String()); err != nil {
		return err
	}

	return nil
}

// FileName returns SYMBOL_START_END_INTERVAL.parquet.
func (p DownloadParams) FileName() string {
	return fmt.Sprintf("%s_%s_%s_%s.parquet",
		p.Symbol,
		p.Start.Format("2006-01-02"),
		p.End.Format("2006-01-02"),
		p.Interval)
}

// Downloader writes a historical range of bars to a writer.
type Downloader interface {
	Download(ctx context.Context, params DownloadParams, w writer.BarWriter, onProgress OnDownloadProgress) (string, error)
}

// DownloadToParquet downloads params into dataDir and returns the parquet path.
func DownloadToParquet(
	ctx context.Context,
	downloader Downloader,
	params DownloadParams,
	dataDir string,
	log *logger.Logger,
	onProgress OnDownloadProgress,
) (string, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	barWriter := writer.NewDuckDBWriter(filepath.Join(dataDir, params.FileName()), log)

	defer func() {
		if err := barWriter.Close(); err != nil {
			log.Warn("Failed to close writer", zap.Error(err))
		}
	}()

	path, err := downloader.Download(ctx, params, barWriter, onProgress)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "download %s failed", params.Symbol)
	}

	log.Info("Downloaded bars",
		zap.String("symbol", params.Symbol),
		zap.String("interval", params.Interval.String()),
		zap.String("path", path),
	)

	return path, nil
}

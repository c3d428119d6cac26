package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// ParquetStore reads bars from parquet files written by the DuckDB writer.
type ParquetStore struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
}

// NewParquetStore opens an in-memory DuckDB connection used to query parquet files.
func NewParquetStore(log *logger.Logger) (*ParquetStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB connection", err)
	}

	return &ParquetStore{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		log: log,
	}, nil
}

func parquetSource(path string) string {
	return fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(path, "'", "''"))
}

// LoadBars returns the bars of symbol stored in path, optionally limited to [start, end].
func (s *ParquetStore) LoadBars(
	ctx context.Context,
	path string,
	symbol string,
	start optional.Option[time.Time],
	end optional.Option[time.Time],
) ([]types.Bar, error) {
	query := s.sq.Select("time", "open", "high", "low", "close", "volume").
		From(parquetSource(path)).
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("time ASC")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap().UTC()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap().UTC()})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bars query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.NewDataUnavailableError(symbol, fmt.Sprintf("failed to read %s", path), err)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0)

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bars", err)
	}

	if err := types.ValidateBars(bars); err != nil {
		return nil, err
	}

	s.log.Debug("Loaded bars from parquet",
		zap.String("path", path),
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
	)

	return bars, nil
}

// Symbols lists the distinct symbols stored in path.
func (s *ParquetStore) Symbols(ctx context.Context, path string) ([]string, error) {
	sqlStr, args, err := s.sq.Select("DISTINCT symbol").
		From(parquetSource(path)).
		OrderBy("symbol").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build symbols query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.NewDataUnavailableError("", fmt.Sprintf("failed to read %s", path), err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// Close closes the DuckDB connection.
func (s *ParquetStore) Close() error {
	return s.db.Close()
}

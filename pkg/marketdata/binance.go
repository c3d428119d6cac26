package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/rxtech-lab/argo-futures/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// MaxKlinesPerRequest is the futures klines page limit.
const MaxKlinesPerRequest = 1500

// Service interfaces for mocking the Binance futures API

// KlinesService fetches klines.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	Limit(limit int) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Do(ctx context.Context) ([]*futures.Kline, error)
}

// ListPricesService fetches the latest prices.
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*futures.SymbolPrice, error)
}

// ExchangeInfoService fetches symbol metadata.
type ExchangeInfoService interface {
	Do(ctx context.Context) (*futures.ExchangeInfo, error)
}

// BinanceFuturesClient abstracts the futures client for testing.
type BinanceFuturesClient interface {
	NewKlinesService() KlinesService
	NewListPricesService() ListPricesService
	NewExchangeInfoService() ExchangeInfoService
}

type realFuturesClient struct {
	client *futures.Client
}

func (r *realFuturesClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

func (r *realFuturesClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

func (r *realFuturesClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

type realKlinesService struct {
	service *futures.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*futures.Kline, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *futures.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*futures.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realExchangeInfoService struct {
	service *futures.ExchangeInfoService
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*futures.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

// BinanceProviderConfig selects the futures endpoint. Market data needs no credentials.
type BinanceProviderConfig struct {
	Testnet bool
	BaseURL string
}

// BinanceProvider reads USDT-M futures market data.
type BinanceProvider struct {
	client BinanceFuturesClient
	log    *logger.Logger
	now    func() time.Time
}

var _ Provider = (*BinanceProvider)(nil)

// NewBinanceProvider creates a provider for the futures REST API.
// If config.BaseURL is set, it takes precedence over Testnet.
func NewBinanceProvider(config BinanceProviderConfig, log *logger.Logger) *BinanceProvider {
	if config.Testnet {
		futures.UseTestnet = true
	}

	client := futures.NewClient("", "")
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return NewBinanceProviderWithClient(&realFuturesClient{client: client}, log)
}

// NewBinanceProviderWithClient creates a provider over a custom client.
func NewBinanceProviderWithClient(client BinanceFuturesClient, log *logger.Logger) *BinanceProvider {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BinanceProvider{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// GetBars pages backwards from now until count closed bars are collected or
// the exchange has no older data.
func (p *BinanceProvider) GetBars(ctx context.Context, symbol string, interval Interval, count int) ([]types.Bar, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bar count must be positive, got %d", count)
	}

	nowMillis := p.now().UnixMilli()
	endTime := int64(0)

	var bars []types.Bar

	for len(bars) < count {
		// One extra kline covers the bar still in progress.
		limit := min(count-len(bars)+1, MaxKlinesPerRequest)

		service := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval.String()).
			Limit(limit)
		if endTime > 0 {
			service = service.EndTime(endTime)
		}

		klines, err := service.Do(ctx)
		if err != nil {
			return nil, errors.NewDataUnavailableError(symbol, "failed to fetch klines", err)
		}

		page, err := closedBars(klines, nowMillis)
		if err != nil {
			return nil, errors.NewDataUnavailableError(symbol, "failed to parse klines", err)
		}

		if len(page) == 0 {
			break
		}

		bars = append(page, bars...)

		if len(klines) < limit {
			break
		}

		endTime = klines[0].OpenTime - 1
	}

	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}

	if err := types.ValidateBars(bars); err != nil {
		return nil, errors.NewDataUnavailableError(symbol, "exchange returned an invalid bar series", err)
	}

	p.log.Debug("Fetched bars",
		zap.String("symbol", symbol),
		zap.String("interval", interval.String()),
		zap.Int("requested", count),
		zap.Int("received", len(bars)),
	)

	return bars, nil
}

// GetCurrentPrice returns the last price of symbol.
func (p *BinanceProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.NewDataUnavailableError(symbol, "failed to fetch price", err)
	}

	for _, price := range prices {
		if price.Symbol != symbol {
			continue
		}

		value, err := strconv.ParseFloat(price.Price, 64)
		if err != nil {
			return 0, errors.NewDataUnavailableError(symbol, "failed to parse price", err)
		}

		return value, nil
	}

	return 0, errors.NewDataUnavailableError(symbol, "no price returned", nil)
}

// ListSymbols returns TRADING perpetual contracts quoted in quote, sorted by name.
func (p *BinanceProvider) ListSymbols(ctx context.Context, quote string) ([]string, error) {
	info, err := p.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, errors.NewDataUnavailableError("", "failed to fetch exchange info", err)
	}

	symbols := make([]string, 0, len(info.Symbols))

	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.ContractType != futures.ContractTypePerpetual || s.QuoteAsset != quote {
			continue
		}

		symbols = append(symbols, s.Symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Download writes every closed bar of params to w and returns the output path.
func (p *BinanceProvider) Download(ctx context.Context, params DownloadParams, w writer.BarWriter, onProgress OnDownloadProgress) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}

	if err := w.Initialize(); err != nil {
		return "", err
	}

	nowMillis := p.now().UnixMilli()
	startMillis := params.Start.UnixMilli()
	endMillis := params.End.UnixMilli()
	current := startMillis

	for current < endMillis {
		if err := ctx.Err(); err != nil {
			return "", errors.Wrap(errors.ErrCodeHistoricalDataFailed, "download cancelled", err)
		}

		klines, err := p.client.NewKlinesService().
			Symbol(params.Symbol).
			Interval(params.Interval.String()).
			StartTime(current).
			EndTime(endMillis).
			Limit(MaxKlinesPerRequest).
			Do(ctx)
		if err != nil {
			return "", errors.NewDataUnavailableError(params.Symbol, "failed to fetch klines", err)
		}

		bars, err := closedBars(klines, nowMillis)
		if err != nil {
			return "", errors.NewDataUnavailableError(params.Symbol, "failed to parse klines", err)
		}

		for _, bar := range bars {
			if err := w.Write(params.Symbol, bar); err != nil {
				return "", err
			}
		}

		if onProgress != nil {
			onProgress(float64(current-startMillis), float64(endMillis-startMillis),
				fmt.Sprintf("Downloading %s %s klines", params.Symbol, params.Interval))
		}

		if len(klines) < MaxKlinesPerRequest {
			break
		}

		current = klines[len(klines)-1].CloseTime + 1
	}

	return w.Finalize()
}

// closedBars converts klines whose close time has passed.
func closedBars(klines []*futures.Kline, nowMillis int64) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		if k.CloseTime >= nowMillis {
			continue
		}

		bar, err := klineToBar(k)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func klineToBar(k *futures.Kline) (types.Bar, error) {
	values := make([]float64, 5)

	for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeInvalidBarSeries, err, "kline %d has invalid value %q", k.OpenTime, raw)
		}

		values[i] = v
	}

	return types.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

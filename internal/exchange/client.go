// Package exchange is R2: a typed facade over the USDT-margined perpetual
// futures REST API, built on github.com/adshao/go-binance/v2/futures (the
// library _examples/yohannesjx-sniperterminal uses throughout
// predator_engine.go and execution_service.go for this exact exchange
// shape). Every call reserves weight from the rate limiter (R1) before
// issuing and afterward passes that same locally computed weight to the
// limiter's ObserveUsed; the exchange's used-weight response header is not
// read. The teacher calls futures.Client methods
// directly with no such accounting layer, so the Client interface and its
// weight bookkeeping are new code grounded on the shape of those calls, not
// copied from any single teacher function.
package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"futuressignalengine/internal/ratelimit"
	"futuressignalengine/internal/xerrors"
)

// Kline is the typed candle shape returned by Klines, decoupled from the
// go-binance wire type so callers never import the vendor package directly.
type Kline struct {
	Symbol      string
	OpenTime    time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
	TradeCount  int64
	CloseTime   time.Time
	Closed      bool
}

// DepthLevel is one price/quantity rung of an order book snapshot.
type DepthLevel struct {
	Price float64
	Qty   float64
}

// Depth is an order book snapshot.
type Depth struct {
	Symbol string
	Bids   []DepthLevel
	Asks   []DepthLevel
}

// Client is the R2 contract the rest of the engine depends on.
type Client interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	Depth(ctx context.Context, symbol string, limit int) (*Depth, error)
	MarkPrice(ctx context.Context, symbol string) (float64, error)
	Ticker24h(ctx context.Context, symbol string) (priceChangePct float64, volume float64, err error)
	ExchangeInfo(ctx context.Context) ([]string, error)
}

type binanceClient struct {
	raw     *futures.Client
	limiter *ratelimit.Limiter
}

// New builds the exchange client. The limiter is shared with anything else
// in the process that issues exchange calls (there is exactly one process
// wide instance per spec.md §5). httpTimeout is the total per-call timeout
// (60s default per spec.md §4.2); a rateAwareTransport is installed so ban
// and gateway-error responses are recognized regardless of whether
// go-binance can parse their body as a Binance JSON error.
func New(apiKey, apiSecret string, httpTimeout time.Duration, limiter *ratelimit.Limiter) Client {
	raw := futures.NewClient(apiKey, apiSecret)
	raw.HTTPClient = &http.Client{
		Timeout:   httpTimeout,
		Transport: &rateAwareTransport{},
	}
	return &binanceClient{
		raw:     raw,
		limiter: limiter,
	}
}

// klinesWeight implements the four-band weight contract from spec.md §4.2.
func klinesWeight(limit int) int {
	switch {
	case limit <= 99:
		return 1
	case limit <= 499:
		return 2
	case limit <= 1000:
		return 5
	default:
		return 10
	}
}

// depthWeight implements the depth-endpoint weight bands from spec.md §4.2.
func depthWeight(limit int) int {
	switch {
	case limit <= 100:
		return 2
	case limit <= 500:
		return 5
	case limit <= 1000:
		return 10
	default:
		return 50
	}
}

const lightWeight = 1

func (c *binanceClient) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	weight := klinesWeight(limit)
	if err := c.limiter.Reserve(ctx, weight); err != nil {
		return nil, xerrors.Wrap(xerrors.KindRateCapped, "Klines", err)
	}

	var raw []*futures.Kline
	err := withBackoff(ctx, func() error {
		var callErr error
		raw, callErr = c.raw.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		return classify(callErr, c.limiter)
	})
	if err != nil {
		return nil, err
	}

	c.limiter.ObserveUsed(weight)

	out := make([]Kline, 0, len(raw))
	for _, k := range raw {
		out = append(out, Kline{
			Symbol:      symbol,
			OpenTime:    time.UnixMilli(k.OpenTime).UTC(),
			Open:        parseFloat(k.Open),
			High:        parseFloat(k.High),
			Low:         parseFloat(k.Low),
			Close:       parseFloat(k.Close),
			Volume:      parseFloat(k.Volume),
			QuoteVolume: parseFloat(k.QuoteAssetVolume),
			TradeCount:  k.TradeNum,
			CloseTime:   time.UnixMilli(k.CloseTime).UTC(),
			Closed:      true,
		})
	}
	return out, nil
}

func (c *binanceClient) Depth(ctx context.Context, symbol string, limit int) (*Depth, error) {
	weight := depthWeight(limit)
	if err := c.limiter.Reserve(ctx, weight); err != nil {
		return nil, xerrors.Wrap(xerrors.KindRateCapped, "Depth", err)
	}

	var raw *futures.DepthResponse
	err := withBackoff(ctx, func() error {
		var callErr error
		raw, callErr = c.raw.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
		return classify(callErr, c.limiter)
	})
	if err != nil {
		return nil, err
	}

	c.limiter.ObserveUsed(weight)

	d := &Depth{Symbol: symbol}
	for _, b := range raw.Bids {
		d.Bids = append(d.Bids, DepthLevel{Price: parseFloat(b.Price), Qty: parseFloat(b.Quantity)})
	}
	for _, a := range raw.Asks {
		d.Asks = append(d.Asks, DepthLevel{Price: parseFloat(a.Price), Qty: parseFloat(a.Quantity)})
	}
	return d, nil
}

func (c *binanceClient) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Reserve(ctx, lightWeight); err != nil {
		return 0, xerrors.Wrap(xerrors.KindRateCapped, "MarkPrice", err)
	}

	var raw []*futures.MarkPrice
	err := withBackoff(ctx, func() error {
		var callErr error
		raw, callErr = c.raw.NewPremiumIndexService().Symbol(symbol).Do(ctx)
		return classify(callErr, c.limiter)
	})
	if err != nil {
		return 0, err
	}
	c.limiter.ObserveUsed(lightWeight)

	if len(raw) == 0 {
		return 0, xerrors.Wrap(xerrors.KindBadRequest, "MarkPrice", fmt.Errorf("no mark price for %s", symbol))
	}
	return parseFloat(raw[0].MarkPrice), nil
}

func (c *binanceClient) Ticker24h(ctx context.Context, symbol string) (float64, float64, error) {
	if err := c.limiter.Reserve(ctx, lightWeight); err != nil {
		return 0, 0, xerrors.Wrap(xerrors.KindRateCapped, "Ticker24h", err)
	}

	var raw []*futures.PriceChangeStats
	err := withBackoff(ctx, func() error {
		var callErr error
		raw, callErr = c.raw.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		return classify(callErr, c.limiter)
	})
	if err != nil {
		return 0, 0, err
	}
	c.limiter.ObserveUsed(lightWeight)

	if len(raw) == 0 {
		return 0, 0, xerrors.Wrap(xerrors.KindBadRequest, "Ticker24h", fmt.Errorf("no ticker for %s", symbol))
	}
	return parseFloat(raw[0].PriceChangePercent), parseFloat(raw[0].Volume), nil
}

func (c *binanceClient) ExchangeInfo(ctx context.Context) ([]string, error) {
	if err := c.limiter.Reserve(ctx, lightWeight); err != nil {
		return nil, xerrors.Wrap(xerrors.KindRateCapped, "ExchangeInfo", err)
	}

	var raw *futures.ExchangeInfo
	err := withBackoff(ctx, func() error {
		var callErr error
		raw, callErr = c.raw.NewExchangeInfoService().Do(ctx)
		return classify(callErr, c.limiter)
	})
	if err != nil {
		return nil, err
	}
	c.limiter.ObserveUsed(lightWeight)

	symbols := make([]string, 0, len(raw.Symbols))
	for _, s := range raw.Symbols {
		if s.Status == "TRADING" && s.ContractType == "PERPETUAL" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

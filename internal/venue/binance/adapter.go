// Package binance adapts Binance USDT-margined futures to the venue
// capability set using the go-binance SDK. Futures accounts report open
// positions natively, so this adapter advertises both optional
// capabilities.
package binance

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"zeus/internal/venue"
)

type Config struct {
	APIKey      string
	SecretKey   string
	RESTBaseURL string // default left to the SDK
	HTTPTimeout time.Duration
	Testnet     bool
}

type Adapter struct {
	name   string
	client *futures.Client
}

func New(name string, cfg Config) *Adapter {
	if cfg.Testnet {
		futures.UseTestnet = true
	}
	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if base := strings.TrimSpace(cfg.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	if name == "" {
		name = "binance"
	}
	return &Adapter{name: name, client: client}
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Capabilities() venue.Capabilities {
	return venue.Capabilities{Positions: true, Ping: true}
}

func (a *Adapter) GetTicker(ctx context.Context, symbol string) (venue.Ticker, error) {
	clean := cleanSymbol(symbol)
	books, err := a.client.NewListBookTickersService().Symbol(clean).Do(ctx)
	if err != nil {
		return venue.Ticker{}, fmt.Errorf("book ticker %s: %w", symbol, err)
	}
	prices, err := a.client.NewListPricesService().Symbol(clean).Do(ctx)
	if err != nil {
		return venue.Ticker{}, fmt.Errorf("price %s: %w", symbol, err)
	}
	tkr := venue.Ticker{Symbol: symbol, UpdatedAt: time.Now()}
	if len(prices) > 0 && prices[0] != nil {
		tkr.Last = parseFloat(prices[0].Price)
	}
	if len(books) > 0 && books[0] != nil {
		tkr.Bid = parseFloat(books[0].BidPrice)
		tkr.Ask = parseFloat(books[0].AskPrice)
	}
	return tkr, nil
}

func (a *Adapter) GetOpenOrders(ctx context.Context) ([]venue.Order, error) {
	orders, err := a.client.NewListOpenOrdersService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	out := make([]venue.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, venue.Order{
			ID:      strconv.FormatInt(o.OrderID, 10),
			Symbol:  o.Symbol,
			Side:    strings.ToLower(string(o.Side)),
			Amount:  parseFloat(o.OrigQuantity),
			Filled:  parseFloat(o.ExecutedQuantity),
			Status:  strings.ToLower(string(o.Status)),
			Price:   parseFloat(o.Price),
			Average: parseFloat(o.AvgPrice),
		})
	}
	return out, nil
}

func (a *Adapter) GetOpenPositions(ctx context.Context) ([]venue.Position, error) {
	risks, err := a.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("position risk: %w", err)
	}
	out := make([]venue.Position, 0, len(risks))
	for _, p := range risks {
		if p == nil {
			continue
		}
		amt := parseFloat(p.PositionAmt)
		if amt == 0 {
			continue
		}
		out = append(out, venue.Position{
			Symbol:   p.Symbol,
			Side:     positionSide(p.PositionSide, amt),
			Size:     math.Abs(amt),
			AvgPrice: parseFloat(p.EntryPrice),
		})
	}
	return out, nil
}

func (a *Adapter) PingTransport(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := a.client.NewPingService().Do(ctx); err != nil {
		return 0, fmt.Errorf("ping: %w", err)
	}
	return time.Since(start), nil
}

// positionSide resolves hedge-mode LONG/SHORT labels and one-way BOTH rows
// (sign of the amount decides).
func positionSide(side string, amt float64) string {
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case "LONG":
		return "long"
	case "SHORT":
		return "short"
	}
	if amt < 0 {
		return "short"
	}
	return "long"
}

// cleanSymbol strips the slash: Binance wants ETHUSDT, not ETH/USDT.
func cleanSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), "/", ""))
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

// Package broker implements the market data, account, and order ports
// against an OANDA-style v20 REST API.
package broker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fxHedgeBot/internal/domain"
	"fxHedgeBot/internal/instruments"
	"fxHedgeBot/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	// PracticeURL is the base URL of the broker's practice environment.
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is the base URL of the broker's live environment.
	LiveURL = "https://api-fxtrade.oanda.com"
)

// Config holds configuration for the broker client.
type Config struct {
	Token     string
	AccountID string
	Practice  bool
	Timeout   time.Duration // Default 30s
	Logger    ports.Logger
}

// Client implements ports.MarketDataSource, ports.AccountClient, and
// ports.OrderClient against the v20 REST API.
type Client struct {
	http      *resty.Client
	accountID string
	logger    ports.Logger
}

// NewClient creates a new broker API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for broker client")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("broker API token is required: %w", ports.ErrConfigurationError)
	}
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("broker account ID is required: %w", ports.ErrConfigurationError)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := LiveURL
	if cfg.Practice {
		baseURL = PracticeURL
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient, accountID: cfg.AccountID, logger: cfg.Logger}, nil
}

// --- Wire Types ---

type candleData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type apiCandle struct {
	Complete bool       `json:"complete"`
	Volume   float64    `json:"volume"`
	Time     time.Time  `json:"time"`
	Mid      candleData `json:"mid"`
}

type candlesResponse struct {
	Instrument string      `json:"instrument"`
	Candles    []apiCandle `json:"candles"`
}

type pricingResponse struct {
	Prices []struct {
		Bids []struct {
			Price string `json:"price"`
		} `json:"bids"`
		Asks []struct {
			Price string `json:"price"`
		} `json:"asks"`
	} `json:"prices"`
}

type accountSummaryResponse struct {
	Account struct {
		NAV string `json:"NAV"`
	} `json:"account"`
}

type orderRequest struct {
	Order struct {
		Type             string           `json:"type"`
		Instrument       string           `json:"instrument"`
		Units            string           `json:"units"`
		Price            string           `json:"price"`
		TimeInForce      string           `json:"timeInForce"`
		GTDTime          string           `json:"gtdTime,omitempty"`
		PositionFill     string           `json:"positionFill"`
		ClientExtensions *clientExtension `json:"clientExtensions,omitempty"`
		StopLossOnFill   *onFillDetail    `json:"stopLossOnFill,omitempty"`
		TakeProfitOnFill *onFillDetail    `json:"takeProfitOnFill,omitempty"`
	} `json:"order"`
}

type clientExtension struct {
	ID string `json:"id"`
}

type onFillDetail struct {
	Price string `json:"price"`
}

type orderResponse struct {
	OrderCreateTransaction *struct {
		ID   string    `json:"id"`
		Time time.Time `json:"time"`
	} `json:"orderCreateTransaction"`
	OrderFillTransaction *struct {
		Price       string    `json:"price"`
		Time        time.Time `json:"time"`
		TradeOpened *struct {
			TradeID string `json:"tradeID"`
		} `json:"tradeOpened"`
	} `json:"orderFillTransaction"`
	OrderRejectTransaction *struct {
		RejectReason string `json:"rejectReason"`
	} `json:"orderRejectTransaction"`
	OrderCancelTransaction *struct {
		Reason string `json:"reason"`
	} `json:"orderCancelTransaction"`
}

type getOrderResponse struct {
	Order struct {
		ID            string    `json:"id"`
		State         string    `json:"state"`
		TradeOpenedID string    `json:"tradeOpenedID"`
		FilledTime    time.Time `json:"filledTime"`
	} `json:"order"`
}

type getTradeResponse struct {
	Trade struct {
		ID    string `json:"id"`
		Price string `json:"price"`
	} `json:"trade"`
}

type closeTradeResponse struct {
	OrderFillTransaction *struct {
		Price string    `json:"price"`
		Time  time.Time `json:"time"`
	} `json:"orderFillTransaction"`
}

// --- MarketDataSource Implementation ---

// GetBars retrieves up to count mid-price bars for the instrument,
// oldest to newest. Incomplete trailing bars are discarded so the last
// bar is always a finished interval.
func (c *Client) GetBars(ctx context.Context, instrument, granularity string, count int) ([]domain.Bar, error) {
	var result candlesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"price":       "M",
			"granularity": granularity,
			"count":       strconv.Itoa(count),
		}).
		SetResult(&result).
		Get(fmt.Sprintf("/v3/instruments/%s/candles", instrument))
	if err != nil {
		return nil, fmt.Errorf("candles request for %s failed: %w", instrument, err)
	}
	if err := c.statusError(resp); err != nil {
		return nil, fmt.Errorf("candles request for %s: %w", instrument, err)
	}

	bars := make([]domain.Bar, 0, len(result.Candles))
	for _, candle := range result.Candles {
		if !candle.Complete {
			continue
		}
		bar, err := candleToBar(instrument, candle)
		if err != nil {
			return nil, fmt.Errorf("malformed candle for %s: %w", instrument, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// GetMidPrice retrieves the current mid price for the instrument.
func (c *Client) GetMidPrice(ctx context.Context, instrument string) (float64, error) {
	var result pricingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("instruments", instrument).
		SetResult(&result).
		Get(fmt.Sprintf("/v3/accounts/%s/pricing", c.accountID))
	if err != nil {
		return 0, fmt.Errorf("pricing request for %s failed: %w", instrument, err)
	}
	if err := c.statusError(resp); err != nil {
		return 0, fmt.Errorf("pricing request for %s: %w", instrument, err)
	}
	if len(result.Prices) == 0 || len(result.Prices[0].Bids) == 0 || len(result.Prices[0].Asks) == 0 {
		return 0, fmt.Errorf("no price for %s: %w", instrument, ports.ErrDataUnavailable)
	}

	bid, err := strconv.ParseFloat(result.Prices[0].Bids[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed bid for %s: %w", instrument, err)
	}
	ask, err := strconv.ParseFloat(result.Prices[0].Asks[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed ask for %s: %w", instrument, err)
	}
	return (bid + ask) / 2, nil
}

// --- AccountClient Implementation ---

// GetEquity retrieves the account's current net asset value.
func (c *Client) GetEquity(ctx context.Context) (float64, error) {
	var result accountSummaryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/v3/accounts/%s/summary", c.accountID))
	if err != nil {
		return 0, fmt.Errorf("account summary request failed: %w", err)
	}
	if err := c.statusError(resp); err != nil {
		return 0, fmt.Errorf("account summary request: %w", err)
	}

	nav, err := strconv.ParseFloat(result.Account.NAV, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed NAV %q: %w", result.Account.NAV, err)
	}
	return nav, nil
}

// --- OrderClient Implementation ---

// SubmitLimitOrder places a resting GTD limit order with attached stop
// and target. A reject or cancel transaction in the response surfaces as
// ErrBrokerRejected.
func (c *Client) SubmitLimitOrder(ctx context.Context, ticket ports.OrderTicket) (*ports.OrderResult, error) {
	inst, ok := instruments.Lookup(ticket.Instrument)
	if !ok {
		return nil, fmt.Errorf("instrument %s: %w", ticket.Instrument, ports.ErrInstrumentUnresolvable)
	}

	var body orderRequest
	body.Order.Type = "LIMIT"
	body.Order.Instrument = ticket.Instrument
	body.Order.Units = strconv.Itoa(ticket.Units)
	body.Order.Price = formatPrice(ticket.Price, inst)
	body.Order.TimeInForce = "GTD"
	body.Order.GTDTime = ticket.Expiry.UTC().Format(time.RFC3339Nano)
	body.Order.PositionFill = "DEFAULT"
	if ticket.ClientRef != "" {
		body.Order.ClientExtensions = &clientExtension{ID: ticket.ClientRef}
	}
	if ticket.StopLoss != 0 {
		body.Order.StopLossOnFill = &onFillDetail{Price: formatPrice(ticket.StopLoss, inst)}
	}
	if ticket.TakeProfit != 0 {
		body.Order.TakeProfitOnFill = &onFillDetail{Price: formatPrice(ticket.TakeProfit, inst)}
	}

	var result orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/v3/accounts/%s/orders", c.accountID))
	if err != nil {
		return nil, fmt.Errorf("order submission for %s failed: %w", ticket.Instrument, err)
	}
	if result.OrderRejectTransaction != nil {
		return nil, fmt.Errorf("order for %s rejected (%s): %w",
			ticket.Instrument, result.OrderRejectTransaction.RejectReason, ports.ErrBrokerRejected)
	}
	if err := c.statusError(resp); err != nil {
		return nil, fmt.Errorf("order submission for %s: %w", ticket.Instrument, err)
	}
	if result.OrderCancelTransaction != nil {
		return nil, fmt.Errorf("order for %s cancelled (%s): %w",
			ticket.Instrument, result.OrderCancelTransaction.Reason, ports.ErrBrokerRejected)
	}

	// Immediate fill: the limit price was already inside the market.
	if result.OrderFillTransaction != nil && result.OrderFillTransaction.TradeOpened != nil {
		fillPrice, err := strconv.ParseFloat(result.OrderFillTransaction.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed fill price for %s: %w", ticket.Instrument, err)
		}
		return &ports.OrderResult{
			TradeID:   result.OrderFillTransaction.TradeOpened.TradeID,
			FillPrice: fillPrice,
			Filled:    true,
			CreatedAt: result.OrderFillTransaction.Time,
		}, nil
	}
	if result.OrderCreateTransaction == nil {
		return nil, fmt.Errorf("order response for %s missing create transaction: %w",
			ticket.Instrument, ports.ErrUnknown)
	}
	return &ports.OrderResult{
		OrderID:   result.OrderCreateTransaction.ID,
		CreatedAt: result.OrderCreateTransaction.Time,
	}, nil
}

// GetOrder fetches the broker-side state of a resting order. A filled
// order is followed up with a trade lookup so the caller gets the
// actual open price, not the limit price.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*ports.OrderState, error) {
	var result getOrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(fmt.Sprintf("/v3/accounts/%s/orders/%s", c.accountID, orderID))
	if err != nil {
		return nil, fmt.Errorf("order lookup %s failed: %w", orderID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("order %s: %w", orderID, ports.ErrTradeNotFound)
	}
	if err := c.statusError(resp); err != nil {
		return nil, fmt.Errorf("order lookup %s: %w", orderID, err)
	}

	state := &ports.OrderState{}
	switch result.Order.State {
	case "FILLED":
		state.State = ports.BrokerOrderFilled
	case "CANCELLED":
		state.State = ports.BrokerOrderCancelled
	default:
		// PENDING and TRIGGERED both mean the order is still working.
		state.State = ports.BrokerOrderPending
	}
	if state.State != ports.BrokerOrderFilled {
		return state, nil
	}

	if result.Order.TradeOpenedID == "" {
		return nil, fmt.Errorf("filled order %s missing trade id: %w", orderID, ports.ErrUnknown)
	}
	state.TradeID = result.Order.TradeOpenedID
	state.FilledAt = result.Order.FilledTime

	var trade getTradeResponse
	resp, err = c.http.R().
		SetContext(ctx).
		SetResult(&trade).
		Get(fmt.Sprintf("/v3/accounts/%s/trades/%s", c.accountID, state.TradeID))
	if err != nil {
		return nil, fmt.Errorf("trade lookup %s failed: %w", state.TradeID, err)
	}
	if err := c.statusError(resp); err != nil {
		return nil, fmt.Errorf("trade lookup %s: %w", state.TradeID, err)
	}
	price, err := strconv.ParseFloat(trade.Trade.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed open price for trade %s: %w", state.TradeID, err)
	}
	state.FillPrice = price
	return state, nil
}

// CloseTrade closes an open broker trade at market.
func (c *Client) CloseTrade(ctx context.Context, tradeID string) (*ports.CloseResult, error) {
	var result closeTradeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"units": "ALL"}).
		SetResult(&result).
		Put(fmt.Sprintf("/v3/accounts/%s/trades/%s/close", c.accountID, tradeID))
	if err != nil {
		return nil, fmt.Errorf("close request for trade %s failed: %w", tradeID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("trade %s: %w", tradeID, ports.ErrTradeNotFound)
	}
	if err := c.statusError(resp); err != nil {
		return nil, fmt.Errorf("close request for trade %s: %w", tradeID, err)
	}
	if result.OrderFillTransaction == nil {
		return nil, fmt.Errorf("close response for trade %s missing fill: %w", tradeID, ports.ErrUnknown)
	}

	price, err := strconv.ParseFloat(result.OrderFillTransaction.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed close price for trade %s: %w", tradeID, err)
	}
	return &ports.CloseResult{Price: price, ClosedAt: result.OrderFillTransaction.Time}, nil
}

// --- Helpers ---

// statusError maps non-2xx responses onto the shared sentinel errors.
func (c *Client) statusError(resp *resty.Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return ports.ErrAuthenticationFailed
	case resp.StatusCode() == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case resp.StatusCode() == http.StatusNotFound:
		return ports.ErrNotFound
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("status %d: %w", resp.StatusCode(), ports.ErrBrokerUnavailable)
	default:
		return fmt.Errorf("status %d: %w", resp.StatusCode(), ports.ErrInvalidRequest)
	}
}

// formatPrice renders a price at the instrument's display precision.
// The broker rejects prices with more decimal places than it quotes.
func formatPrice(price float64, inst instruments.Instrument) string {
	return decimal.NewFromFloat(price).Round(int32(inst.DisplayPrecision)).String()
}

func candleToBar(instrument string, candle apiCandle) (domain.Bar, error) {
	open, err := strconv.ParseFloat(candle.Mid.O, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	high, err := strconv.ParseFloat(candle.Mid.H, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	low, err := strconv.ParseFloat(candle.Mid.L, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	closePrice, err := strconv.ParseFloat(candle.Mid.C, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	return domain.Bar{
		Instrument: instrument,
		Time:       candle.Time,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closePrice,
		Volume:     candle.Volume,
		Complete:   true,
	}, nil
}

// Package market keeps the in-memory order books the order-entry routes
// operate on. Orders rest at their limit price in price-time priority; no
// matching takes place here.
//
// A Market is not safe for concurrent use. The dispatch loop is its only
// caller.
package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrMarketExists  = errors.New("market already exists")
	ErrUnknownMarket = errors.New("unknown market")
	ErrUnknownOrder  = errors.New("unknown order")
	ErrInvalidOrder  = errors.New("invalid order")
)

type Side int

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch strings.ToLower(v) {
	case "buy", "bid":
		*s = Buy
	case "sell", "ask":
		*s = Sell
	default:
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, v)
	}
	return nil
}

// Order is a resting limit order. Price is in integer ticks.
type Order struct {
	ID       uint64 `json:"orderId"`
	Symbol   string `json:"symbol"`
	Side     Side   `json:"side"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// Level aggregates the resting orders at one price.
type Level struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
	Orders   int   `json:"orders"`
}

// Snapshot is the depth of one book, best prices first.
type Snapshot struct {
	Symbol string  `json:"symbol"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}

type Market struct {
	books  map[string]*book
	nextID uint64
}

func New() *Market {
	return &Market{books: make(map[string]*book)}
}

func validSymbol(sym string) bool {
	if sym == "" || len(sym) > 16 {
		return false
	}
	for i := 0; i < len(sym); i++ {
		c := sym[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '.' || c == '-' || c == '_') {
			return false
		}
	}
	return true
}

// AddMarket opens an empty book for symbol.
func (m *Market) AddMarket(symbol string) error {
	if !validSymbol(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	if _, ok := m.books[symbol]; ok {
		return fmt.Errorf("%w: %s", ErrMarketExists, symbol)
	}
	m.books[symbol] = newBook()
	return nil
}

// Symbols lists the open markets in lexical order.
func (m *Market) Symbols() []string {
	out := make([]string, 0, len(m.books))
	for sym := range m.books {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (m *Market) book(symbol string) (*book, error) {
	b, ok := m.books[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, symbol)
	}
	return b, nil
}

func (m *Market) Book(symbol string) (Snapshot, error) {
	b, err := m.book(symbol)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Symbol: symbol, Bids: levels(b.bids), Asks: levels(b.asks)}, nil
}

// AddOrder rests a new order and returns its id.
func (m *Market) AddOrder(symbol string, side Side, price, quantity int64) (uint64, error) {
	b, err := m.book(symbol)
	if err != nil {
		return 0, err
	}
	if side != Buy && side != Sell {
		return 0, fmt.Errorf("%w: side required", ErrInvalidOrder)
	}
	if err := checkTerms(price, quantity); err != nil {
		return 0, err
	}
	m.nextID++
	o := &Order{ID: m.nextID, Symbol: symbol, Side: side, Price: price, Quantity: quantity}
	b.insert(o)
	return o.ID, nil
}

func (m *Market) Order(symbol string, id uint64) (Order, error) {
	b, err := m.book(symbol)
	if err != nil {
		return Order{}, err
	}
	o, ok := b.byID[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	return *o, nil
}

func (m *Market) CancelOrder(symbol string, id uint64) error {
	b, err := m.book(symbol)
	if err != nil {
		return err
	}
	o, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	b.remove(o)
	return nil
}

// ModifyOrder changes price and quantity. Only a pure quantity reduction
// keeps the order's time priority.
func (m *Market) ModifyOrder(symbol string, id uint64, price, quantity int64) error {
	b, err := m.book(symbol)
	if err != nil {
		return err
	}
	o, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if err := checkTerms(price, quantity); err != nil {
		return err
	}
	if price == o.Price && quantity <= o.Quantity {
		o.Quantity = quantity
		return nil
	}
	b.remove(o)
	o.Price = price
	o.Quantity = quantity
	b.insert(o)
	return nil
}

func checkTerms(price, quantity int64) error {
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	return nil
}

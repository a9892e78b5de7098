// Package handlers implements the obsrv routes: /info and the order-entry
// operations backed by an in-memory market.
package handlers

import (
	"errors"
	"time"

	"github.com/NunoEdgarGFlowHub/cpptrade/internal/api"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/market"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/request"
	"github.com/NunoEdgarGFlowHub/cpptrade/internal/response"
)

const (
	Name       = "obsrv"
	APIVersion = 100
)

type Service struct {
	market *market.Market
	now    func() time.Time
}

// New returns a Service over m. A nil now uses time.Now.
func New(m *market.Market, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{market: m, now: now}
}

// Routes is the static route table registered with the dispatcher.
func (s *Service) Routes() []api.Route {
	return []api.Route{
		{Path: "/info", Handler: s.Info},
		{Path: "/marketAdd", Handler: s.MarketAdd, WantsBody: true, ExpectsJSON: true},
		{Path: "/marketList", Handler: s.MarketList},
		{Path: "/book", Handler: s.Book, WantsBody: true, ExpectsJSON: true},
		{Path: "/orderAdd", Handler: s.OrderAdd, WantsBody: true, ExpectsJSON: true},
		{Path: "/orderCancel", Handler: s.OrderCancel, WantsBody: true, ExpectsJSON: true},
		{Path: "/orderModify", Handler: s.OrderModify, WantsBody: true, ExpectsJSON: true},
	}
}

type infoReply struct {
	Name       string `json:"name"`
	APIVersion int    `json:"apiversion"`
	UnixTime   int64  `json:"unixtime"`
}

func (s *Service) Info(_ *request.Request, w *response.Writer) *api.HandlerError {
	return reply(w, infoReply{Name: Name, APIVersion: APIVersion, UnixTime: s.now().Unix()})
}

type symbolArgs struct {
	Symbol string `json:"symbol"`
}

type resultReply struct {
	Result bool `json:"result"`
}

func (s *Service) MarketAdd(r *request.Request, w *response.Writer) *api.HandlerError {
	var args symbolArgs
	if he := api.DecodeJSON(r, &args); he != nil {
		return he
	}
	if err := s.market.AddMarket(args.Symbol); err != nil {
		return marketError(err)
	}
	return reply(w, resultReply{Result: true})
}

func (s *Service) MarketList(_ *request.Request, w *response.Writer) *api.HandlerError {
	return reply(w, struct {
		Markets []string `json:"markets"`
	}{s.market.Symbols()})
}

func (s *Service) Book(r *request.Request, w *response.Writer) *api.HandlerError {
	var args symbolArgs
	if he := api.DecodeJSON(r, &args); he != nil {
		return he
	}
	snap, err := s.market.Book(args.Symbol)
	if err != nil {
		return marketError(err)
	}
	return reply(w, snap)
}

type orderArgs struct {
	Symbol   string      `json:"symbol"`
	OrderID  uint64      `json:"orderId"`
	Side     market.Side `json:"side"`
	Price    int64       `json:"price"`
	Quantity int64       `json:"quantity"`
}

func (s *Service) OrderAdd(r *request.Request, w *response.Writer) *api.HandlerError {
	var args orderArgs
	if he := api.DecodeJSON(r, &args); he != nil {
		return he
	}
	id, err := s.market.AddOrder(args.Symbol, args.Side, args.Price, args.Quantity)
	if err != nil {
		return marketError(err)
	}
	return reply(w, struct {
		OrderID uint64 `json:"orderId"`
	}{id})
}

func (s *Service) OrderCancel(r *request.Request, w *response.Writer) *api.HandlerError {
	var args orderArgs
	if he := api.DecodeJSON(r, &args); he != nil {
		return he
	}
	if err := s.market.CancelOrder(args.Symbol, args.OrderID); err != nil {
		return marketError(err)
	}
	return reply(w, resultReply{Result: true})
}

func (s *Service) OrderModify(r *request.Request, w *response.Writer) *api.HandlerError {
	var args orderArgs
	if he := api.DecodeJSON(r, &args); he != nil {
		return he
	}
	if err := s.market.ModifyOrder(args.Symbol, args.OrderID, args.Price, args.Quantity); err != nil {
		return marketError(err)
	}
	return reply(w, resultReply{Result: true})
}

func reply(w *response.Writer, v any) *api.HandlerError {
	if err := w.WriteJSON(response.StatusOK, v); err != nil {
		return api.JSONError(response.StatusInternalServerError, err.Error())
	}
	return nil
}

func marketError(err error) *api.HandlerError {
	switch {
	case errors.Is(err, market.ErrUnknownMarket), errors.Is(err, market.ErrUnknownOrder):
		return api.JSONError(response.StatusNotFound, err.Error())
	default:
		return api.JSONError(response.StatusBadRequest, err.Error())
	}
}

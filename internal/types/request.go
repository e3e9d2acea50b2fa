package types

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// TradeRequest describes one trade operation for OrderSend. Which fields
// matter depends on Action: DEAL and PENDING read the full price block,
// SLTP and MODIFY address an existing position or order by ticket.
type TradeRequest struct {
	Action      TradeAction  `json:"action" validate:"required"`
	Magic       int64        `json:"magic"`
	Order       int64        `json:"order"`
	Symbol      string       `json:"symbol"`
	Volume      float64      `json:"volume" validate:"gte=0"`
	Price       float64      `json:"price" validate:"gte=0"`
	StopLimit   float64      `json:"stoplimit" validate:"gte=0"`
	SL          float64      `json:"sl" validate:"gte=0"`
	TP          float64      `json:"tp" validate:"gte=0"`
	Deviation   int64        `json:"deviation" validate:"gte=0"`
	Type        OrderType    `json:"type"`
	TypeFilling OrderFilling `json:"type_filling"`
	TypeTime    OrderTime    `json:"type_time"`
	Expiration  time.Time    `json:"expiration"`
	Comment     string       `json:"comment"`
	Position    int64        `json:"position"`
	PositionBy  int64        `json:"position_by"`
}

// Validate checks structural validity of the request. Market-dependent
// checks (stop distances, margin, volume steps) happen in the terminal.
func (r TradeRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidTradeRequest, "invalid trade request", err)
	}

	switch r.Action {
	case TradeActionDeal, TradeActionPending:
		if r.Symbol == "" {
			return errors.New(errors.ErrCodeMissingParameter, "symbol is required for deal and pending actions")
		}

		if r.Volume <= 0 {
			return errors.Newf(errors.ErrCodeInvalidVolume, "volume must be positive, got %f", r.Volume)
		}
	case TradeActionSLTP:
		if r.Position == 0 {
			return errors.New(errors.ErrCodeMissingParameter, "position ticket is required for sltp action")
		}
	case TradeActionModify, TradeActionRemove:
		if r.Order == 0 {
			return errors.New(errors.ErrCodeMissingParameter, "order ticket is required for modify and remove actions")
		}
	case TradeActionCloseBy:
		if r.Position == 0 || r.PositionBy == 0 {
			return errors.New(errors.ErrCodeMissingParameter, "position and position_by tickets are required for close_by action")
		}
	default:
		return errors.Newf(errors.ErrCodeUnknownTradeAction, "unknown trade action %d", r.Action)
	}

	return nil
}

// TradeResult is the terminal's answer to OrderSend.
type TradeResult struct {
	Retcode   Retcode `json:"retcode"`
	Deal      int64   `json:"deal"`
	Order     int64   `json:"order"`
	Volume    float64 `json:"volume"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Comment   string  `json:"comment"`
	RequestID int64   `json:"request_id"`
}

// Ok reports whether the request fully completed.
func (r TradeResult) Ok() bool {
	return r.Retcode == RetcodeDone
}

// Package nwc answers Nostr Wallet Connect (NIP-47) requests arriving over a
// session's relay.
package nwc

import (
	"encoding/json"
	"fmt"

	"ecash-nwc-gateway/internal/core/domain"
)

// Request is the decrypted content of a kind 23194 event.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Command is one parsed NWC request. The set of implementations is closed.
type Command interface {
	Method() domain.Method
	command()
}

type GetInfo struct{}

type GetBalance struct{}

type MakeInvoice struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type LookupInvoice struct {
	PaymentHash string `json:"payment_hash"`
	Invoice     string `json:"invoice"`
	Bolt11      string `json:"bolt11"`
}

type ListTransactions struct {
	From   *int64 `json:"from"`
	Until  *int64 `json:"until"`
	Limit  *int   `json:"limit"`
	Offset *int   `json:"offset"`
	Unpaid bool   `json:"unpaid"`
	Type   string `json:"type"`
}

type PayInvoice struct {
	Invoice string `json:"invoice"`
	Bolt11  string `json:"bolt11"`
}

func (GetInfo) Method() domain.Method          { return domain.MethodGetInfo }
func (GetBalance) Method() domain.Method       { return domain.MethodGetBalance }
func (MakeInvoice) Method() domain.Method      { return domain.MethodMakeInvoice }
func (LookupInvoice) Method() domain.Method    { return domain.MethodLookupInvoice }
func (ListTransactions) Method() domain.Method { return domain.MethodListTransactions }
func (PayInvoice) Method() domain.Method       { return domain.MethodPayInvoice }

func (GetInfo) command()          {}
func (GetBalance) command()       {}
func (MakeInvoice) command()      {}
func (LookupInvoice) command()    {}
func (ListTransactions) command() {}
func (PayInvoice) command()       {}

// invoice prefers the NIP-47 bolt11 spelling over invoice.
func (c LookupInvoice) invoice() string {
	if c.Bolt11 != "" {
		return c.Bolt11
	}
	return c.Invoice
}

func (c PayInvoice) invoice() string {
	if c.Bolt11 != "" {
		return c.Bolt11
	}
	return c.Invoice
}

// ParseCommand decodes params for method. Missing params are treated as {}.
func ParseCommand(method domain.Method, params json.RawMessage) (Command, error) {
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}

	var cmd Command
	var err error
	switch method {
	case domain.MethodGetInfo:
		cmd = GetInfo{}
	case domain.MethodGetBalance:
		cmd = GetBalance{}
	case domain.MethodMakeInvoice:
		var c MakeInvoice
		err = json.Unmarshal(params, &c)
		cmd = c
	case domain.MethodLookupInvoice:
		var c LookupInvoice
		err = json.Unmarshal(params, &c)
		cmd = c
	case domain.MethodListTransactions:
		var c ListTransactions
		err = json.Unmarshal(params, &c)
		cmd = c
	case domain.MethodPayInvoice:
		var c PayInvoice
		err = json.Unmarshal(params, &c)
		if err == nil && c.invoice() == "" {
			err = fmt.Errorf("missing invoice")
		}
		cmd = c
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
	if err != nil {
		return nil, fmt.Errorf("%s params: %w", method, err)
	}
	return cmd, nil
}

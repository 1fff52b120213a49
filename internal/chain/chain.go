// Package chain normalizes the two supported blockchains behind a single
// capability interface so verification logic stays chain-agnostic.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Chain is the closed set of supported blockchains.
type Chain string

const (
	ETH Chain = "ETH"
	SOL Chain = "SOL"
)

// Parse maps a stored chain selector onto the closed enum.
func Parse(s string) (Chain, error) {
	switch Chain(strings.ToUpper(s)) {
	case ETH:
		return ETH, nil
	case SOL:
		return SOL, nil
	}
	return "", fmt.Errorf("unsupported chain: %q", s)
}

// InvalidTxnError is a recoverable, user-facing verification failure.
// Its message is surfaced verbatim to the user, who may retry with a
// different transaction.
type InvalidTxnError struct {
	Reason string
}

func (e *InvalidTxnError) Error() string {
	return e.Reason
}

func newInvalidTxn(format string, args ...interface{}) *InvalidTxnError {
	return &InvalidTxnError{Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidTxn reports whether err is a user-facing transaction failure.
func IsInvalidTxn(err error) bool {
	var e *InvalidTxnError
	return errors.As(err, &e)
}

// Adapter is the per-chain capability set. Holding checks never return an
// error: any query failure resolves to "does not hold" (fail closed).
type Adapter interface {
	// ResolveSelfTransfer validates that the transaction is a self transfer
	// proving wallet ownership and returns the proving address.
	ResolveSelfTransfer(ctx context.Context, txnHash string) (string, error)

	// ResolvePayment validates that the transaction pays exactly amount of
	// native currency to receiver and returns the sender address.
	ResolvePayment(ctx context.Context, txnHash, receiver string, amount float64) (string, error)

	// HoldsFungible reports whether wallet holds at least required units of
	// the token, decimal-adjusted where the chain requires it.
	HoldsFungible(ctx context.Context, wallet, tokenAddress string, required int64) bool

	// HoldsNonFungible reports whether wallet holds the NFT collection.
	HoldsNonFungible(ctx context.Context, wallet, nftAddress string) bool
}

// Registry dispatches to adapters by chain tag.
type Registry struct {
	adapters map[Chain]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Chain]Adapter)}
}

func (r *Registry) Register(c Chain, a Adapter) {
	r.adapters[c] = a
}

// Adapter returns the adapter for the chain. An unknown tag yields a
// user-facing error, matching the behavior for unresolvable transactions.
func (r *Registry) Adapter(c Chain) (Adapter, error) {
	a, ok := r.adapters[c]
	if !ok {
		return nil, newInvalidTxn("🔴 Couldn't verify the transaction on %s, please contact administrator with transaction hash.", c)
	}
	return a, nil
}

func (r *Registry) ResolveSelfTransfer(ctx context.Context, c Chain, txnHash string) (string, error) {
	a, err := r.Adapter(c)
	if err != nil {
		return "", err
	}
	return a.ResolveSelfTransfer(ctx, txnHash)
}

func (r *Registry) ResolvePayment(ctx context.Context, c Chain, txnHash, receiver string, amount float64) (string, error) {
	a, err := r.Adapter(c)
	if err != nil {
		return "", err
	}
	return a.ResolvePayment(ctx, txnHash, receiver, amount)
}

func (r *Registry) HoldsFungible(ctx context.Context, c Chain, wallet, tokenAddress string, required int64) bool {
	a, err := r.Adapter(c)
	if err != nil {
		return false
	}
	return a.HoldsFungible(ctx, wallet, tokenAddress, required)
}

func (r *Registry) HoldsNonFungible(ctx context.Context, c Chain, wallet, nftAddress string) bool {
	a, err := r.Adapter(c)
	if err != nil {
		return false
	}
	return a.HoldsNonFungible(ctx, wallet, nftAddress)
}

package service

import (
	"context"

	"paladin-guard-backend/internal/chain"
)

// ChainResolver is the chain-agnostic capability set the orchestrator
// evaluates predicates through. *chain.Registry satisfies it.
type ChainResolver interface {
	ResolveSelfTransfer(ctx context.Context, c chain.Chain, txnHash string) (string, error)
	ResolvePayment(ctx context.Context, c chain.Chain, txnHash, receiver string, amount float64) (string, error)
	HoldsFungible(ctx context.Context, c chain.Chain, wallet, tokenAddress string, required int64) bool
	HoldsNonFungible(ctx context.Context, c chain.Chain, wallet, nftAddress string) bool
}

// Messenger is the slice of the messaging layer the orchestrator calls into.
type Messenger interface {
	CreateInviteLink(ctx context.Context, chatID int64, memberLimit int) (string, error)
	PromoteMember(ctx context.Context, chatID, userID int64, title string) error
}

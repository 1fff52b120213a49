package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paladin-guard-backend/internal/chain"
	apperrors "paladin-guard-backend/internal/common/errors"
	"paladin-guard-backend/internal/features/guard/models"
)

type fakeGuardRepo struct {
	guards map[int64]*models.Guard
}

func newFakeGuardRepo(guards ...*models.Guard) *fakeGuardRepo {
	repo := &fakeGuardRepo{guards: make(map[int64]*models.Guard)}
	for _, g := range guards {
		repo.guards[g.ChatID] = g
	}
	return repo
}

func (r *fakeGuardRepo) Create(_ context.Context, guard *models.Guard) error {
	r.guards[guard.ChatID] = guard
	return nil
}

func (r *fakeGuardRepo) GetByChatID(_ context.Context, chatID int64) (*models.Guard, error) {
	guard, ok := r.guards[chatID]
	if !ok {
		return nil, apperrors.NewGuardNotFoundError(chatID)
	}
	return guard, nil
}

func (r *fakeGuardRepo) ListByType(_ context.Context, guardType models.GuardType) ([]*models.Guard, error) {
	var out []*models.Guard
	for _, g := range r.guards {
		if g.GuardType == guardType {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGuardRepo) AppendVerifiedUser(_ context.Context, chatID, userID int64) error {
	guard, ok := r.guards[chatID]
	if !ok {
		return apperrors.NewGuardNotFoundError(chatID)
	}
	if guard.PortalData == nil {
		guard.PortalData = &models.PortalData{}
	}
	if guard.PortalData.HasVerifiedUser(userID) {
		return nil
	}
	guard.PortalData.VerifiedUsers = append(guard.PortalData.VerifiedUsers, userID)
	return nil
}

func (r *fakeGuardRepo) UpdateTokensRequired(_ context.Context, chatID int64, tokensRequired int64) error {
	guard, ok := r.guards[chatID]
	if !ok {
		return apperrors.NewGuardNotFoundError(chatID)
	}
	guard.Parameters.TokensRequired = tokensRequired
	return nil
}

type fakeTxnRepo struct {
	records map[string]*models.VerifiedTxn
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{records: make(map[string]*models.VerifiedTxn)}
}

// Keys are verbatim, matching the redis repository: the EVM adapter
// reports lowercased addresses, Solana base58 is case-sensitive.
func txnKey(chatID int64, wallet string) string {
	return fmt.Sprintf("%d:%s", chatID, wallet)
}

func (r *fakeTxnRepo) Create(_ context.Context, txn *models.VerifiedTxn) error {
	key := txnKey(txn.ChatID, txn.WalletAddress)
	if _, exists := r.records[key]; exists {
		return apperrors.New(apperrors.ErrCodeWalletReused, "wallet already verified for this chat")
	}
	r.records[key] = txn
	return nil
}

func (r *fakeTxnRepo) FindByWallet(_ context.Context, chatID int64, wallet string) (*models.VerifiedTxn, error) {
	return r.records[txnKey(chatID, wallet)], nil
}

func (r *fakeTxnRepo) ListByChat(_ context.Context, chatID int64) ([]*models.VerifiedTxn, error) {
	var out []*models.VerifiedTxn
	for _, txn := range r.records {
		if txn.ChatID == chatID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) Delete(_ context.Context, chatID int64, wallet string) error {
	delete(r.records, txnKey(chatID, wallet))
	return nil
}

// fakeResolver scripts chain behavior per test.
type fakeResolver struct {
	wallet       string
	resolveErr   error
	tokenHolders map[string]bool
	nftHolders   map[string]bool

	paymentCalls      int
	selfTransferCalls int
}

func (f *fakeResolver) ResolveSelfTransfer(_ context.Context, _ chain.Chain, _ string) (string, error) {
	f.selfTransferCalls++
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.wallet, nil
}

func (f *fakeResolver) ResolvePayment(_ context.Context, _ chain.Chain, _, _ string, _ float64) (string, error) {
	f.paymentCalls++
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.wallet, nil
}

func (f *fakeResolver) HoldsFungible(_ context.Context, _ chain.Chain, wallet, _ string, _ int64) bool {
	return f.tokenHolders[wallet]
}

func (f *fakeResolver) HoldsNonFungible(_ context.Context, _ chain.Chain, wallet, _ string) bool {
	return f.nftHolders[wallet]
}

type fakeMessenger struct {
	link         string
	linkErr      error
	linkCalls    int
	promoteErr   error
	promotions   []int64
	promoteTitle string
}

func (f *fakeMessenger) CreateInviteLink(_ context.Context, _ int64, _ int) (string, error) {
	f.linkCalls++
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return f.link, nil
}

func (f *fakeMessenger) PromoteMember(_ context.Context, _ int64, userID int64, title string) error {
	if f.promoteErr != nil {
		return f.promoteErr
	}
	f.promotions = append(f.promotions, userID)
	f.promoteTitle = title
	return nil
}

func tokenGuard(chatID int64) *models.Guard {
	return &models.Guard{
		ChatID:    chatID,
		GuardType: models.GuardTokenOnly,
		Parameters: models.Parameters{
			Chain:          chain.ETH,
			TokenAddress:   "0xToken",
			TokensRequired: 100,
		},
	}
}

func TestBeginUnguardedChat(t *testing.T) {
	svc := NewService(newFakeGuardRepo(), newFakeTxnRepo(), &fakeResolver{}, &fakeMessenger{})

	_, err := svc.Begin(context.Background(), 42, 7)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsNotFound())
}

func TestSubmitGrantsTokenHolder(t *testing.T) {
	resolver := &fakeResolver{wallet: "0xabc", tokenHolders: map[string]bool{"0xabc": true}}
	messenger := &fakeMessenger{link: "https://t.me/+invite"}
	svc := NewService(newFakeGuardRepo(tokenGuard(1)), newFakeTxnRepo(), resolver, messenger)

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)

	outcome := svc.Submit(context.Background(), flow, "0xhash")
	assert.Equal(t, StatusGranted, outcome.Status)
	assert.Equal(t, "https://t.me/+invite", outcome.InviteLink)
	assert.Contains(t, outcome.Message, "https://t.me/+invite")
	assert.Equal(t, "0xabc", outcome.WalletAddress)
	assert.Equal(t, 1, resolver.selfTransferCalls)
	assert.Zero(t, resolver.paymentCalls)
}

func TestSubmitDeniesNonHolder(t *testing.T) {
	resolver := &fakeResolver{wallet: "0xabc"}
	svc := NewService(newFakeGuardRepo(tokenGuard(1)), newFakeTxnRepo(), resolver, &fakeMessenger{link: "x"})

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)

	outcome := svc.Submit(context.Background(), flow, "0xhash")
	assert.Equal(t, StatusDenied, outcome.Status)
	assert.Contains(t, outcome.Message, "does not hold 100 TOKENS of 0xToken")
}

func TestSubmitRejectsReusedWallet(t *testing.T) {
	resolver := &fakeResolver{wallet: "0xabc", tokenHolders: map[string]bool{"0xabc": true}}
	messenger := &fakeMessenger{link: "https://t.me/+invite"}
	txns := newFakeTxnRepo()
	svc := NewService(newFakeGuardRepo(tokenGuard(1)), txns, resolver, messenger)

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)
	outcome := svc.Submit(context.Background(), flow, "0xhash")
	require.Equal(t, StatusGranted, outcome.Status)

	// Second user replays the same wallet.
	flow2, err := svc.Begin(context.Background(), 1, 8)
	require.NoError(t, err)
	outcome = svc.Submit(context.Background(), flow2, "0xhash2")
	assert.Equal(t, StatusDenied, outcome.Status)
	assert.Equal(t, msgWalletAlreadyVerified, outcome.Message)
	assert.Equal(t, 1, messenger.linkCalls)
}

func TestSubmitSolanaWalletsDifferingInCaseAreDistinct(t *testing.T) {
	guard := &models.Guard{
		ChatID:    1,
		GuardType: models.GuardTokenOnly,
		Parameters: models.Parameters{
			Chain:          chain.SOL,
			TokenAddress:   "TokenMint111",
			TokensRequired: 100,
		},
	}
	// Base58 addresses are case-sensitive: these are two different wallets.
	resolver := &fakeResolver{
		wallet:       "GsbwXfJraMomNxBcjYLcG3mxkBUiyWXAB32fGbSMQRdW",
		tokenHolders: map[string]bool{"GsbwXfJraMomNxBcjYLcG3mxkBUiyWXAB32fGbSMQRdW": true, "gsbwxfjramomnxbcjylcg3mxkbuiywxab32fgbsmqrdw": true},
	}
	messenger := &fakeMessenger{link: "https://t.me/+invite"}
	txns := newFakeTxnRepo()
	svc := NewService(newFakeGuardRepo(guard), txns, resolver, messenger)

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)
	outcome := svc.Submit(context.Background(), flow, "sig1")
	require.Equal(t, StatusGranted, outcome.Status)

	resolver.wallet = "gsbwxfjramomnxbcjylcg3mxkbuiywxab32fgbsmqrdw"
	flow2, err := svc.Begin(context.Background(), 1, 8)
	require.NoError(t, err)
	outcome = svc.Submit(context.Background(), flow2, "sig2")
	assert.Equal(t, StatusGranted, outcome.Status)
	assert.Equal(t, 2, messenger.linkCalls)

	records, err := txns.ListByChat(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSubmitPaymentNeverSubstitutesForHolding(t *testing.T) {
	guard := &models.Guard{
		ChatID:    1,
		GuardType: models.GuardPaymentAndToken,
		Parameters: models.Parameters{
			Chain:          chain.ETH,
			WalletAddress:  "0xReceiver",
			TxnAmount:      0.5,
			TokenAddress:   "0xToken",
			TokensRequired: 100,
		},
	}
	// Payment resolves fine, holding check fails.
	resolver := &fakeResolver{wallet: "0xabc"}
	svc := NewService(newFakeGuardRepo(guard), newFakeTxnRepo(), resolver, &fakeMessenger{link: "x"})

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)

	outcome := svc.Submit(context.Background(), flow, "0xhash")
	assert.Equal(t, StatusDenied, outcome.Status)
	assert.Equal(t, 1, resolver.paymentCalls)
	assert.Zero(t, resolver.selfTransferCalls)
}

func TestSubmitAllPredicatesChecked(t *testing.T) {
	guard := &models.Guard{
		ChatID:    1,
		GuardType: models.GuardPaymentAndTokenAndNFT,
		Parameters: models.Parameters{
			Chain:          chain.ETH,
			WalletAddress:  "0xReceiver",
			TxnAmount:      0.5,
			TokenAddress:   "0xToken",
			TokensRequired: 100,
			NFTAddress:     "0xNFT",
		},
	}
	// Holds the token but not the NFT.
	resolver := &fakeResolver{wallet: "0xabc", tokenHolders: map[string]bool{"0xabc": true}}
	svc := NewService(newFakeGuardRepo(guard), newFakeTxnRepo(), resolver, &fakeMessenger{link: "x"})

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)

	outcome := svc.Submit(context.Background(), flow, "0xhash")
	assert.Equal(t, StatusDenied, outcome.Status)
	assert.Contains(t, outcome.Message, "does not hold an NFT of 0xNFT")
}

func TestSubmitInvalidTransactionSurfacedVerbatim(t *testing.T) {
	resolver := &fakeResolver{resolveErr: &chain.InvalidTxnError{Reason: "❌ Couldn't find the transaction, please try with different hash"}}
	svc := NewService(newFakeGuardRepo(tokenGuard(1)), newFakeTxnRepo(), resolver, &fakeMessenger{link: "x"})

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)

	outcome := svc.Submit(context.Background(), flow, "bogus")
	assert.Equal(t, StatusError, outcome.Status)
	assert.Equal(t, "❌ Couldn't find the transaction, please try with different hash", outcome.Message)
}

func TestSubmitInternalErrorNotSurfaced(t *testing.T) {
	resolver := &fakeResolver{resolveErr: errors.New("connection reset by peer")}
	svc := NewService(newFakeGuardRepo(tokenGuard(1)), newFakeTxnRepo(), resolver, &fakeMessenger{link: "x"})

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)

	outcome := svc.Submit(context.Background(), flow, "0xhash")
	assert.Equal(t, StatusError, outcome.Status)
	assert.NotContains(t, outcome.Message, "connection reset")
}

func TestSubmitLinkFailureIsNotDenial(t *testing.T) {
	resolver := &fakeResolver{wallet: "0xabc", tokenHolders: map[string]bool{"0xabc": true}}
	messenger := &fakeMessenger{linkErr: errors.New("bot is not admin")}
	txns := newFakeTxnRepo()
	svc := NewService(newFakeGuardRepo(tokenGuard(1)), txns, resolver, messenger)

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)

	outcome := svc.Submit(context.Background(), flow, "0xhash")
	assert.Equal(t, StatusGrantedLinkFailed, outcome.Status)
	assert.Equal(t, msgCouldntGenerateLink, outcome.Message)

	// The verification record exists: the wallet passed.
	record, err := txns.FindByWallet(context.Background(), 1, "0xabc")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestSubmitWebVerificationGuardRejectsHash(t *testing.T) {
	guard := &models.Guard{ChatID: 1, GuardType: models.GuardNormalVerification}
	svc := NewService(newFakeGuardRepo(guard), newFakeTxnRepo(), &fakeResolver{}, &fakeMessenger{})

	flow, err := svc.Begin(context.Background(), 1, 7)
	require.NoError(t, err)
	require.True(t, flow.RequiresWebVerification())

	outcome := svc.Submit(context.Background(), flow, "0xhash")
	assert.Equal(t, StatusError, outcome.Status)
	assert.Equal(t, msgUseWebVerification, outcome.Message)
}

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"paladin-guard-backend/internal/common/logger"
)

const lamportsPerSOL = 1_000_000_000

// SolanaAdapter implements the adapter contract for the account/token-ledger
// chain. Transactions resolve through a third-party indexing API (the chain's
// own RPC does not expose parsed native transfers); holdings resolve through
// the chain's JSON-RPC token-account queries.
type SolanaAdapter struct {
	rpcURL      string
	indexerBase string
	indexerKey  string
	httpClient  *http.Client
}

// NewSolanaAdapter creates an adapter backed by the given RPC endpoint and
// indexer API.
func NewSolanaAdapter(rpcURL, indexerBase, indexerAPIKey string) *SolanaAdapter {
	return &SolanaAdapter{
		rpcURL:      rpcURL,
		indexerBase: strings.TrimRight(indexerBase, "/"),
		indexerKey:  indexerAPIKey,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type nativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

// transfer fetches the first native transfer of the transaction from the
// indexer. HTTP 400 means the submitted id itself is invalid; any other
// failure is reported as a transient service problem.
func (a *SolanaAdapter) transfer(ctx context.Context, txnHash string) (*nativeTransfer, error) {
	body, err := json.Marshal(map[string][]string{"transactions": {txnHash}})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v0/transactions?api-key=%s&commitment=confirmed", a.indexerBase, a.indexerKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, newInvalidTxn("Server busy, please try again after some time!")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusBadRequest {
			return nil, newInvalidTxn("Invalid Transaction ID")
		}
		return nil, newInvalidTxn("Server busy, please try again after some time!")
	}

	var out []struct {
		NativeTransfers []nativeTransfer `json:"nativeTransfers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, newInvalidTxn("Invalid transaction found")
	}
	if len(out) == 0 || len(out[0].NativeTransfers) == 0 {
		return nil, newInvalidTxn("Invalid transaction found")
	}
	return &out[0].NativeTransfers[0], nil
}

func (a *SolanaAdapter) ResolveSelfTransfer(ctx context.Context, txnHash string) (string, error) {
	txn, err := a.transfer(ctx, txnHash)
	if err != nil {
		return "", err
	}

	if txn.FromUserAccount != txn.ToUserAccount {
		return "", newInvalidTxn("🔴 Transaction does not verify the ownership of wallet, please try with different transaction!")
	}
	return txn.ToUserAccount, nil
}

func (a *SolanaAdapter) ResolvePayment(ctx context.Context, txnHash, receiver string, amount float64) (string, error) {
	txn, err := a.transfer(ctx, txnHash)
	if err != nil {
		return "", err
	}

	// Ledger addresses are base58 and case-sensitive, so the receiver
	// compares exactly.
	if float64(txn.Amount)/lamportsPerSOL != amount || txn.ToUserAccount != receiver {
		return "", newInvalidTxn("🔴 Transaction does not verify the payment, please try with different transaction! Please send %v SOL to %s and try again.", amount, receiver)
	}
	return txn.FromUserAccount, nil
}

func (a *SolanaAdapter) HoldsFungible(ctx context.Context, wallet, tokenAddress string, required int64) bool {
	balance, ok := a.tokenBalance(ctx, wallet, tokenAddress)
	if !ok {
		return false
	}
	return balance >= float64(required)
}

// HoldsNonFungible requires a balance of exactly one unit on this chain,
// unlike the EVM path's "at least one".
func (a *SolanaAdapter) HoldsNonFungible(ctx context.Context, wallet, nftAddress string) bool {
	balance, ok := a.tokenBalance(ctx, wallet, nftAddress)
	if !ok {
		return false
	}
	return balance == 1
}

// tokenBalance resolves the wallet's token account for the mint and returns
// its UI-adjusted balance. Any failure reads as "does not hold".
func (a *SolanaAdapter) tokenBalance(ctx context.Context, wallet, mint string) (float64, bool) {
	var accounts struct {
		Value []struct {
			Pubkey string `json:"pubkey"`
		} `json:"value"`
	}
	err := a.rpcCall(ctx, "getTokenAccountsByOwner", []interface{}{
		wallet,
		map[string]string{"mint": mint},
		map[string]string{"encoding": "base64"},
	}, &accounts)
	if err != nil {
		logger.Debug().Err(err).Str("wallet", wallet).Str("mint", mint).Msg("token account lookup failed")
		return 0, false
	}
	if len(accounts.Value) == 0 || accounts.Value[0].Pubkey == "" {
		return 0, false
	}

	var balance struct {
		Value struct {
			UIAmount *float64 `json:"uiAmount"`
		} `json:"value"`
	}
	err = a.rpcCall(ctx, "getTokenAccountBalance", []interface{}{accounts.Value[0].Pubkey}, &balance)
	if err != nil {
		logger.Debug().Err(err).Str("wallet", wallet).Str("mint", mint).Msg("token balance query failed")
		return 0, false
	}
	if balance.Value.UIAmount == nil {
		return 0, false
	}
	return *balance.Value.UIAmount, true
}

func (a *SolanaAdapter) rpcCall(ctx context.Context, method string, params []interface{}, result interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc http %d", resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}
	return json.Unmarshal(envelope.Result, result)
}

package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	senderAddr   = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
	receiverAddr = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	tokenAddr    = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
)

// evmStub answers the two JSON-RPC methods the adapter issues. Keys of
// balances/decimals responses are raw 32-byte hex words.
type evmStub struct {
	txResult     json.RawMessage // response to eth_getTransactionByHash
	balanceWord  string          // response to eth_call balanceOf
	decimalsWord string          // response to eth_call decimals
}

func (s *evmStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result json.RawMessage
		switch req.Method {
		case "eth_getTransactionByHash":
			result = s.txResult
		case "eth_call":
			var call struct {
				Data string `json:"data"`
			}
			require.NoError(t, json.Unmarshal(req.Params[0], &call))
			switch {
			case strings.HasPrefix(call.Data, "0x70a08231"): // balanceOf(address)
				result = json.RawMessage(`"` + s.balanceWord + `"`)
			case strings.HasPrefix(call.Data, "0x313ce567"): // decimals()
				result = json.RawMessage(`"` + s.decimalsWord + `"`)
			default:
				t.Fatalf("unexpected eth_call data: %s", call.Data)
			}
		default:
			t.Fatalf("unexpected rpc method: %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func newTestAdapter(t *testing.T, stub *evmStub) *EVMAdapter {
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	adapter, err := NewEVMAdapter(server.URL)
	require.NoError(t, err)
	t.Cleanup(adapter.Close)
	return adapter
}

func txJSON(from, to, value string) json.RawMessage {
	return json.RawMessage(`{"from":"` + from + `","to":"` + to + `","value":"` + value + `"}`)
}

func TestEVMResolveSelfTransfer(t *testing.T) {
	adapter := newTestAdapter(t, &evmStub{
		txResult: txJSON(senderAddr, senderAddr, "0x0"),
	})

	wallet, err := adapter.ResolveSelfTransfer(context.Background(), "0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(senderAddr), wallet)
}

func TestEVMResolveSelfTransferRejectsOtherRecipient(t *testing.T) {
	adapter := newTestAdapter(t, &evmStub{
		txResult: txJSON(senderAddr, receiverAddr, "0x0"),
	})

	_, err := adapter.ResolveSelfTransfer(context.Background(), "0xdeadbeef")
	require.Error(t, err)
	assert.True(t, IsInvalidTxn(err))
	assert.Contains(t, err.Error(), "does not verify the ownership")
}

func TestEVMResolveSelfTransferMissingTransaction(t *testing.T) {
	adapter := newTestAdapter(t, &evmStub{txResult: json.RawMessage("null")})

	_, err := adapter.ResolveSelfTransfer(context.Background(), "0xdeadbeef")
	require.Error(t, err)
	assert.True(t, IsInvalidTxn(err))
	assert.Contains(t, err.Error(), "Couldn't find the transaction")
}

func TestEVMResolvePayment(t *testing.T) {
	// 0.5 ETH in wei.
	adapter := newTestAdapter(t, &evmStub{
		txResult: txJSON(senderAddr, receiverAddr, "0x6f05b59d3b20000"),
	})

	wallet, err := adapter.ResolvePayment(context.Background(), "0xdeadbeef", receiverAddr, 0.5)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(senderAddr), wallet)
}

func TestEVMResolvePaymentReceiverCaseInsensitive(t *testing.T) {
	adapter := newTestAdapter(t, &evmStub{
		txResult: txJSON(senderAddr, receiverAddr, "0x6f05b59d3b20000"),
	})

	_, err := adapter.ResolvePayment(context.Background(), "0xdeadbeef", strings.ToLower(receiverAddr), 0.5)
	require.NoError(t, err)
}

func TestEVMResolvePaymentWrongAmount(t *testing.T) {
	adapter := newTestAdapter(t, &evmStub{
		txResult: txJSON(senderAddr, receiverAddr, "0x6f05b59d3b20000"),
	})

	_, err := adapter.ResolvePayment(context.Background(), "0xdeadbeef", receiverAddr, 0.6)
	require.Error(t, err)
	assert.True(t, IsInvalidTxn(err))
	assert.Contains(t, err.Error(), "0.6 ETH")
}

func TestEVMResolvePaymentWrongReceiver(t *testing.T) {
	adapter := newTestAdapter(t, &evmStub{
		txResult: txJSON(senderAddr, senderAddr, "0x6f05b59d3b20000"),
	})

	_, err := adapter.ResolvePayment(context.Background(), "0xdeadbeef", receiverAddr, 0.5)
	require.Error(t, err)
	assert.True(t, IsInvalidTxn(err))
}

func TestEVMHoldsFungible(t *testing.T) {
	// Balance of 100 tokens at 18 decimals.
	stub := &evmStub{
		balanceWord:  "0x0000000000000000000000000000000000000000000000056bc75e2d63100000",
		decimalsWord: "0x0000000000000000000000000000000000000000000000000000000000000012",
	}
	adapter := newTestAdapter(t, stub)

	assert.True(t, adapter.HoldsFungible(context.Background(), senderAddr, tokenAddr, 100))
	assert.True(t, adapter.HoldsFungible(context.Background(), senderAddr, tokenAddr, 99))
	assert.False(t, adapter.HoldsFungible(context.Background(), senderAddr, tokenAddr, 101))
}

func TestEVMHoldsFungibleRejectsMalformedAddresses(t *testing.T) {
	adapter := newTestAdapter(t, &evmStub{})

	assert.False(t, adapter.HoldsFungible(context.Background(), "not-an-address", tokenAddr, 1))
	assert.False(t, adapter.HoldsFungible(context.Background(), senderAddr, "not-an-address", 1))
}

func TestEVMHoldsNonFungible(t *testing.T) {
	held := newTestAdapter(t, &evmStub{
		balanceWord: "0x0000000000000000000000000000000000000000000000000000000000000001",
	})
	assert.True(t, held.HoldsNonFungible(context.Background(), senderAddr, tokenAddr))

	empty := newTestAdapter(t, &evmStub{
		balanceWord: "0x0000000000000000000000000000000000000000000000000000000000000000",
	})
	assert.False(t, empty.HoldsNonFungible(context.Background(), senderAddr, tokenAddr))
}

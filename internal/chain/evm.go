package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"paladin-guard-backend/internal/common/logger"
)

const erc20ABIJSON = `[
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint8"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const erc721ABIJSON = `[
	{
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// EVMAdapter implements the adapter contract for EVM-style chains over a
// JSON-RPC endpoint.
type EVMAdapter struct {
	rpc       *rpc.Client
	eth       *ethclient.Client
	erc20ABI  abi.ABI
	erc721ABI abi.ABI
}

// NewEVMAdapter connects to an EVM JSON-RPC endpoint.
func NewEVMAdapter(rpcURL string) (*EVMAdapter, error) {
	client, err := rpc.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to EVM RPC: %w", err)
	}

	erc20, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing ERC-20 ABI: %w", err)
	}
	erc721, err := abi.JSON(strings.NewReader(erc721ABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing ERC-721 ABI: %w", err)
	}

	return &EVMAdapter{
		rpc:       client,
		eth:       ethclient.NewClient(client),
		erc20ABI:  erc20,
		erc721ABI: erc721,
	}, nil
}

// Close shuts down the RPC connection.
func (a *EVMAdapter) Close() {
	a.rpc.Close()
}

// rpcTransaction carries the subset of eth_getTransactionByHash we verify
// against. The node reports the recovered sender, so no local signature
// recovery is needed.
type rpcTransaction struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
}

func (a *EVMAdapter) transaction(ctx context.Context, txnHash string) (*rpcTransaction, error) {
	var tx *rpcTransaction
	if err := a.rpc.CallContext(ctx, &tx, "eth_getTransactionByHash", common.HexToHash(txnHash)); err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash: %w", err)
	}
	if tx == nil {
		return nil, newInvalidTxn("❌ Couldn't find the transaction, please try with different hash")
	}
	return tx, nil
}

func (a *EVMAdapter) ResolveSelfTransfer(ctx context.Context, txnHash string) (string, error) {
	tx, err := a.transaction(ctx, txnHash)
	if err != nil {
		return "", err
	}

	if tx.To == nil || *tx.To != tx.From {
		return "", newInvalidTxn("🔴 Transaction does not verify the ownership of wallet, please try with different transaction!")
	}
	return strings.ToLower(tx.To.Hex()), nil
}

func (a *EVMAdapter) ResolvePayment(ctx context.Context, txnHash, receiver string, amount float64) (string, error) {
	tx, err := a.transaction(ctx, txnHash)
	if err != nil {
		return "", err
	}

	// Addresses compare case-insensitively; HexToAddress normalizes both
	// sides. The amount compares in whole-currency units, the same form the
	// guard stores it in.
	if etherValue(tx.Value) != amount || tx.To == nil || *tx.To != common.HexToAddress(receiver) {
		return "", newInvalidTxn("🔴 Transaction does not verify the payment, please try with different transaction! Please send %v ETH to %s and try again.", amount, receiver)
	}
	return strings.ToLower(tx.From.Hex()), nil
}

func (a *EVMAdapter) HoldsFungible(ctx context.Context, wallet, tokenAddress string, required int64) bool {
	if !common.IsHexAddress(wallet) || !common.IsHexAddress(tokenAddress) {
		return false
	}

	token := common.HexToAddress(tokenAddress)
	balance, err := a.callBalanceOf(ctx, a.erc20ABI, token, common.HexToAddress(wallet))
	if err != nil {
		logger.Debug().Err(err).Str("token", tokenAddress).Msg("ERC-20 balance query failed")
		return false
	}

	decimals, err := a.callDecimals(ctx, token)
	if err != nil {
		logger.Debug().Err(err).Str("token", tokenAddress).Msg("ERC-20 decimals query failed")
		return false
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	adjusted := new(big.Int).Div(balance, divisor)
	return adjusted.Cmp(big.NewInt(required)) >= 0
}

func (a *EVMAdapter) HoldsNonFungible(ctx context.Context, wallet, nftAddress string) bool {
	if !common.IsHexAddress(wallet) || !common.IsHexAddress(nftAddress) {
		return false
	}

	balance, err := a.callBalanceOf(ctx, a.erc721ABI, common.HexToAddress(nftAddress), common.HexToAddress(wallet))
	if err != nil {
		logger.Debug().Err(err).Str("nft", nftAddress).Msg("ERC-721 balance query failed")
		return false
	}
	return balance.Sign() > 0
}

func (a *EVMAdapter) callBalanceOf(ctx context.Context, contractABI abi.ABI, contract, wallet common.Address) (*big.Int, error) {
	callData, err := contractABI.Pack("balanceOf", wallet)
	if err != nil {
		return nil, fmt.Errorf("packing balanceOf: %w", err)
	}

	output, err := a.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: callData}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling balanceOf: %w", err)
	}

	results, err := contractABI.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("unpacking balanceOf: %w", err)
	}

	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type for balance: %T", results[0])
	}
	return balance, nil
}

func (a *EVMAdapter) callDecimals(ctx context.Context, contract common.Address) (uint8, error) {
	callData, err := a.erc20ABI.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("packing decimals: %w", err)
	}

	output, err := a.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: callData}, nil)
	if err != nil {
		return 0, fmt.Errorf("calling decimals: %w", err)
	}

	results, err := a.erc20ABI.Unpack("decimals", output)
	if err != nil {
		return 0, fmt.Errorf("unpacking decimals: %w", err)
	}

	decimals, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected type for decimals: %T", results[0])
	}
	return decimals, nil
}

// etherValue converts a wei value into whole ether, matching the precision
// the payment amount was configured with.
func etherValue(wei *hexutil.Big) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei.ToInt()),
		big.NewFloat(1e18),
	).Float64()
	return f
}

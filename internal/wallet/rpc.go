package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// balanceReader is the slice of the JSON-RPC client that Balance needs.
type balanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// RPCClient reads native-token balances over JSON-RPC, one endpoint per
// chain. Chains without a configured endpoint report ErrNoChainClient.
type RPCClient struct {
	readers map[string]balanceReader
}

// NewRPCClient dials the given chain endpoints. Empty URLs are skipped, so a
// partially configured deployment serves the chains it has and rejects the
// rest.
func NewRPCClient(endpoints map[string]string) (*RPCClient, error) {
	readers := make(map[string]balanceReader, len(endpoints))
	for chain, url := range endpoints {
		if url == "" {
			continue
		}
		client, err := ethclient.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("dialing %s rpc: %w", chain, err)
		}
		readers[chain] = client
	}
	return &RPCClient{readers: readers}, nil
}

// Balance returns the address's native-token balance in its smallest unit as
// a decimal string. The engine never interprets the amount.
func (c *RPCClient) Balance(ctx context.Context, chain, address string) (string, error) {
	reader, ok := c.readers[chain]
	if !ok {
		return "", ErrNoChainClient
	}
	wei, err := reader.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return "", err
	}
	return wei.String(), nil
}

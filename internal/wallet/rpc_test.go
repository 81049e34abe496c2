package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

type fakeBalanceReader struct {
	wei *big.Int
	err error
}

func (f fakeBalanceReader) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.wei, f.err
}

func TestRPCClient_RoutesPerChain(t *testing.T) {
	rpc := &RPCClient{readers: map[string]balanceReader{
		models.ChainEthereum: fakeBalanceReader{wei: big.NewInt(1_000_000_000_000_000_000)},
	}}
	mgr := NewManager(newMockWalletStore(), rpc)
	ctx := context.Background()

	if _, err := mgr.CreateAddress(ctx, 7, models.ChainEthereum); err != nil {
		t.Fatalf("CreateAddress ethereum: %v", err)
	}
	balance, err := mgr.ChainBalance(ctx, 7, models.ChainEthereum)
	if err != nil {
		t.Fatalf("ChainBalance: %v", err)
	}
	if balance != "1000000000000000000" {
		t.Errorf("balance %q, want 1000000000000000000", balance)
	}

	// Polygon has no endpoint configured: the address exists but the
	// balance read is rejected, not silently zero.
	if _, err := mgr.CreateAddress(ctx, 7, models.ChainPolygon); err != nil {
		t.Fatalf("CreateAddress polygon: %v", err)
	}
	if _, err := mgr.ChainBalance(ctx, 7, models.ChainPolygon); !errors.Is(err, ErrNoChainClient) {
		t.Errorf("unconfigured chain: expected ErrNoChainClient, got %v", err)
	}
}

func TestRPCClient_SurfacesReadFailures(t *testing.T) {
	rpcErr := errors.New("rpc: connection refused")
	rpc := &RPCClient{readers: map[string]balanceReader{
		models.ChainEthereum: fakeBalanceReader{err: rpcErr},
	}}
	mgr := NewManager(newMockWalletStore(), rpc)
	ctx := context.Background()

	if _, err := mgr.CreateAddress(ctx, 7, models.ChainEthereum); err != nil {
		t.Fatalf("CreateAddress: %v", err)
	}
	if _, err := mgr.ChainBalance(ctx, 7, models.ChainEthereum); !errors.Is(err, rpcErr) {
		t.Errorf("expected the rpc error to surface, got %v", err)
	}
}

func TestNewRPCClient_SkipsEmptyEndpoints(t *testing.T) {
	rpc, err := NewRPCClient(map[string]string{
		models.ChainEthereum: "",
		models.ChainPolygon:  "",
	})
	if err != nil {
		t.Fatalf("NewRPCClient: %v", err)
	}
	if _, err := rpc.Balance(context.Background(), models.ChainEthereum, "0x0"); !errors.Is(err, ErrNoChainClient) {
		t.Errorf("expected ErrNoChainClient, got %v", err)
	}
}

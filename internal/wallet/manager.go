package wallet

import (
	"context"
	"errors"

	"github.com/EX7EX/SimplRefQ/internal/models"
)

var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrUserNotFound     = errors.New("user not found")
	ErrAddressExists    = errors.New("address already exists for chain")
	ErrNoAddress        = errors.New("no address for chain")
	ErrNoChainClient    = errors.New("no chain client configured")
)

// AddressGenerator produces one keypair. The secret is handed to the caller
// exactly once and never stored.
type AddressGenerator interface {
	Generate() (address, secret string, err error)
}

// ChainClient reads on-chain state for stored addresses. Balances are opaque
// strings; this service never interprets chain amounts.
type ChainClient interface {
	Balance(ctx context.Context, chain, address string) (string, error)
}

type Store interface {
	Insert(ctx context.Context, addr *models.WalletAddress) error
	Get(ctx context.Context, userID int64, chain string) (*models.WalletAddress, error)
	ListForUser(ctx context.Context, userID int64) ([]*models.WalletAddress, error)
}

// Address is the CreateAddress result. Secret is empty when the address
// already existed.
type Address struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Secret  string `json:"secret,omitempty"`
	Created bool   `json:"created"`
}

type Manager struct {
	store      Store
	generators map[string]AddressGenerator
	chain      ChainClient
}

// NewManager wires address generation. chain may be nil when no RPC access is
// configured; ChainBalance then reports ErrNoChainClient.
func NewManager(store Store, chain ChainClient) *Manager {
	return &Manager{
		store: store,
		generators: map[string]AddressGenerator{
			models.ChainEthereum: EthGenerator{},
			models.ChainPolygon:  EthGenerator{},
		},
		chain: chain,
	}
}

// CreateAddress generates and stores an address for (user, chain), or returns
// the stored one when it already exists. Two concurrent creations race on the
// primary key; the loser re-reads the winner's row.
func (m *Manager) CreateAddress(ctx context.Context, userID int64, chain string) (Address, error) {
	gen, ok := m.generators[chain]
	if !ok {
		return Address{}, ErrUnsupportedChain
	}

	if existing, err := m.store.Get(ctx, userID, chain); err == nil {
		return Address{Chain: chain, Address: existing.Address}, nil
	} else if !errors.Is(err, ErrNoAddress) {
		return Address{}, err
	}

	address, secret, err := gen.Generate()
	if err != nil {
		return Address{}, err
	}
	record := &models.WalletAddress{UserID: userID, Chain: chain, Address: address}
	err = m.store.Insert(ctx, record)
	if errors.Is(err, ErrAddressExists) {
		existing, err := m.store.Get(ctx, userID, chain)
		if err != nil {
			return Address{}, err
		}
		return Address{Chain: chain, Address: existing.Address}, nil
	}
	if err != nil {
		return Address{}, err
	}
	return Address{Chain: chain, Address: address, Secret: secret, Created: true}, nil
}

func (m *Manager) Addresses(ctx context.Context, userID int64) ([]*models.WalletAddress, error) {
	return m.store.ListForUser(ctx, userID)
}

// ChainBalance reads the on-chain balance of the user's stored address.
func (m *Manager) ChainBalance(ctx context.Context, userID int64, chain string) (string, error) {
	if m.chain == nil {
		return "", ErrNoChainClient
	}
	addr, err := m.store.Get(ctx, userID, chain)
	if err != nil {
		return "", err
	}
	return m.chain.Balance(ctx, chain, addr.Address)
}

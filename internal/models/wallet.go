package models

import "time"

// Supported wallet chains. Each chain SDK is an opaque capability; the engine
// stores the returned address and never interprets the secret.
const (
	ChainEthereum = "ethereum"
	ChainPolygon  = "polygon"
	ChainSolana   = "solana"
	ChainStellar  = "stellar"
	ChainTron     = "tron"
)

type WalletAddress struct {
	UserID    int64     `json:"user_id"`
	Chain     string    `json:"chain"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

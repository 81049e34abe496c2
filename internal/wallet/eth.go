package wallet

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
)

// EthGenerator produces secp256k1 keypairs with the Keccak-derived address
// format shared by Ethereum and Polygon.
type EthGenerator struct{}

func (EthGenerator) Generate() (address, secret string, err error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", err
	}
	address = crypto.PubkeyToAddress(key.PublicKey).Hex()
	secret = hex.EncodeToString(crypto.FromECDSA(key))
	return address, secret, nil
}

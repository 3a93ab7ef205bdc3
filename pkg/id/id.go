package id

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Salt derives a deterministic 32-byte salt from an account and a counter.
func Salt(account common.Address, nonce uint64) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(account.Bytes(), n[:])
}

// RandomSalt is a salt for one-off deployments that must never collide.
func RandomSalt() common.Hash {
	u := uuid.New()
	return crypto.Keccak256Hash(u[:])
}

package domain

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// HashID turns a human label such as "SKU-1" or "ORDER-1" into the 0x-prefixed
// keccak256 identifier used on the wire.
func HashID(text string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(text))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// DeriveAddress returns a deterministic 20-byte component address from the
// deployer and a per-deployment nonce.
func DeriveAddress(deployer Account, nonce uint64) Account {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(strings.ToLower(deployer.String())))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	_, _ = h.Write(buf[:])
	sum := h.Sum(nil)
	return Account("0x" + hex.EncodeToString(sum[12:]))
}

func NormalizeID(raw string) string {
	return strings.TrimSpace(raw)
}

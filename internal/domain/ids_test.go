package domain

import "testing"

func TestHashIDIsKeccak256(t *testing.T) {
	const empty = "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got := HashID(""); got != empty {
		t.Fatalf("expected %s, got %s", empty, got)
	}
	if HashID("ORDER-1") == HashID("ORDER-2") {
		t.Fatalf("distinct labels hashed to the same id")
	}
}

func TestDeriveAddressIsStable(t *testing.T) {
	a := DeriveAddress("0xABC", 1)
	if a != DeriveAddress("0xabc", 1) {
		t.Fatalf("derivation should ignore deployer case")
	}
	if a == DeriveAddress("0xabc", 2) {
		t.Fatalf("nonce must change the address")
	}
	if len(a) != 42 {
		t.Fatalf("expected 20-byte hex address, got %q", a)
	}
}

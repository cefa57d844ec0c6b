package cryptoprimitives

import (
	"bytes"
	"testing"
)

func TestIdentityKeyRoundTrip(t *testing.T) {
	k, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey: %v", err)
	}

	pub, err := k.X25519Public()
	if err != nil {
		t.Fatalf("X25519Public: %v", err)
	}
	if pub == ([32]byte{}) {
		t.Fatal("expected non-zero public key")
	}

	sig := k.Sign([]byte("hello"))
	if !Verify(k.SigningPublic(), []byte("hello"), sig) {
		t.Fatal("expected signature to verify")
	}
	if Verify(k.SigningPublic(), []byte("tampered"), sig) {
		t.Fatal("expected signature over different message to fail")
	}
}

func TestIdentityKeyDeterministicFromScalar(t *testing.T) {
	var scalar [32]byte
	for i := range scalar {
		scalar[i] = byte(i)
	}

	k1, err := NewIdentityKeyFromScalar(scalar)
	if err != nil {
		t.Fatalf("NewIdentityKeyFromScalar: %v", err)
	}
	k2, err := NewIdentityKeyFromScalar(scalar)
	if err != nil {
		t.Fatalf("NewIdentityKeyFromScalar: %v", err)
	}

	if !bytes.Equal(k1.SigningPublic(), k2.SigningPublic()) {
		t.Fatal("expected signing keys derived from the same scalar to match")
	}

	p1, _ := k1.X25519Public()
	p2, _ := k2.X25519Public()
	if p1 != p2 {
		t.Fatal("expected X25519 public keys derived from the same scalar to match")
	}
}

func TestDHAgreement(t *testing.T) {
	alice, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey: %v", err)
	}
	bob, err := GenerateIdentityKey()
	if err != nil {
		t.Fatalf("GenerateIdentityKey: %v", err)
	}

	alicePub, _ := alice.X25519Public()
	bobPub, _ := bob.X25519Public()

	secretFromAlice, err := DH(alice.scalar, bobPub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	secretFromBob, err := DH(bob.scalar, alicePub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}

	if !bytes.Equal(secretFromAlice, secretFromBob) {
		t.Fatal("expected DH agreement from both sides to match")
	}
}

func TestHKDFDeterministicAndDomainSeparated(t *testing.T) {
	dh1 := []byte("dh-output-one-aaaaaaaaaaaaaaaaaaaaaaa")
	dh2 := []byte("dh-output-two-bbbbbbbbbbbbbbbbbbbbbbb")

	out1, err := HKDF([][]byte{dh1, dh2}, []byte("info"))
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	out2, err := HKDF([][]byte{dh1, dh2}, []byte("info"))
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	if out1 != out2 {
		t.Fatal("expected HKDF to be deterministic for identical inputs")
	}

	out3, err := HKDF([][]byte{dh1, dh2}, []byte("different-info"))
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	if out1 == out3 {
		t.Fatal("expected different info strings to produce different outputs")
	}

	out4, err := HKDF([][]byte{dh2, dh1}, []byte("info"))
	if err != nil {
		t.Fatalf("HKDF: %v", err)
	}
	if out1 == out4 {
		t.Fatal("expected reordering DH outputs to change the derived secret")
	}
}

func TestEncodePublicKey(t *testing.T) {
	var pk [32]byte
	for i := range pk {
		pk[i] = byte(i)
	}
	enc := EncodePublicKey(pk)
	if enc[0] != CurveIDX25519 {
		t.Fatalf("expected curve id %x, got %x", CurveIDX25519, enc[0])
	}
	if !bytes.Equal(enc[1:], pk[:]) {
		t.Fatal("expected remaining bytes to be the public key")
	}
}

func TestProfileASealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	nonce := make([]byte, ProfileA{}.NonceLen())

	ct, err := (ProfileA{}).Seal(key[:], nonce, []byte("plaintext"), []byte("aad"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	pt, err := (ProfileA{}).Open(key[:], nonce, ct, []byte("aad"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "plaintext" {
		t.Fatalf("Open = %q, want plaintext", pt)
	}

	ct[0] ^= 0xff
	if _, err := (ProfileA{}).Open(key[:], nonce, ct, []byte("aad")); err == nil {
		t.Fatal("expected tampered ciphertext to fail to open")
	}
}

func TestProfileBSealOpenRoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	nonce := make([]byte, ProfileB{}.NonceLen())

	ct, err := (ProfileB{}).Seal(key[:], nonce, []byte("plaintext"), []byte("aad"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	pt, err := (ProfileB{}).Open(key[:], nonce, ct, []byte("aad"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(pt) != "plaintext" {
		t.Fatalf("Open = %q, want plaintext", pt)
	}

	ct[0] ^= 0xff
	if _, err := (ProfileB{}).Open(key[:], nonce, ct, []byte("aad")); err == nil {
		t.Fatal("expected tampered ciphertext to fail to open")
	}

	ct[0] ^= 0xff // restore the untampered ciphertext
	if _, err := (ProfileB{}).Open(key[:], nonce, ct, []byte("different-aad")); err == nil {
		t.Fatal("expected mismatched associated data to fail to open")
	}
}

// Package cryptoprimitives implements the key material and AEAD profiles
// consumed by the X3DH handshake (package x3dh) and the secret-at-rest
// store (package secretstore): X25519/XEdDSA identity keys, a
// domain-separated HKDF, and two interchangeable authenticated-encryption
// profiles.
//
// XEdDSA design note: the reference protocol derives an Edwards-curve
// signing key from the same Montgomery scalar used for X25519 via a
// birational curve map. This package instead derives a dedicated Ed25519
// seed from the X25519 scalar through HKDF-SHA256 with a fixed
// domain-separation label. The resulting signing key is deterministic
// (same input scalar always yields the same Ed25519 keypair) and the
// signature still binds to the X25519 public key, because the signed
// message is EncodePublicKey's output, which is all the handshake in
// package x3dh requires.
package cryptoprimitives

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// CurveIDX25519 is the curve identifier byte used by EncodePublicKey, per
// section 2.5 of the X3DH specification.
const CurveIDX25519 byte = 0x05

// hkdfDomainSeparator is prepended to the concatenation of DH outputs
// before HKDF extraction, as required by the handshake's key derivation
// step.
var hkdfDomainSeparator = func() [32]byte {
	var b [32]byte
	for i := range b {
		b[i] = 0xff
	}
	return b
}()

// SharedSecret is the 32-byte output of the X3DH handshake's key
// derivation step. Callers must call Zero as soon as the secret has been
// handed off (e.g. to a ratchet construction) to avoid lingering key
// material in memory.
type SharedSecret [32]byte

// Zero overwrites the secret in place.
func (s *SharedSecret) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// IdentityKey owns a 32-byte X25519 scalar and derives both a Montgomery
// (X25519) public key and an XEdDSA signing keypair from it. Only the
// scalar is meant to be persisted; public keys are always rederived.
type IdentityKey struct {
	scalar  [32]byte
	signing ed25519.PrivateKey
}

// GenerateIdentityKey draws 32 bytes from the OS CSPRNG and derives the
// dependent key material.
func GenerateIdentityKey() (*IdentityKey, error) {
	var scalar [32]byte
	if _, err := rand.Read(scalar[:]); err != nil {
		return nil, nexuserrors.Crypto("failed to read random scalar")
	}
	return newIdentityKey(scalar)
}

// NewIdentityKeyFromScalar rebuilds an IdentityKey from a previously
// persisted 32-byte scalar, e.g. on deserialization of a stored identity.
func NewIdentityKeyFromScalar(scalar [32]byte) (*IdentityKey, error) {
	return newIdentityKey(scalar)
}

func newIdentityKey(scalar [32]byte) (*IdentityKey, error) {
	seed, err := deriveEd25519Seed(scalar)
	if err != nil {
		return nil, err
	}
	return &IdentityKey{
		scalar:  scalar,
		signing: ed25519.NewKeyFromSeed(seed),
	}, nil
}

// deriveEd25519Seed derives a 32-byte Ed25519 seed from an X25519 scalar
// via HKDF-SHA256. See the package-level doc comment for the rationale.
func deriveEd25519Seed(scalar [32]byte) ([]byte, error) {
	r := hkdf.New(sha256.New, scalar[:], nil, []byte("xeddsa-sign"))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := readFull(r, seed); err != nil {
		return nil, nexuserrors.Crypto("xeddsa seed derivation failed")
	}
	return seed, nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		k, err := r.Read(buf[n:])
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Scalar returns the raw 32-byte X25519 scalar. This is the only field
// that needs to be persisted; callers must zeroize the returned copy once
// done with it.
func (k *IdentityKey) Scalar() [32]byte { return k.scalar }

// X25519Public derives the Montgomery public key.
func (k *IdentityKey) X25519Public() ([32]byte, error) {
	var pub [32]byte
	out, err := curve25519.X25519(k.scalar[:], curve25519.Basepoint)
	if err != nil {
		return pub, nexuserrors.Crypto("x25519 public key derivation failed")
	}
	copy(pub[:], out)
	return pub, nil
}

// SigningPublic returns the XEdDSA (Ed25519) verification key.
func (k *IdentityKey) SigningPublic() ed25519.PublicKey {
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, k.signing[ed25519.SeedSize:])
	return pub
}

// Sign produces an XEdDSA signature over msg.
func (k *IdentityKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.signing, msg)
}

// Verify checks an XEdDSA signature. This is a package-level function
// rather than a method since verification never requires the secret
// scalar.
func Verify(verifyKey ed25519.PublicKey, msg, sig []byte) bool {
	return ed25519.Verify(verifyKey, msg, sig)
}

// DH computes the X25519 Diffie-Hellman shared point between a local
// scalar and a remote Montgomery public key.
func DH(scalar [32]byte, peerPublic [32]byte) ([]byte, error) {
	out, err := curve25519.X25519(scalar[:], peerPublic[:])
	if err != nil {
		return nil, nexuserrors.Crypto("x25519 DH computation failed")
	}
	return out, nil
}

// Zero overwrites the identity key's secret material in place.
func (k *IdentityKey) Zero() {
	for i := range k.scalar {
		k.scalar[i] = 0
	}
	for i := range k.signing {
		k.signing[i] = 0
	}
}

// HKDF derives a 32-byte SharedSecret from the concatenation of
// dhOutputs, prefixed with the fixed domain-separation block, using
// SHA-256, a 32-byte zero salt, and the provided info string.
//
// The concatenated input-keying-material buffer is zeroized before HKDF
// returns.
func HKDF(dhOutputs [][]byte, info []byte) (SharedSecret, error) {
	var out SharedSecret

	ikmLen := len(hkdfDomainSeparator)
	for _, dh := range dhOutputs {
		ikmLen += len(dh)
	}

	ikm := make([]byte, 0, ikmLen)
	ikm = append(ikm, hkdfDomainSeparator[:]...)
	for _, dh := range dhOutputs {
		ikm = append(ikm, dh...)
	}
	defer zero(ikm)

	salt := make([]byte, sha256.Size)

	r := hkdf.New(sha256.New, ikm, salt, info)
	if _, err := readFull(r, out[:]); err != nil {
		return out, nexuserrors.Crypto("hkdf output length invalid")
	}
	return out, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// EncodePublicKey concatenates the X25519 curve identifier byte with the
// 32-byte Montgomery public key, producing the message XEdDSA signs over
// for a signed pre-key.
func EncodePublicKey(pk [32]byte) [33]byte {
	var out [33]byte
	out[0] = CurveIDX25519
	copy(out[1:], pk[:])
	return out
}

// AEAD is the shared contract for both authenticated-encryption profiles:
// XChaCha20-Poly1305 (handshake messages, profile A) and AES-GCM (secret
// store values, profile B). Both reject tampered ciphertext and bind any
// supplied associated data.
type AEAD interface {
	NonceLen() int
	Seal(key, nonce, plaintext, additionalData []byte) ([]byte, error)
	Open(key, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// ProfileA is XChaCha20-Poly1305 with a 24-byte nonce, used for X3DH
// handshake messages (§4.5.1).
type ProfileA struct{}

func (ProfileA) NonceLen() int { return chacha20poly1305.NonceSizeX }

func (ProfileA) Seal(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nexuserrors.Crypto("xchacha20poly1305 init failed")
	}
	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

func (ProfileA) Open(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nexuserrors.Crypto("xchacha20poly1305 init failed")
	}
	pt, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, nexuserrors.Protocol("decryption failed")
	}
	return pt, nil
}

// ProfileB is AES-GCM with a 12-byte nonce, used for secret-at-rest
// values (§4.6). The specification allows an AES-GCM-SIV variant for
// nonce-misuse resistance; no pack library exposes AES-GCM-SIV, so this
// profile uses the standard library's AES-GCM construction instead (see
// DESIGN.md).
type ProfileB struct{}

func (ProfileB) NonceLen() int { return 12 }

func (ProfileB) Seal(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nexuserrors.Crypto("aes init failed")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nexuserrors.Crypto("aes-gcm init failed")
	}
	return gcm.Seal(nil, nonce, plaintext, additionalData), nil
}

func (ProfileB) Open(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nexuserrors.Crypto("aes init failed")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nexuserrors.Crypto("aes-gcm init failed")
	}
	pt, err := gcm.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, nexuserrors.Protocol("decryption failed")
	}
	return pt, nil
}

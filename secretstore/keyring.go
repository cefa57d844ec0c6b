package secretstore

import (
	"crypto/sha256"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/hkdf"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// Service is the fixed keyring service name under which both entries
// live, per the (service, user) addressing scheme of the key-ring entries
// contract.
const Service = "nexus-cli"

// primaryUser holds a raw master key; passphraseUser holds a user
// passphrase. Setting the passphrase deletes the raw master key so that
// subsequent reads prefer the passphrase path.
const (
	primaryUser    = "primary"
	passphraseUser = "passphrase"
)

// ErrKeyAlreadyExists is returned by SetPassphrase when a raw key or
// passphrase is already stored and force is false.
var ErrKeyAlreadyExists = nexuserrors.Crypto("secretstore: a master key or passphrase already exists; pass force to overwrite")

// KeyringProvider is a KeyProvider backed by the OS keyring via
// github.com/zalando/go-keyring. It prefers a stored raw master key when
// present, and otherwise derives a 32-byte key from a stored passphrase.
type KeyringProvider struct{}

// Key implements KeyProvider's raw-key-vs-passphrase precedence policy.
func (KeyringProvider) Key() ([]byte, error) {
	if raw, err := keyring.Get(Service, primaryUser); err == nil {
		return decodeRawKey(raw)
	}

	pass, err := keyring.Get(Service, passphraseUser)
	if err != nil {
		return nil, nexuserrors.Crypto("secretstore: no master key or passphrase stored in keyring")
	}
	return deriveKeyFromPassphrase(pass), nil
}

func decodeRawKey(raw string) ([]byte, error) {
	key := []byte(raw)
	if len(key) != 32 {
		return nil, nexuserrors.Crypto("secretstore: stored raw master key is not 32 bytes")
	}
	return key, nil
}

// deriveKeyFromPassphrase derives a 32-byte AEAD key from a user
// passphrase via HKDF-SHA256, domain-separated from the X3DH handshake's
// derivation by a distinct info string.
func deriveKeyFromPassphrase(passphrase string) []byte {
	salt := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(passphrase), salt, []byte("nexus-secretstore-passphrase"))
	key := make([]byte, 32)
	_, _ = readFullHKDF(r, key)
	return key
}

func readFullHKDF(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
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

// SetRawKey stores a raw 32-byte master key in the keyring, as the
// primary (preferred) entry.
func SetRawKey(key []byte) error {
	if len(key) != 32 {
		return nexuserrors.Validation("secretstore: raw master key must be 32 bytes")
	}
	if err := keyring.Set(Service, primaryUser, string(key)); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindCrypto, err, "secretstore: failed to store raw master key")
	}
	return nil
}

// SetPassphrase stores a user passphrase in the keyring and deletes any
// stale raw master key so that future reads prefer the passphrase path.
// Unless force is true, it refuses to overwrite an existing raw key or
// passphrase.
func SetPassphrase(passphrase string, force bool) error {
	if strings.TrimSpace(passphrase) == "" {
		return nexuserrors.Validation("secretstore: passphrase cannot be empty")
	}

	if !force {
		_, rawErr := keyring.Get(Service, primaryUser)
		_, passErr := keyring.Get(Service, passphraseUser)
		if rawErr == nil || passErr == nil {
			return ErrKeyAlreadyExists
		}
	}

	if err := keyring.Set(Service, passphraseUser, passphrase); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindCrypto, err, "secretstore: failed to store passphrase")
	}

	// Best-effort: a missing raw key is not an error here.
	_ = keyring.Delete(Service, primaryUser)

	return nil
}

// Package secretstore implements the two secret-at-rest wrapper shapes: a
// self-keyed GenericSecret whose algorithm holds or derives its own key,
// and a provider-keyed GenericSecretKeyed that decouples the encryption
// key from the algorithm behind a KeyProvider (an OS keyring query or a
// passphrase-derived key).
package secretstore

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// Failure-mode reason strings, matched via IsReason.
const (
	ReasonMissingProvider    = "secretstore: no key provider attached"
	ReasonDecryptFailed      = "secretstore: decryption failed"
	ReasonCodecError         = "secretstore: codec error"
	ReasonCiphertextTooShort = "secretstore: ciphertext shorter than nonce"
	ReasonLocked             = "secretstore: value not decrypted; call Expose before marshaling"
)

// IsReason reports whether err is a *nexuserrors.Error carrying the given
// reason string.
func IsReason(err error, reason string) bool {
	e, ok := err.(*nexuserrors.Error)
	return ok && e.Reason == reason
}

// Codec encodes and decodes the plaintext value carried inside a secret
// wrapper. JSONCodec is the default; callers may substitute any codec
// that round-trips through bytes.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec is the default Codec, using encoding/json.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

// SelfKeyedAEAD is the contract a self-keyed GenericSecret's algorithm
// must satisfy: it owns or derives its own key, so Seal/Open take only
// the nonce.
type SelfKeyedAEAD interface {
	NonceLen() int
	Seal(nonce, plaintext, additionalData []byte) ([]byte, error)
	Open(nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NoopAEAD is a zero-nonce-length deterministic algorithm used in tests,
// mirroring the original SDK's NoEncryption test double.
type NoopAEAD struct{}

func (NoopAEAD) NonceLen() int { return 0 }
func (NoopAEAD) Seal(_ []byte, plaintext, _ []byte) ([]byte, error) {
	return append([]byte(nil), plaintext...), nil
}
func (NoopAEAD) Open(_ []byte, ciphertext, _ []byte) ([]byte, error) {
	return append([]byte(nil), ciphertext...), nil
}

// GenericSecret transparently encrypts/decrypts T on marshal/unmarshal
// using an algorithm that holds or derives its own key (the self-keyed
// shape described by the secret-at-rest store).
type GenericSecret[T any] struct {
	Value T

	algo  SelfKeyedAEAD
	codec Codec
}

// NewGenericSecret constructs a self-keyed secret wrapper around value.
// A nil codec defaults to JSONCodec.
func NewGenericSecret[T any](value T, algo SelfKeyedAEAD, codec Codec) *GenericSecret[T] {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &GenericSecret[T]{Value: value, algo: algo, codec: codec}
}

// MarshalText encodes, encrypts, and base64s the wrapped value:
// base64(nonce || ciphertext).
func (s *GenericSecret[T]) MarshalText() ([]byte, error) {
	plain, err := s.codec.Encode(s.Value)
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindCrypto, err, ReasonCodecError)
	}

	nonce, err := randomNonce(s.algo.NonceLen())
	if err != nil {
		return nil, err
	}

	ct, err := s.algo.Seal(nonce, plain, nil)
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindCrypto, err, "secretstore: seal failed")
	}

	buf := make([]byte, 0, len(nonce)+len(ct))
	buf = append(buf, nonce...)
	buf = append(buf, ct...)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(buf)))
	base64.StdEncoding.Encode(out, buf)
	return out, nil
}

// UnmarshalText inverts MarshalText. The receiver's algo/codec must
// already be configured (e.g. via NewGenericSecret with a zero Value)
// before calling this.
func (s *GenericSecret[T]) UnmarshalText(text []byte) error {
	if s.algo == nil {
		return nexuserrors.Internal("secretstore: UnmarshalText called on an unconfigured GenericSecret")
	}
	if s.codec == nil {
		s.codec = JSONCodec{}
	}

	decoded, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return nexuserrors.Wrap(nexuserrors.KindCrypto, err, ReasonCodecError)
	}

	nonceLen := s.algo.NonceLen()
	if len(decoded) < nonceLen {
		return nexuserrors.Crypto(ReasonCiphertextTooShort)
	}

	nonce, ct := decoded[:nonceLen], decoded[nonceLen:]
	plain, err := s.algo.Open(nonce, ct, nil)
	if err != nil {
		return nexuserrors.Protocol(ReasonDecryptFailed)
	}

	var value T
	if err := s.codec.Decode(plain, &value); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindCrypto, err, ReasonCodecError)
	}
	s.Value = value
	return nil
}

// KeyProvider yields an encryption key on demand. Implementations may
// query an OS keyring, derive from a passphrase, or (in tests) return a
// fixed key.
type KeyProvider interface {
	Key() ([]byte, error)
}

// KeyedAEAD is the contract a provider-keyed GenericSecretKeyed's
// algorithm must satisfy: the key is supplied by the caller on every
// call, since it is decoupled from the algorithm (the provider-keyed
// shape).
type KeyedAEAD interface {
	NonceLen() int
	Seal(key, nonce, plaintext, additionalData []byte) ([]byte, error)
	Open(key, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

type cipherBytes struct {
	nonce []byte
	ct    []byte
}

// GenericSecretKeyed decouples the encryption key from the algorithm via
// a KeyProvider. Exactly one of its cipher/plain fields is populated at
// any time: cipher after deserialization before the provider has
// decrypted, plain after construction via WithProvider or after the
// first Expose call.
type GenericSecretKeyed[T any] struct {
	cipher *cipherBytes
	plain  *T

	provider KeyProvider
	algo     KeyedAEAD
	codec    Codec
}

// NewEncrypted constructs an encrypted-but-unattached secret, as produced
// by unmarshaling configuration that has not yet supplied a provider.
func NewEncrypted[T any](algo KeyedAEAD, codec Codec, nonce, ct []byte) *GenericSecretKeyed[T] {
	if codec == nil {
		codec = JSONCodec{}
	}
	return &GenericSecretKeyed[T]{
		cipher: &cipherBytes{nonce: nonce, ct: ct},
		algo:   algo,
		codec:  codec,
	}
}

// WithProvider constructs a ready-to-use secret: the happy path when the
// plaintext is already known (e.g. freshly created by the caller).
func WithProvider[T any](value T, algo KeyedAEAD, codec Codec, provider KeyProvider) *GenericSecretKeyed[T] {
	if codec == nil {
		codec = JSONCodec{}
	}
	v := value
	return &GenericSecretKeyed[T]{
		plain:    &v,
		provider: provider,
		algo:     algo,
		codec:    codec,
	}
}

// AttachProvider attaches or replaces the key provider, typically called
// right after deserialization.
func (s *GenericSecretKeyed[T]) AttachProvider(provider KeyProvider) {
	s.provider = provider
}

// Expose decrypts lazily on first call (caching the plaintext for
// subsequent calls) and passes the value to f.
func (s *GenericSecretKeyed[T]) Expose(f func(*T)) error {
	if s.plain == nil {
		cipher := s.cipher
		if cipher == nil {
			return nexuserrors.Internal("secretstore: secret has neither cipher nor plaintext")
		}

		provider, err := s.requireProvider()
		if err != nil {
			return err
		}
		key, err := provider.Key()
		if err != nil {
			return nexuserrors.Wrap(nexuserrors.KindCrypto, err, "secretstore: key provider failed")
		}

		ptBytes, err := s.algo.Open(key, cipher.nonce, cipher.ct, nil)
		if err != nil {
			return nexuserrors.Protocol(ReasonDecryptFailed)
		}

		var value T
		if err := s.codec.Decode(ptBytes, &value); err != nil {
			return nexuserrors.Wrap(nexuserrors.KindCrypto, err, ReasonCodecError)
		}

		s.plain = &value
		s.cipher = nil
	}

	f(s.plain)
	return nil
}

func (s *GenericSecretKeyed[T]) requireProvider() (KeyProvider, error) {
	if s.provider == nil {
		return nil, nexuserrors.Crypto(ReasonMissingProvider)
	}
	return s.provider, nil
}

// MarshalText encrypts the currently exposed plaintext under a freshly
// drawn nonce and base64s nonce||ciphertext. The secret must have a
// plaintext value (via WithProvider or a prior Expose) and an attached
// provider.
func (s *GenericSecretKeyed[T]) MarshalText() ([]byte, error) {
	if s.plain == nil {
		return nil, nexuserrors.Crypto(ReasonLocked)
	}

	plainBytes, err := s.codec.Encode(*s.plain)
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindCrypto, err, ReasonCodecError)
	}

	provider, err := s.requireProvider()
	if err != nil {
		return nil, err
	}
	key, err := provider.Key()
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindCrypto, err, "secretstore: key provider failed")
	}

	nonce, err := randomNonce(s.algo.NonceLen())
	if err != nil {
		return nil, err
	}

	ct, err := s.algo.Seal(key, nonce, plainBytes, nil)
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindCrypto, err, "secretstore: seal failed")
	}

	buf := make([]byte, 0, len(nonce)+len(ct))
	buf = append(buf, nonce...)
	buf = append(buf, ct...)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(buf)))
	base64.StdEncoding.Encode(out, buf)
	return out, nil
}

// UnmarshalText decodes a ciphertext blob into an unattached
// GenericSecretKeyed; call AttachProvider and Expose before reading the
// value.
func (s *GenericSecretKeyed[T]) UnmarshalText(text []byte) error {
	if s.algo == nil {
		return nexuserrors.Internal("secretstore: UnmarshalText called on an unconfigured GenericSecretKeyed")
	}
	if s.codec == nil {
		s.codec = JSONCodec{}
	}

	decoded, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return nexuserrors.Wrap(nexuserrors.KindCrypto, err, ReasonCodecError)
	}

	nonceLen := s.algo.NonceLen()
	if len(decoded) < nonceLen {
		return nexuserrors.Crypto(ReasonCiphertextTooShort)
	}

	nonce := append([]byte(nil), decoded[:nonceLen]...)
	ct := append([]byte(nil), decoded[nonceLen:]...)

	s.cipher = &cipherBytes{nonce: nonce, ct: ct}
	s.plain = nil
	return nil
}

func randomNonce(n int) ([]byte, error) {
	nonce := make([]byte, n)
	if n == 0 {
		return nonce, nil
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, nexuserrors.Crypto("secretstore: failed to read random nonce")
	}
	return nonce, nil
}

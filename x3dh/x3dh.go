// Package x3dh implements the Extended Triple Diffie-Hellman handshake:
// a sender performs sender_init against a receiver's published pre-key
// bundle, producing an InitialMessage and a shared secret; the receiver
// performs receiver_receive against the same bundle's private material to
// recover the sender's payload and the identical shared secret.
package x3dh

import (
	"crypto/rand"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/cryptoprimitives"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// MaxCiphertextBytes bounds the size of an encrypted InitialMessage
// payload.
const MaxCiphertextBytes = 16 * 1024

// Reason strings used as the machine-discriminable part of the protocol
// errors this package returns, matched via IsReason.
const (
	ReasonSigVerifyFailed      = "x3dh: signature verification failed"
	ReasonIdentityKeyMismatch  = "x3dh: identity key mismatch"
	ReasonSpkIDMismatch        = "x3dh: signed pre-key id mismatch"
	ReasonMissingOneTimeSecret = "x3dh: message references a one-time pre-key but none was supplied"
	ReasonOtpkIDMismatch       = "x3dh: one-time pre-key id mismatch"
	ReasonDecryptFailed        = "x3dh: decryption failed"
	ReasonCiphertextTooLarge   = "x3dh: ciphertext exceeds maximum size"
)

// IsReason reports whether err is a *nexuserrors.Error carrying the given
// reason string.
func IsReason(err error, reason string) bool {
	e, ok := err.(*nexuserrors.Error)
	return ok && e.Reason == reason
}

// PreKeyBundle is the receiver's published key material: a signed pre-key
// and an optional one-time pre-key, both bound to the receiver's
// long-term identity.
type PreKeyBundle struct {
	SpkID          uint32
	SpkPub         [32]byte
	SpkSig         [64]byte
	IdentityVerify [32]byte // Ed25519 verification key
	IdentityPk     [32]byte // X25519 identity public key
	IdentityPkSig  [64]byte // IdentityVerify's signature over IdentityPk
	OtpkID         *uint32
	OtpkPub        *[32]byte
}

// NewPreKeyBundle signs spkSecret's public key under receiverIdentity and
// assembles the publishable bundle. receiverIdentity also signs its own
// IdentityPk, so a verifier holding only the bundle can confirm IdentityPk
// belongs to IdentityVerify without independently re-deriving one from the
// other (infeasible given the XEdDSA simplification this package makes,
// see the cryptoprimitives package doc comment) — tampering IdentityPk in
// transit invalidates that signature.
func NewPreKeyBundle(
	receiverIdentity *cryptoprimitives.IdentityKey,
	spkID uint32,
	spkSecret *cryptoprimitives.IdentityKey,
	otpkID *uint32,
	otpkSecret *cryptoprimitives.IdentityKey,
) (PreKeyBundle, error) {
	spkPub, err := spkSecret.X25519Public()
	if err != nil {
		return PreKeyBundle{}, err
	}
	identityPk, err := receiverIdentity.X25519Public()
	if err != nil {
		return PreKeyBundle{}, err
	}

	encoded := cryptoprimitives.EncodePublicKey(spkPub)
	sig := receiverIdentity.Sign(encoded[:])

	var sigArr [64]byte
	copy(sigArr[:], sig)

	encodedIdentityPk := cryptoprimitives.EncodePublicKey(identityPk)
	idSig := receiverIdentity.Sign(encodedIdentityPk[:])

	var idSigArr [64]byte
	copy(idSigArr[:], idSig)

	var verifyArr [32]byte
	copy(verifyArr[:], receiverIdentity.SigningPublic())

	bundle := PreKeyBundle{
		SpkID:          spkID,
		SpkPub:         spkPub,
		SpkSig:         sigArr,
		IdentityVerify: verifyArr,
		IdentityPk:     identityPk,
		IdentityPkSig:  idSigArr,
		OtpkID:         otpkID,
	}

	if otpkSecret != nil {
		otpkPub, err := otpkSecret.X25519Public()
		if err != nil {
			return PreKeyBundle{}, err
		}
		bundle.OtpkPub = &otpkPub
	}

	return bundle, nil
}

// InitialMessage is what the sender transmits to the receiver out of
// band: enough key material to let the receiver reconstruct the shared
// secret, plus the encrypted payload.
type InitialMessage struct {
	IkaPub     [32]byte
	EkPub      [32]byte
	SpkID      uint32
	OtpkID     *uint32
	Nonce      [24]byte
	Ciphertext []byte
}

var profileA = cryptoprimitives.ProfileA{}

// SenderInit performs the sender's half of the handshake: verifies the
// receiver's bundle, derives a fresh ephemeral key, computes the shared
// secret, and seals payload under it.
func SenderInit(
	senderIdentity *cryptoprimitives.IdentityKey,
	bundle PreKeyBundle,
	payload []byte,
) (InitialMessage, cryptoprimitives.SharedSecret, error) {
	var msg InitialMessage
	var sk cryptoprimitives.SharedSecret

	if len(payload) > MaxCiphertextBytes {
		return msg, sk, nexuserrors.Protocol(ReasonCiphertextTooLarge)
	}

	if len(bundle.IdentityVerify) != 32 {
		return msg, sk, nexuserrors.Protocol(ReasonSigVerifyFailed)
	}

	encodedIdentityPk := cryptoprimitives.EncodePublicKey(bundle.IdentityPk)
	if !cryptoprimitives.Verify(bundle.IdentityVerify[:], encodedIdentityPk[:], bundle.IdentityPkSig[:]) {
		return msg, sk, nexuserrors.Protocol(ReasonIdentityKeyMismatch)
	}

	encodedSpk := cryptoprimitives.EncodePublicKey(bundle.SpkPub)
	if !cryptoprimitives.Verify(bundle.IdentityVerify[:], encodedSpk[:], bundle.SpkSig[:]) {
		return msg, sk, nexuserrors.Protocol(ReasonSigVerifyFailed)
	}

	ephemeral, err := cryptoprimitives.GenerateIdentityKey()
	if err != nil {
		return msg, sk, err
	}
	defer ephemeral.Zero()

	dh1, err := cryptoprimitives.DH(senderIdentity.Scalar(), bundle.SpkPub)
	if err != nil {
		return msg, sk, err
	}
	dh2, err := cryptoprimitives.DH(ephemeral.Scalar(), bundle.IdentityPk)
	if err != nil {
		return msg, sk, err
	}
	dh3, err := cryptoprimitives.DH(ephemeral.Scalar(), bundle.SpkPub)
	if err != nil {
		return msg, sk, err
	}

	dhOutputs := [][]byte{dh1, dh2, dh3}
	if bundle.OtpkPub != nil {
		dh4, err := cryptoprimitives.DH(ephemeral.Scalar(), *bundle.OtpkPub)
		if err != nil {
			return msg, sk, err
		}
		dhOutputs = append(dhOutputs, dh4)
	}
	defer zeroAll(dhOutputs)

	sk, err = cryptoprimitives.HKDF(dhOutputs, []byte("x3dh"))
	if err != nil {
		return msg, sk, err
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return msg, sk, nexuserrors.Crypto("failed to read random nonce")
	}

	senderPub, err := senderIdentity.X25519Public()
	if err != nil {
		return msg, sk, err
	}
	ad := associatedData(senderPub, bundle.IdentityPk)

	ct, err := profileA.Seal(sk[:], nonce[:], payload, ad)
	if err != nil {
		return msg, sk, err
	}
	if len(ct) > MaxCiphertextBytes {
		return msg, sk, nexuserrors.Protocol(ReasonCiphertextTooLarge)
	}

	ephemeralPub, err := ephemeral.X25519Public()
	if err != nil {
		return msg, sk, err
	}

	msg = InitialMessage{
		IkaPub:     senderPub,
		EkPub:      ephemeralPub,
		SpkID:      bundle.SpkID,
		OtpkID:     bundle.OtpkID,
		Nonce:      nonce,
		Ciphertext: ct,
	}
	return msg, sk, nil
}

// ReceiverReceive performs the receiver's half of the handshake: mirrors
// the sender's DH computations with roles reversed, derives the identical
// shared secret, and opens the ciphertext.
func ReceiverReceive(
	receiverIdentity *cryptoprimitives.IdentityKey,
	spkSecret *cryptoprimitives.IdentityKey,
	spkID uint32,
	otpkSecret *cryptoprimitives.IdentityKey,
	otpkID *uint32,
	msg InitialMessage,
) ([]byte, cryptoprimitives.SharedSecret, error) {
	var sk cryptoprimitives.SharedSecret

	if msg.SpkID != spkID {
		return nil, sk, nexuserrors.Protocol(ReasonSpkIDMismatch)
	}
	if msg.OtpkID != nil {
		if otpkSecret == nil || otpkID == nil {
			return nil, sk, nexuserrors.Protocol(ReasonMissingOneTimeSecret)
		}
		if *msg.OtpkID != *otpkID {
			return nil, sk, nexuserrors.Protocol(ReasonOtpkIDMismatch)
		}
	}

	dh1, err := cryptoprimitives.DH(spkSecret.Scalar(), msg.IkaPub)
	if err != nil {
		return nil, sk, err
	}
	dh2, err := cryptoprimitives.DH(receiverIdentity.Scalar(), msg.EkPub)
	if err != nil {
		return nil, sk, err
	}
	dh3, err := cryptoprimitives.DH(spkSecret.Scalar(), msg.EkPub)
	if err != nil {
		return nil, sk, err
	}

	dhOutputs := [][]byte{dh1, dh2, dh3}
	if msg.OtpkID != nil {
		dh4, err := cryptoprimitives.DH(otpkSecret.Scalar(), msg.EkPub)
		if err != nil {
			return nil, sk, err
		}
		dhOutputs = append(dhOutputs, dh4)
	}
	defer zeroAll(dhOutputs)

	sk, err = cryptoprimitives.HKDF(dhOutputs, []byte("x3dh"))
	if err != nil {
		return nil, sk, err
	}

	receiverPub, err := receiverIdentity.X25519Public()
	if err != nil {
		return nil, sk, err
	}
	ad := associatedData(msg.IkaPub, receiverPub)

	pt, err := profileA.Open(sk[:], msg.Nonce[:], msg.Ciphertext, ad)
	if err != nil {
		return nil, sk, nexuserrors.Protocol(ReasonDecryptFailed)
	}
	return pt, sk, nil
}

func associatedData(senderDHPublic, receiverIdentityPk [32]byte) []byte {
	a := cryptoprimitives.EncodePublicKey(senderDHPublic)
	b := cryptoprimitives.EncodePublicKey(receiverIdentityPk)
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a[:]...)
	out = append(out, b[:]...)
	return out
}

func zeroAll(bufs [][]byte) {
	for _, b := range bufs {
		for i := range b {
			b[i] = 0
		}
	}
}

package e2e

import (
	"context"
	"crypto/rand"
	"io"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"kinship/internal/model"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// BoxWrapper wraps content keys in NaCl anonymous sealed boxes addressed to each
// recipient's Curve25519 public key
type BoxWrapper struct {
	rand io.Reader
}

func NewBoxWrapper() *BoxWrapper {
	return &BoxWrapper{rand: rand.Reader}
}

func (w *BoxWrapper) Mode() string { return config.EncryptionBox }

func (w *BoxWrapper) Wrap(_ context.Context, recipient model.Recipient, contentKey []byte) ([]byte, error) {
	if len(recipient.PublicKey) != 32 {
		return nil, apperr.Validation("recipient has no box public key").With("recipient", recipient.UserID)
	}
	var pub [32]byte
	copy(pub[:], recipient.PublicKey)
	sealed, err := box.SealAnonymous(nil, contentKey, &pub, w.rand)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "seal content key", err)
	}
	return sealed, nil
}

func (w *BoxWrapper) Unwrap(_ context.Context, recipientID string, recipientKey, wrapped []byte) ([]byte, error) {
	if len(recipientKey) != 32 {
		return nil, apperr.Validation("box private key must be 32 bytes")
	}
	var priv, pub [32]byte
	copy(priv[:], recipientKey)
	derived, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "invalid box private key", err)
	}
	copy(pub[:], derived)
	key, ok := box.OpenAnonymous(nil, wrapped, &pub, &priv)
	if !ok {
		return nil, apperr.PermissionDenied("content key does not open with this key").With("recipient", recipientID)
	}
	return key, nil
}

// GenerateKeyPair returns a Curve25519 key pair for box mode
func GenerateKeyPair() (public, private []byte, err error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return pub[:], priv[:], nil
}

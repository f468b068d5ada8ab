// Package e2e seals message bodies for their recipients. Bodies are encrypted once with
// AES-256-GCM under a random content key; the content key is wrapped per recipient by a
// KeyWrapper (NaCl anonymous boxes or AWS KMS).
package e2e

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"kinship/internal/apperr"
	"kinship/internal/model"
)

const contentKeySize = 32

// KeyWrapper protects a content key for one recipient
type KeyWrapper interface {
	Mode() string
	Wrap(ctx context.Context, recipient model.Recipient, contentKey []byte) ([]byte, error)
	Unwrap(ctx context.Context, recipientID string, recipientKey, wrapped []byte) ([]byte, error)
}

// Sealer implements encrypt(plaintext, recipients) -> envelope and its inverse
type Sealer struct {
	wrapper KeyWrapper
	rand    io.Reader
}

func NewSealer(wrapper KeyWrapper) *Sealer {
	return NewSealerWithRand(wrapper, rand.Reader)
}

func NewSealerWithRand(wrapper KeyWrapper, rng io.Reader) *Sealer {
	if rng == nil {
		rng = rand.Reader
	}
	return &Sealer{wrapper: wrapper, rand: rng}
}

func (s *Sealer) Mode() string { return s.wrapper.Mode() }

func (s *Sealer) Encrypt(ctx context.Context, plaintext []byte, recipients []model.Recipient) (*model.Envelope, error) {
	if len(recipients) == 0 {
		return nil, apperr.Validation("envelope needs at least one recipient")
	}

	contentKey := make([]byte, contentKeySize)
	if _, err := io.ReadFull(s.rand, contentKey); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "content key generation failed", err)
	}
	gcm, err := newGCM(contentKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "nonce generation failed", err)
	}

	env := &model.Envelope{
		Mode:       s.wrapper.Mode(),
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, aad(s.wrapper.Mode())),
		Keys:       make(map[string][]byte, len(recipients)),
	}
	for _, r := range recipients {
		if r.UserID == "" {
			return nil, apperr.Validation("recipient without user id")
		}
		wrapped, err := s.wrapper.Wrap(ctx, r, contentKey)
		if err != nil {
			return nil, err
		}
		env.Keys[r.UserID] = wrapped
	}
	return env, nil
}

// Decrypt opens env for recipientID. recipientKey is the recipient's private key in box
// mode and ignored in kms mode.
func (s *Sealer) Decrypt(ctx context.Context, env *model.Envelope, recipientID string, recipientKey []byte) ([]byte, error) {
	if env == nil || len(env.Nonce) == 0 || len(env.Ciphertext) == 0 {
		return nil, apperr.Validation("malformed envelope")
	}
	if env.Mode != s.wrapper.Mode() {
		return nil, apperr.Validation(fmt.Sprintf("envelope mode %q, sealer mode %q", env.Mode, s.wrapper.Mode()))
	}
	wrapped, ok := env.Keys[recipientID]
	if !ok {
		return nil, apperr.PermissionDenied("not a recipient of this envelope")
	}

	contentKey, err := s.wrapper.Unwrap(ctx, recipientID, recipientKey, wrapped)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(contentKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, aad(env.Mode))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPermissionDenied, "envelope authentication failed", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != contentKeySize {
		return nil, apperr.Internal(fmt.Sprintf("content key is %d bytes", len(key)))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "aes cipher init failed", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "aes-gcm init failed", err)
	}
	return gcm, nil
}

func aad(mode string) []byte {
	return []byte("kinship:e2e:v1|mode=" + mode)
}

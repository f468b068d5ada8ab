package model

import "time"

// Envelope is a sealed message body. Ciphertext is AES-256-GCM under a random content key,
// and the content key is wrapped once per recipient.
type Envelope struct {
	Mode       string            `json:"mode" bson:"mode"` // box | kms
	Nonce      []byte            `json:"nonce" bson:"nonce"`
	Ciphertext []byte            `json:"ciphertext" bson:"ciphertext"`
	Keys       map[string][]byte `json:"keys" bson:"keys"` // recipient id -> wrapped content key
}

// Recipient is a user the envelope is sealed for. PublicKey is only used by box mode.
type Recipient struct {
	UserID    string
	PublicKey []byte
}

// UserKey is a user's published X25519 public key
type UserKey struct {
	UserID    string    `json:"userId" bson:"_id"`
	PublicKey []byte    `json:"publicKey" bson:"publicKey"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

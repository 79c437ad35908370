package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/contriblog/internal/ir"
)

// Keypair is an ed25519 signing identity.
type Keypair struct {
	private ed25519.PrivateKey
	public  ir.Pubkey
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return keypairFromPrivate(priv), nil
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keypair seed: want %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return keypairFromPrivate(ed25519.NewKeyFromSeed(seed)), nil
}

func keypairFromPrivate(priv ed25519.PrivateKey) *Keypair {
	kp := &Keypair{private: priv}
	copy(kp.public[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// LoadKeypair reads a 64-byte private key file.
func LoadKeypair(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("load keypair %s: expected %d bytes, got %d", path, ed25519.PrivateKeySize, len(data))
	}
	return keypairFromPrivate(ed25519.PrivateKey(data)), nil
}

// LoadOrGenerateKeypair loads the keypair at path, creating it with mode
// 0600 if the file does not exist. created reports which happened.
func LoadOrGenerateKeypair(path string) (kp *Keypair, created bool, err error) {
	kp, err = LoadKeypair(path)
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	kp, err = GenerateKeypair()
	if err != nil {
		return nil, false, err
	}
	if err := os.WriteFile(path, kp.private, 0600); err != nil {
		return nil, false, fmt.Errorf("write keypair: %w", err)
	}
	return kp, true, nil
}

// Public returns the public key.
func (kp *Keypair) Public() ir.Pubkey { return kp.public }

// Sign signs msg.
func (kp *Keypair) Sign(msg []byte) []byte { return ed25519.Sign(kp.private, msg) }

// Verify reports whether sig is signer's signature over msg.
func Verify(signer ir.Pubkey, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(signer[:]), msg, sig)
}

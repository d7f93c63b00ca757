// Package votertoken derives pseudonymous voter identities.
//
// A token is HMAC-SHA256(k, electionID || userID) where k is expanded with
// HKDF from the configured secret and key id. The same user always gets the
// same token within one election, tokens differ across elections, and the
// votes table alone cannot be mapped back to users without the secret.
package votertoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"golang.org/x/crypto/hkdf"
)

const minSecretLen = 16

var ErrWeakSecret = errors.New("voter token secret must be at least 16 bytes")

type deriver struct {
	keyID string
	key   []byte
}

// New expands secret into the HMAC key. The key id is embedded in every
// token so a rotated secret never collides with tokens of the old one.
func New(secret, keyID string) (ports.VoterTokenDeriver, error) {
	if len(secret) < minSecretLen {
		return nil, ErrWeakSecret
	}
	if keyID == "" {
		keyID = "v1"
	}

	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("pollr voter token "+keyID))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive voter token key: %w", err)
	}

	return &deriver{keyID: keyID, key: key}, nil
}

func (d *deriver) Derive(userID, electionID uuid.UUID) domain.VoterToken {
	h := hmac.New(sha256.New, d.key)
	h.Write(electionID[:])
	h.Write(userID[:])
	sum := h.Sum(nil)
	return domain.VoterToken(d.keyID + "." + base64.RawURLEncoding.EncodeToString(sum))
}

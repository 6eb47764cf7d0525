package services

import (
	"crypto/rand"
	"math/big"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateInvitationToken returns an unguessable URL-safe token. 64
// alphanumeric characters carry ~380 bits of entropy; the token is the
// sole capability to accept or decline an invitation, so it must come
// from a cryptographic source.
func generateInvitationToken() (string, error) {
	token := make([]byte, 64)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		token[i] = tokenAlphabet[n.Int64()]
	}
	return string(token), nil
}

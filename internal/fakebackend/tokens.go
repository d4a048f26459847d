package fakebackend

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// opaqueID names a refresh family, a reset request or a verification request.
type opaqueID [16]byte

const (
	opaqueSecretSize = 32
	opaqueRawSize    = len(opaqueID{}) + opaqueSecretSize
)

var errMalformedToken = errors.New("malformed opaque token")

func newOpaqueID() (opaqueID, error) {
	var id opaqueID
	_, err := rand.Read(id[:])
	return id, err
}

func (id opaqueID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// mintOpaque returns a token carrying id plus a fresh secret, and the hash of
// the secret to keep server side.
func mintOpaque(id opaqueID) (string, [32]byte, error) {
	var raw [opaqueRawSize]byte
	copy(raw[:len(id)], id[:])
	if _, err := rand.Read(raw[len(id):]); err != nil {
		return "", [32]byte{}, err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), sha256.Sum256(raw[len(id):]), nil
}

// parseOpaque splits token into its id and the hash of its secret.
func parseOpaque(token string) (opaqueID, [32]byte, error) {
	var id opaqueID

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != opaqueRawSize {
		return id, [32]byte{}, errMalformedToken
	}
	copy(id[:], raw[:len(id)])
	return id, sha256.Sum256(raw[len(id):]), nil
}

func hashesEqual(a, b [32]byte) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func randomToken(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

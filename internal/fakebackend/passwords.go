package fakebackend

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Stored passwords are argon2id PHC strings:
//
//	$argon2id$v=19$m=8192,t=1,p=1$<salt>$<hash>
//
// The cost is the argon2id floor; the backend only has to look real.
const (
	phcAlgorithm   = "argon2id"
	hashMemoryKB   = 8 * 1024
	hashTime       = 1
	hashThreads    = 1
	hashSaltLength = 16
	hashKeyLength  = 32
)

var errMalformedHash = errors.New("fakebackend: malformed password hash")

func hashPassword(password string) (string, error) {
	salt := make([]byte, hashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, hashTime, hashMemoryKB, hashThreads, hashKeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm,
		argon2.Version,
		hashMemoryKB,
		hashTime,
		hashThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// passwordMatches reports whether password hashes to encoded. A malformed
// hash never matches.
func passwordMatches(password, encoded string) bool {
	p, err := parsePHC(encoded)
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1
}

type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parsePHC(encoded string) (phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != phcAlgorithm {
		return phc{}, errMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, errMalformedHash
	}

	var out phc
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return phc{}, errMalformedHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return phc{}, errMalformedHash
		}
		switch k {
		case "m":
			out.memory = uint32(n)
		case "t":
			out.time = uint32(n)
		case "p":
			if n > 255 {
				return phc{}, errMalformedHash
			}
			out.threads = uint8(n)
		default:
			return phc{}, errMalformedHash
		}
	}
	if out.memory == 0 || out.time == 0 || out.threads == 0 {
		return phc{}, errMalformedHash
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(out.salt) < hashSaltLength {
		return phc{}, errMalformedHash
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(out.key) == 0 {
		return phc{}, errMalformedHash
	}
	return out, nil
}

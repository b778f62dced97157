package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Password hashing parameters. Records are self-describing so the
// defaults can change without breaking verification of older hashes.
const (
	passwordScheme  = "pbkdf2"
	passwordVersion = "v1"
	saltBytes       = 16
	keyBytes        = 32

	// MaxPasswordIterations mirrors the 100k cap common crypto
	// providers place on PBKDF2; Hash clamps to it so records stay
	// portable across runtimes.
	MaxPasswordIterations     = 100000
	DefaultPasswordIterations = 100000
)

var errMalformedRecord = errors.New("malformed password record")

// HashPassword derives a salted PBKDF2-SHA256 key from plain and
// returns a versioned record of the form
// pbkdf2$v1$<iterations>$<salt-hex>$<key-hex>. The iteration count is
// recorded in the output so verification stays stable even if the
// configured default changes later.
func HashPassword(plain string, iterations int) (string, error) {
	if iterations <= 0 {
		iterations = DefaultPasswordIterations
	}
	if iterations > MaxPasswordIterations {
		iterations = MaxPasswordIterations
	}
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(plain), salt, iterations, keyBytes, sha256.New)
	return strings.Join([]string{
		passwordScheme,
		passwordVersion,
		strconv.Itoa(iterations),
		hex.EncodeToString(salt),
		hex.EncodeToString(key),
	}, "$"), nil
}

// VerifyPassword re-derives the key for plain using the parameters
// stored in record and compares in constant time. It fails closed:
// any parse error, unknown scheme or version, or derivation mismatch
// yields false, never an error or panic.
func VerifyPassword(plain, record string) bool {
	iterations, salt, want, err := parsePasswordRecord(record)
	if err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(plain), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parsePasswordRecord(record string) (int, []byte, []byte, error) {
	parts := strings.Split(record, "$")
	if len(parts) != 5 {
		return 0, nil, nil, errMalformedRecord
	}
	if parts[0] != passwordScheme || parts[1] != passwordVersion {
		return 0, nil, nil, errMalformedRecord
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 || iterations > MaxPasswordIterations {
		return 0, nil, nil, errMalformedRecord
	}
	salt, err := hex.DecodeString(parts[3])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, errMalformedRecord
	}
	key, err := hex.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, errMalformedRecord
	}
	return iterations, salt, key, nil
}

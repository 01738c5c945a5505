package authz

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Token digests use scrypt with parameters meeting the OWASP minimums.
// The digest string is self-describing so parameters can be raised later
// without invalidating existing entries.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 32

	tokenSecretLen = 24
)

// MintToken generates a fresh API token for a principal together with the
// digest to store in the directory. The token is shown once; only the
// digest is persisted.
func MintToken(principal string) (token, digest string, err error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return "", "", fmt.Errorf("principal must not be empty")
	}
	if strings.Contains(principal, ".") {
		return "", "", fmt.Errorf("principal must not contain %q", ".")
	}

	secret := make([]byte, tokenSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("failed to generate token secret: %w", err)
	}

	token = principal + "." + hex.EncodeToString(secret)
	digest, err = HashToken(token)
	if err != nil {
		return "", "", err
	}
	return token, digest, nil
}

// HashToken derives the storable digest for a token. Format:
// scrypt$N$r$p$base64(salt)$base64(key).
func HashToken(token string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(token), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("key derivation failed: %w", err)
	}

	return fmt.Sprintf("scrypt$%d$%d$%d$%s$%s",
		scryptN, scryptR, scryptP,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// VerifyToken checks a presented token against a stored digest in constant
// time. A malformed digest is an error, not a mismatch.
func VerifyToken(digest, token string) (bool, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "scrypt" {
		return false, fmt.Errorf("malformed token digest")
	}

	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return false, fmt.Errorf("malformed token digest: %w", err)
	}
	r, err := strconv.Atoi(parts[2])
	if err != nil {
		return false, fmt.Errorf("malformed token digest: %w", err)
	}
	p, err := strconv.Atoi(parts[3])
	if err != nil {
		return false, fmt.Errorf("malformed token digest: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed token digest: %w", err)
	}
	want, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("malformed token digest: %w", err)
	}

	got, err := scrypt.Key([]byte(token), salt, n, r, p, len(want))
	if err != nil {
		return false, fmt.Errorf("key derivation failed: %w", err)
	}

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// splitToken separates "principal.secret". The secret may itself contain
// dots; only the first one delimits.
func splitToken(token string) (principal string, ok bool) {
	idx := strings.IndexByte(token, '.')
	if idx <= 0 || idx == len(token)-1 {
		return "", false
	}
	return token[:idx], true
}

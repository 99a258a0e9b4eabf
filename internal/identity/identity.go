// Package identity derives student identifiers and manages the one-time
// passwords handed out with each plan bundle.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
)

// PasswordLength is the number of hex characters in a generated password.
const PasswordLength = 15

const maxPasswordAttempts = 32

type contextKey int

const studentIDKey contextKey = iota

// StudentIDFromEmail normalizes a survey email into the student id.
func StudentIDFromEmail(email string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(email))
	if id == "" {
		return "", fmt.Errorf("%w: empty email", domain.ErrInvalidInput)
	}
	return id, nil
}

// WithStudentID returns a context carrying the student id of the request.
func WithStudentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, studentIDKey, id)
}

// StudentIDFromContext extracts the student id from the request context.
func StudentIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(studentIDKey).(string); ok {
		return v
	}
	return ""
}

func randomHex(n int) (string, error) {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(buf)[:n], nil
}

// GeneratePassword returns a fresh lowercase hex password that does not
// appear in taken. The chosen password is not added to taken.
func GeneratePassword(taken map[string]struct{}) (string, error) {
	for range maxPasswordAttempts {
		pw, err := randomHex(PasswordLength)
		if err != nil {
			return "", err
		}
		if _, dup := taken[pw]; !dup {
			return pw, nil
		}
	}
	return "", fmt.Errorf("generate password: no unique value after %d attempts", maxPasswordAttempts)
}

// CheckPassword compares a submitted password against the stored one in
// constant time. An empty stored password never matches.
func CheckPassword(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(submitted))) == 1
}

package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TokenPrefix marks a recipe token in shared text
const TokenPrefix = "HTC"

var (
	// ErrEmptyTokenName rejects encoding a token without a name
	ErrEmptyTokenName = errors.New("token name is required")
	// ErrInvalidToken reports a string that is not a recipe token
	ErrInvalidToken = errors.New("invalid recipe token")
)

// EncodeToken renders #HTC:<name>:<cal>#
func EncodeToken(name string, cal int) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyTokenName
	}
	if cal < 0 {
		cal = 0
	}
	return fmt.Sprintf("#%s:%s:%d#", TokenPrefix, name, cal), nil
}

// ParseToken recovers name and calories. The last colon separates the calories
// so names containing colons survive a round trip.
func ParseToken(token string) (string, int, error) {
	head := "#" + TokenPrefix + ":"
	if !strings.HasPrefix(token, head) || !strings.HasSuffix(token, "#") || len(token) < len(head)+1 {
		return "", 0, ErrInvalidToken
	}

	body := token[len(head) : len(token)-1]
	idx := strings.LastIndex(body, ":")
	if idx <= 0 {
		return "", 0, ErrInvalidToken
	}

	cal, err := strconv.Atoi(body[idx+1:])
	if err != nil || cal < 0 {
		return "", 0, fmt.Errorf("%w: calories %q", ErrInvalidToken, body[idx+1:])
	}
	return body[:idx], cal, nil
}

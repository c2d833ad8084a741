package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyToken is returned when the token file holds no token.
var ErrEmptyToken = errors.New("token file is empty")

// LoadToken reads the bearer token from path.
// The file must exist and contain a non-blank token.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyToken)
	}
	return token, nil
}

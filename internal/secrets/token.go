package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"probatescout-engine/internal/config"
)

const (
	// “Service” groups the app's secrets in the OS keychain.
	KeyringService = "probatescout"
)

// GetProxyToken reads the outbound proxy token from the OS keychain.
func GetProxyToken(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		tok, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(tok) != "" {
			return tok, nil
		}
	}

	return "", errors.New("proxy token not found (set it in keychain)")
}

func SetProxyToken(keyringAccount string, token string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, token)
}

func DeleteProxyToken(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

// ProxyKeyringAccount derives the keychain account name from config so that
// switching proxy accounts never reuses a stale token.
func ProxyKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf("probatescout:proxy:%s", cfg.Outbound.ProxyAccount)
}

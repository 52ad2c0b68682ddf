// Package secrets stores the IMAP password in the OS keychain.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/zalando/go-keyring"

	"apptrack/internal/config"
)

// KeyringService groups this app's secrets in the OS keychain.
const KeyringService = "apptrack"

// envPassword overrides the keyring, mainly for headless environments.
const envPassword = "APPTRACK_IMAP_PASSWORD"

// IMAPAccount derives the keyring account name from the mailbox identity.
func IMAPAccount(cfg config.IMAPConfig) string {
	return fmt.Sprintf("imap:%s@%s", cfg.Username, cfg.Host)
}

// GetIMAPPassword reads the password from the env override first, then
// the keyring.
func GetIMAPPassword(account string) (string, error) {
	if pw := strings.TrimSpace(os.Getenv(envPassword)); pw != "" {
		return pw, nil
	}
	if strings.TrimSpace(account) != "" {
		pw, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	return "", eris.Errorf("secrets: IMAP password not found (run `apptrack secret set` or export %s)", envPassword)
}

func SetIMAPPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return eris.New("secrets: keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return eris.New("secrets: password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func DeleteIMAPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return eris.New("secrets: keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

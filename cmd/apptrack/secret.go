package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"apptrack/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the IMAP password in the OS keyring",
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the IMAP password",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("password for %s: ", cfg.IMAP.Username)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return eris.Wrap(err, "read password")
		}
		password := strings.TrimSpace(line)
		if password == "" {
			return eris.New("empty password")
		}

		account := secrets.IMAPAccount(cfg.IMAP)
		if err := secrets.SetIMAPPassword(account, password); err != nil {
			return err
		}
		fmt.Printf("stored password for %s\n", account)
		return nil
	},
}

var secretClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the IMAP password",
	RunE: func(cmd *cobra.Command, args []string) error {
		account := secrets.IMAPAccount(cfg.IMAP)
		if err := secrets.DeleteIMAPPassword(account); err != nil {
			return err
		}
		fmt.Printf("removed password for %s\n", account)
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretClearCmd)
	rootCmd.AddCommand(secretCmd)
}

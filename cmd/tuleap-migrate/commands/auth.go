// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/kavirubc
// Created: 2026-10-13
// Last Modified: 2026-10-13

package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/similigh/tuleap-migrate/internal/credential"
)

var authToken string

// authCmd groups the token management commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the GitHub token stored in the OS keyring",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token in the OS keyring",
	Long: `Store the GitHub token used to publish issues. The token is read from
--token, or from standard input when the flag is omitted.

target.token in the configuration and the GITHUB_TOKEN variable take
precedence over the stored token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := authToken
		if token == "" {
			fmt.Fprint(os.Stderr, "GitHub token: ")
			var err error
			token, err = readToken(os.Stdin)
			if err != nil {
				return err
			}
		}
		if err := credential.Set(credential.GitHubTokenKey, token); err != nil {
			return err
		}
		fmt.Println("✓ Token stored")
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored GitHub token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credential.Delete(credential.GitHubTokenKey); err != nil {
			return err
		}
		fmt.Println("✓ Token removed")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the GitHub token would be taken from",
	Run: func(cmd *cobra.Command, args []string) {
		switch {
		case os.Getenv("GITHUB_TOKEN") != "":
			fmt.Println("Using GITHUB_TOKEN from the environment (unless target.token is set)")
		default:
			if _, err := credential.GitHubToken(); err == nil {
				fmt.Println("Using the token stored in the OS keyring (unless target.token is set)")
			} else {
				fmt.Println("No token in the environment or keyring; set target.token or run 'tuleap-migrate auth login'")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)

	authLoginCmd.Flags().StringVar(&authToken, "token", "", "Token to store (read from stdin if omitted)")
}

// readToken reads the first line of r as a token.
func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}

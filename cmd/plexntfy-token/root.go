// Plexntfy - Plex Webhook to Push Notification Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/plexntfy

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/plexntfy/internal/config"
)

// keyEnvVar matches the server's NTFY_ENCRYPTION_KEY mapping.
const keyEnvVar = "NTFY_ENCRYPTION_KEY"

var keyFlag string

var rootCmd = &cobra.Command{
	Use:           "plexntfy-token",
	Short:         "Encrypt push service tokens for plexntfy",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [token]",
	Short: "Encrypt a token",
	Long:  `Encrypt a push service token. The token is read from the argument or, if omitted, from the first line of stdin.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := encryptor()
		if err != nil {
			return err
		}

		token, err := tokenArg(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		ciphertext, err := enc.Encrypt(token)
		if err != nil {
			return fmt.Errorf("failed to encrypt token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ciphertext)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <ciphertext>",
	Short: "Check that a ciphertext decrypts with the current key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc, err := encryptor()
		if err != nil {
			return err
		}

		token, err := enc.Decrypt(args[0])
		if err != nil {
			return fmt.Errorf("failed to decrypt token: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", config.MaskCredential(token))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&keyFlag, "key", "", "encryption key (default $"+keyEnvVar+")")
	rootCmd.AddCommand(encryptCmd, verifyCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func encryptor() (*config.CredentialEncryptor, error) {
	key := keyFlag
	if key == "" {
		key = os.Getenv(keyEnvVar)
	}
	if key == "" {
		return nil, fmt.Errorf("no encryption key: pass --key or set %s", keyEnvVar)
	}
	return config.NewCredentialEncryptor(key)
}

func tokenArg(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

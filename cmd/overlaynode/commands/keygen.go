package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shadowmesh/shadowmesh/pkg/crypto/envelope"
)

func keygenCmd() *cobra.Command {
	var method string
	var passphrase string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Derive and print the key a passphrase maps to",
		Long: "keygen runs the same KDF envelope.FromSharedKey uses internally and\n" +
			"prints the resulting key, so an operator can confirm two nodes\n" +
			"configured with the same passphrase will agree on the same key\n" +
			"without exchanging key material directly. The core never generates\n" +
			"or rotates keys on its own; key distribution is left to the operator.",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMethod(method)
			if err != nil {
				return err
			}
			if m == envelope.MethodNone {
				return fmt.Errorf("keygen: method must be chacha20poly1305 or aes256gcm")
			}
			if _, err := envelope.FromSharedKey(m, passphrase); err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			key := envelope.DeriveKey(passphrase)
			fmt.Println(base64.StdEncoding.EncodeToString(key[:]))
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "chacha20poly1305", "chacha20poly1305 or aes256gcm")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "shared passphrase (required)")
	cmd.MarkFlagRequired("passphrase")

	return cmd
}

func parseMethod(s string) (envelope.Method, error) {
	switch s {
	case "none":
		return envelope.MethodNone, nil
	case "chacha20poly1305":
		return envelope.MethodChaCha20Poly1305, nil
	case "aes256gcm":
		return envelope.MethodAES256GCM, nil
	default:
		return 0, fmt.Errorf("unknown crypto method %q", s)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/gauntlet/internal/auth"
)

func newKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the JWT signing key pair",
	}

	var dir string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Write a new Ed25519 key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, pub, err := auth.GenerateKeyFiles(dir)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "GAUNTLET_JWT_PRIVATE_KEY=%s\n", priv) //nolint:errcheck
			fmt.Fprintf(w, "GAUNTLET_JWT_PUBLIC_KEY=%s\n", pub)   //nolint:errcheck
			return nil
		},
	}
	generate.Flags().StringVar(&dir, "dir", "data", "Directory to write the PEM files into")
	cmd.AddCommand(generate)
	return cmd
}

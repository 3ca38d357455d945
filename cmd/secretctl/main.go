// Command secretctl splits a CivicSeal service secret into Shamir shares and
// combines shares back into the secret.
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hashicorp/vault/shamir"
	"github.com/urfave/cli/v2"

	"github.com/Dshubhambadola/CivicSeal/kms"
)

var flagSecret = &cli.StringFlag{
	Name:    "secret",
	Usage:   "hex service secret to split; a random secret is generated when empty",
	EnvVars: []string{"CIVICSEAL_SERVICE_SECRET"},
}

var flagShares = &cli.IntFlag{
	Name:  "shares",
	Value: 5,
	Usage: "total number of shares",
}

var flagThreshold = &cli.IntFlag{
	Name:  "threshold",
	Value: 3,
	Usage: "shares needed to reconstruct the secret",
}

func main() {
	app := &cli.App{
		Name:  "secretctl",
		Usage: "manage the service secret as Shamir shares",
		Commands: []*cli.Command{
			{
				Name:  "split",
				Usage: "print one hex share per line",
				Flags: []cli.Flag{flagSecret, flagShares, flagThreshold},
				Action: func(cCtx *cli.Context) error {
					secret, err := secretFrom(cCtx.String(flagSecret.Name))
					if err != nil {
						return err
					}

					shares, err := kms.SplitSecret(secret, cCtx.Int(flagShares.Name), cCtx.Int(flagThreshold.Name))
					if err != nil {
						return err
					}

					if cCtx.String(flagSecret.Name) == "" {
						fmt.Fprintf(cCtx.App.ErrWriter, "generated secret: %s\n", hex.EncodeToString(secret))
					}
					for _, share := range shares {
						fmt.Fprintln(cCtx.App.Writer, hex.EncodeToString(share))
					}
					return nil
				},
			},
			{
				Name:      "combine",
				Usage:     "read hex shares, one per line, from stdin or arguments and print the secret",
				ArgsUsage: "[share...]",
				Action: func(cCtx *cli.Context) error {
					lines := cCtx.Args().Slice()
					if len(lines) == 0 {
						scanner := bufio.NewScanner(os.Stdin)
						for scanner.Scan() {
							if line := strings.TrimSpace(scanner.Text()); line != "" {
								lines = append(lines, line)
							}
						}
						if err := scanner.Err(); err != nil {
							return err
						}
					}

					parts := make([][]byte, 0, len(lines))
					for i, line := range lines {
						part, err := hex.DecodeString(strings.TrimPrefix(line, "0x"))
						if err != nil {
							return fmt.Errorf("share %d: %w", i, err)
						}
						parts = append(parts, part)
					}

					secret, err := shamir.Combine(parts)
					if err != nil {
						return fmt.Errorf("failed to combine shares: %w", err)
					}
					fmt.Fprintln(cCtx.App.Writer, hex.EncodeToString(secret))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func secretFrom(secretHex string) ([]byte, error) {
	if secretHex == "" {
		secret := make([]byte, kms.MinSecretLength)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		return secret, nil
	}
	return hex.DecodeString(strings.TrimPrefix(secretHex, "0x"))
}

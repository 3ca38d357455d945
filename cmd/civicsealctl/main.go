// Command civicsealctl is a command line client for a CivicSeal server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Dshubhambadola/CivicSeal/api/clients"
	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

var flagServerAddr = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "CivicSeal server address",
	EnvVars: []string{"CIVICSEAL_SERVER_ADDR"},
}

var flagToken = &cli.StringFlag{
	Name:    "token",
	Usage:   "session token returned by login",
	EnvVars: []string{"CIVICSEAL_TOKEN"},
}

var flagEmail = &cli.StringFlag{Name: "email", Required: true}

var flagPassword = &cli.StringFlag{
	Name:     "password",
	Required: true,
	EnvVars:  []string{"CIVICSEAL_PASSWORD"},
}

var flagHash = &cli.StringFlag{
	Name:  "hash",
	Usage: "0x-prefixed sha256 content hash",
}

func main() {
	app := &cli.App{
		Name:  "civicsealctl",
		Usage: "Notarize, verify and share documents",
		Flags: []cli.Flag{flagServerAddr, flagToken},
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an identity",
				Flags: []cli.Flag{flagEmail, flagPassword, &cli.StringFlag{Name: "name"}},
				Action: func(cCtx *cli.Context) error {
					identity, err := newClient(cCtx).RegisterIdentity(cCtx.Context, cCtx.String("email"), cCtx.String("password"), cCtx.String("name"))
					if err != nil {
						return err
					}
					return printJSON(identity)
				},
			},
			{
				Name:  "login",
				Usage: "Print a session token",
				Flags: []cli.Flag{flagEmail, flagPassword},
				Action: func(cCtx *cli.Context) error {
					token, err := newClient(cCtx).Login(cCtx.Context, cCtx.String("email"), cCtx.String("password"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
			{
				Name:      "register",
				Usage:     "Upload and notarize a document",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					flagHash,
					&cli.StringFlag{Name: "key", Usage: "document encryption key to escrow"},
					&cli.StringFlag{Name: "name", Usage: "original filename, defaults to the uploaded file name"},
				},
				Action: func(cCtx *cli.Context) error {
					path := cCtx.Args().First()
					if path == "" {
						return errors.New("file argument is required")
					}
					content, err := os.ReadFile(path)
					if err != nil {
						return err
					}

					opts := clients.RegisterOptions{
						EncryptionKey: cCtx.String("key"),
						OriginalName:  cCtx.String("name"),
					}
					if cCtx.IsSet("hash") {
						hash, err := interfaces.ParseContentHash(cCtx.String("hash"))
						if err != nil {
							return err
						}
						opts.Hash = &hash
					}

					res, err := newClient(cCtx).RegisterDocument(cCtx.Context, filepath.Base(path), content, opts)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:  "list",
				Usage: "List documents you registered",
				Action: func(cCtx *cli.Context) error {
					docs, err := newClient(cCtx).ListDocuments(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(docs)
				},
			},
			{
				Name:      "verify",
				Usage:     "Verify a file against the ledger",
				ArgsUsage: "<file>",
				Action: func(cCtx *cli.Context) error {
					path := cCtx.Args().First()
					if path == "" {
						return errors.New("file argument is required")
					}
					content, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					res, err := newClient(cCtx).Verify(cCtx.Context, filepath.Base(path), content)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "whois",
				Usage:     "Look up the public identity registered under an email",
				ArgsUsage: "<email>",
				Action: func(cCtx *cli.Context) error {
					identity, err := newClient(cCtx).LookupIdentity(cCtx.Context, cCtx.Args().First())
					if err != nil {
						return err
					}
					return printJSON(identity)
				},
			},
			{
				Name:      "revoke",
				Usage:     "Revoke a document you registered",
				ArgsUsage: "[file]",
				Flags:     []cli.Flag{flagHash},
				Action: func(cCtx *cli.Context) error {
					hash, err := hashFromArgs(cCtx)
					if err != nil {
						return err
					}
					res, err := newClient(cCtx).Revoke(cCtx.Context, hash)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:  "key",
				Usage: "Recover the escrowed encryption key of your document",
				Flags: []cli.Flag{flagHash},
				Action: func(cCtx *cli.Context) error {
					hash, err := hashFromArgs(cCtx)
					if err != nil {
						return err
					}
					key, err := newClient(cCtx).RecoverKey(cCtx.Context, hash)
					if err != nil {
						return err
					}
					fmt.Println(key)
					return nil
				},
			},
			{
				Name:  "share",
				Usage: "Share a document key with another identity",
				Flags: []cli.Flag{flagHash, &cli.StringFlag{Name: "to", Required: true, Usage: "recipient email"}},
				Action: func(cCtx *cli.Context) error {
					hash, err := hashFromArgs(cCtx)
					if err != nil {
						return err
					}
					res, err := newClient(cCtx).Share(cCtx.Context, hash, cCtx.String("to"))
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:  "shared",
				Usage: "List documents shared with you, or open one with --hash",
				Flags: []cli.Flag{flagHash},
				Action: func(cCtx *cli.Context) error {
					c := newClient(cCtx)
					if !cCtx.IsSet("hash") {
						shares, err := c.SharedWithMe(cCtx.Context)
						if err != nil {
							return err
						}
						return printJSON(shares)
					}
					hash, err := interfaces.ParseContentHash(cCtx.String("hash"))
					if err != nil {
						return err
					}
					res, err := c.OpenShared(cCtx.Context, hash)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:  "link",
				Usage: "Create a public verification link",
				Flags: []cli.Flag{flagHash, &cli.DurationFlag{Name: "expires-in", Usage: "link lifetime, unlimited if unset"}},
				Action: func(cCtx *cli.Context) error {
					hash, err := hashFromArgs(cCtx)
					if err != nil {
						return err
					}
					var expiresAt *time.Time
					if d := cCtx.Duration("expires-in"); d > 0 {
						t := time.Now().Add(d)
						expiresAt = &t
					}
					res, err := newClient(cCtx).CreateLink(cCtx.Context, hash, expiresAt)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:      "unlink",
				Usage:     "Disable a public verification link",
				ArgsUsage: "<link id>",
				Action: func(cCtx *cli.Context) error {
					return newClient(cCtx).DisableLink(cCtx.Context, cCtx.Args().First())
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a public verification link",
				ArgsUsage: "<link id>",
				Action: func(cCtx *cli.Context) error {
					res, err := newClient(cCtx).ResolveLink(cCtx.Context, cCtx.Args().First())
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *clients.Client {
	c := clients.NewClient(cCtx.String(flagServerAddr.Name), nil)
	c.Token = cCtx.String(flagToken.Name)
	return c
}

// hashFromArgs takes --hash if set, otherwise hashes the file named by the first argument.
func hashFromArgs(cCtx *cli.Context) (interfaces.ContentHash, error) {
	if cCtx.IsSet(flagHash.Name) {
		return interfaces.ParseContentHash(cCtx.String(flagHash.Name))
	}
	path := cCtx.Args().First()
	if path == "" {
		return interfaces.ContentHash{}, errors.New("either --hash or a file argument is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return interfaces.ContentHash{}, err
	}
	return interfaces.Identify(content), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

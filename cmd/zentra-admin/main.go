// Command zentra-admin performs operator tasks against the credits store: minting
// development tokens and adjusting subscriptions or balances.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/config"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/models"
	"github.com/AkhileshRajan/zentra-pro/internal/models/dto"
	"github.com/AkhileshRajan/zentra-pro/internal/storage/backend"
)

const usage = `usage: zentra-admin <command> [flags]

commands:
  token        -id ID [-email EMAIL]   mint an HS256 bearer token
  activate     -id ID                  start a paid subscription
  cancel       -id ID                  cancel the subscription
  set-credits  -id ID -credits N       overwrite the balance
  show         -id ID | -email EMAIL   print the stored profile
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "user id (token subject)")
	email := fs.String("email", "", "user email")
	credits := fs.Int64("credits", -1, "new balance")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if cmd == "token" {
		if *id == "" {
			return fmt.Errorf("%w: -id is required", errUsage)
		}
		if cfg.AuthJWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required to mint tokens")
		}
		tokens := auth.NewTokenManager(cfg.AuthJWTSecret, cfg.AuthIssuer, cfg.AuthAudience, cfg.AuthTokenTTL)
		token, err := tokens.Generate(auth.Identity{ID: *id, Email: *email})
		if err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
		_, err = fmt.Fprintln(out, token)
		return err
	}

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	l := ledger.New(store)

	switch cmd {
	case "activate", "cancel", "set-credits":
		if *id == "" {
			return fmt.Errorf("%w: -id is required", errUsage)
		}
	}

	switch cmd {
	case "activate":
		err = l.ActivateSubscription(ctx, *id)
	case "cancel":
		err = l.CancelSubscription(ctx, *id)
	case "set-credits":
		if *credits < 0 {
			return fmt.Errorf("%w: -credits must be >= 0", errUsage)
		}
		err = l.SetCredits(ctx, *id, *credits)
	case "show":
		var user models.User
		switch {
		case *id != "":
			user, err = store.FindByID(ctx, *id)
		case *email != "":
			user, err = store.FindByEmail(ctx, *email)
		default:
			return fmt.Errorf("%w: -id or -email is required", errUsage)
		}
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.NewMeResponse(user))
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: ok\n", cmd)
	return err
}

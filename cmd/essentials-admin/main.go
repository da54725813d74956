package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"endlessessentials.app/internal/auth"
	"endlessessentials.app/internal/config"
	"endlessessentials.app/internal/market"
	"endlessessentials.app/internal/obs"
	"endlessessentials.app/internal/store/mongodb"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "essentials-admin",
		Short:         "Operational commands for the Endless Essentials database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Duration("timeout", 30*time.Second, "deadline for each command")

	root.AddCommand(indexesCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(grantAdminCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the collection indexes (unique user email, booking and payment lookups)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd, func(ctx context.Context, _ config.App, s *mongodb.Store) error {
				names, err := s.EnsureIndexes(ctx)
				if err != nil {
					return fmt.Errorf("ensure indexes: %w", err)
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [categories.json]",
		Short: "Insert categories from a JSON array, skipping names that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withMongo(cmd, func(ctx context.Context, _ config.App, s *mongodb.Store) error {
				return seedCategories(ctx, s.Categories(), f, cmd.OutOrStdout())
			})
		},
	}
}

func grantAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin [email]",
		Short: "Set role=admin on an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd, func(ctx context.Context, _ config.App, s *mongodb.Store) error {
				return grantAdmin(ctx, s.Users(), args[0], cmd.OutOrStdout())
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [email]",
		Short: "Issue an access token for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd, func(ctx context.Context, cfg config.App, s *mongodb.Store) error {
				return issueToken(ctx, s.Users(), cfg.TokenSecret, args[0], cmd.OutOrStdout())
			})
		},
	}
}

func seedCategories(ctx context.Context, cats market.CategoryStore, r io.Reader, out io.Writer) error {
	var items []market.Category
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return fmt.Errorf("decode categories: %w", err)
	}
	var inserted, skipped int
	for _, c := range items {
		if c.Name == "" {
			return errors.New("category name is required")
		}
		res, err := cats.Create(ctx, c)
		if errors.Is(err, market.ErrAlreadyExists) {
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
		inserted++
		fmt.Fprintf(out, "%s %s\n", res.InsertedID, c.Name)
	}
	fmt.Fprintf(out, "inserted=%d skipped=%d\n", inserted, skipped)
	return nil
}

func grantAdmin(ctx context.Context, users market.UserStore, email string, out io.Writer) error {
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user %s: %w", email, err)
	}
	res, err := users.SetAdmin(ctx, u.ID.Hex())
	if err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	fmt.Fprintf(out, "user %s: matched=%d modified=%d\n", u.ID.Hex(), res.MatchedCount, res.ModifiedCount)
	return nil
}

func issueToken(ctx context.Context, users market.IdentityStore, secret, email string, out io.Writer) error {
	tokens, err := auth.NewTokenService(users, secret)
	if err != nil {
		return err
	}
	token, err := tokens.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("issue token for %s: %w", email, err)
	}
	fmt.Fprintln(out, token)
	return nil
}

func withMongo(cmd *cobra.Command, fn func(context.Context, config.App, *mongodb.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	obs.SetLogger(obs.NewLogger(cfg.Env, os.Stderr))

	uri := cfg.DatabaseURI()
	if uri == "" {
		return fmt.Errorf("no database configured: set MONGO_URI or DB_USER/DB_PASSWORD")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := mongodb.Open(ctx, uri, cfg.DBName)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			obs.Logger().Warn("mongodb disconnect", obs.Err(err))
		}
	}()
	return fn(ctx, cfg, store)
}

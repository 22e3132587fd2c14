// cmd/seed/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"librarium/internal/catalog"
	"librarium/internal/config"
	"librarium/internal/database"
	"librarium/internal/eventstore"
	"librarium/internal/membership"
	"librarium/internal/observability"
	"librarium/internal/session"
)

// bookFile is the layout of a books seed file.
type bookFile struct {
	Books []struct {
		ISBN     string  `yaml:"isbn"`
		Name     string  `yaml:"name"`
		Category string  `yaml:"category"`
		Quantity int     `yaml:"quantity"`
		Price    float64 `yaml:"price"`
	} `yaml:"books"`
}

func parseBookFile(r io.Reader) ([]catalog.Book, error) {
	var f bookFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parse book file: %w", err)
	}
	books := make([]catalog.Book, 0, len(f.Books))
	for _, b := range f.Books {
		books = append(books, catalog.Book{
			ISBN:     b.ISBN,
			Name:     b.Name,
			Category: b.Category,
			Quantity: b.Quantity,
			Price:    b.Price,
		})
	}
	return books, nil
}

func newBooksCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "books <file.yaml>",
		Short: "Add the books listed in a YAML file; existing ISBNs are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			books, err := parseBookFile(f)
			if err != nil {
				return err
			}

			return withDB(cmd.Context(), *configPath, func(ctx context.Context, db *sqlx.DB) error {
				svc := catalog.NewService(db, eventstore.NewEventStore(db))
				added, skipped := 0, 0
				for _, b := range books {
					_, err := svc.AddBook(ctx, b)
					switch {
					case err == nil:
						added++
					case errors.Is(err, catalog.ErrDuplicateISBN):
						skipped++
					default:
						return fmt.Errorf("add %s: %w", b.ISBN, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d books, skipped %d existing\n", added, skipped)
				return nil
			})
		},
	}
}

func newMemberCmd(configPath *string) *cobra.Command {
	var email, name, role string
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Register a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), *configPath, func(ctx context.Context, db *sqlx.DB) error {
				svc := membership.NewService(eventstore.NewEventStore(db), db)
				m, err := svc.RegisterMember(ctx, email, name, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s) as %s\n", m.Email, m.ID, m.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "member email")
	cmd.Flags().StringVar(&name, "name", "", "member name")
	cmd.Flags().StringVar(&role, "role", session.RoleMember, "member role (admin or member)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func withDB(ctx context.Context, configPath string, fn func(context.Context, *sqlx.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	observability.InitLogger("seed", cfg.LogLevel)
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := database.Connect(ctx, database.Config{
		URI:      cfg.DBURI,
		Name:     cfg.DBName,
		Attempts: cfg.DBConnectAttempts,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	slog.Debug("seeding", "db", cfg.DBName)
	return fn(ctx, db)
}

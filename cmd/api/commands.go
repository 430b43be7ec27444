package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pmstore/pmstore-api/internal/config"
	"github.com/pmstore/pmstore-api/internal/database"
	"github.com/pmstore/pmstore-api/internal/di"
	"github.com/pmstore/pmstore-api/internal/security"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pmstore-api",
		Short:        "Product management store API",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCommand(), newMigrateCommand(), newHashPasswordCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := di.InitializeApp(ctx)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			return a.Run(ctx)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := database.Migrate(cmd.Context(), db, cfg.DatabaseDriver); err != nil {
				return err
			}
			slog.Info("migrations applied", "driver", cfg.DatabaseDriver)
			return nil
		},
	}
}

func newHashPasswordCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for seeding users",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			hasher, err := security.NewBcryptHasher(cost)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", security.DefaultBcryptCost, "bcrypt cost")
	return cmd
}

// readPassword takes the argument when given, otherwise the first line of in.
func readPassword(args []string, in io.Reader) (string, error) {
	var line string
	if len(args) == 1 {
		line = args[0]
	} else {
		var err error
		line, err = bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/config"
	"github.com/rojas-cambio/cambio/internal/gitops"
	"github.com/rojas-cambio/cambio/internal/users"
)

type initOptions struct {
	name          string
	adminName     string
	adminEmail    string
	adminPassword string
	storage       string
	noGit         bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new cambio data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			if opts.adminPassword == "" {
				opts.adminPassword = os.Getenv("CAMBIO_ADMIN_PASSWORD")
			}
			if opts.adminPassword == "" {
				return errors.New("an administrator password is required: pass --admin-password or set CAMBIO_ADMIN_PASSWORD")
			}

			return runInit(ctxOf(cmd), cmd, absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.adminName, "admin-name", "", "name of the first administrator")
	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", users.DefaultAdminEmail, "email of the first administrator")
	cmd.Flags().StringVar(&opts.adminPassword, "admin-password", "", "password of the first administrator (env CAMBIO_ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&opts.storage, "storage", "csv", "transaction store: csv or sqlite")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "do not create a git repository")

	return cmd
}

func runInit(ctx context.Context, cmd *cobra.Command, dir string, opts initOptions) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already contains %s", dir, config.FileName)
	}

	dirs := []string{
		"transactions",
		"rates",
		"users",
		"logs",
		"reports",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(opts.name)
	cfg.Storage.Driver = opts.storage
	if opts.noGit {
		cfg.Git.AutoCommit = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	svc := users.NewService(dir, nil, activity.NewLog(dir))
	admin, err := svc.Add("", users.DefaultAdmin(opts.adminName, opts.adminEmail, opts.adminPassword))
	if err != nil {
		return fmt.Errorf("creating administrator: %w", err)
	}

	gitignore := ".env\n*.db\n*.db-journal\n*.db-wal\nreports/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.noGit {
		fmt.Fprintf(out, "Initialized cambio data directory at %s\n", dir)
		fmt.Fprintf(out, "Administrator: %s\n", admin.Email)
		return nil
	}

	repo := gitops.New(dir, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err := repo.Init(ctx); err != nil {
		return err
	}
	hash, err := repo.CommitAll(ctx, "init: Initialize "+opts.name)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized cambio data directory at %s (%s)\n", dir, hash)
	fmt.Fprintf(out, "Administrator: %s\n", admin.Email)
	return nil
}

// Command seed creates the first administrator, or resets an existing one's
// password and elevated flag.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"incubator-platform/internal/config"
	"incubator-platform/internal/identity"
	"incubator-platform/pkg/logger"
	"incubator-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	username := flag.String("username", "admin", "administrator username")
	email := flag.String("email", "admin@embryotech.local", "administrator email")
	password := flag.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "administrator password (default $SEED_ADMIN_PASSWORD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env)

	if *password == "" {
		log.Error("password is required (-password or SEED_ADMIN_PASSWORD)")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := identity.NewPostgresRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	// No cache: the API instances expire their entries on their own TTL.
	id, created, err := seedAdmin(ctx, identity.NewService(repo, nil), *username, *email, *password)
	if err != nil {
		log.Error("seed failed", "username", *username, "err", err)
		os.Exit(1)
	}
	log.Info("administrator ready", "identity_id", id, "username", *username, "created", created)
}

// seedAdmin registers the administrator, or resets password and flag when the username exists.
func seedAdmin(ctx context.Context, svc *identity.Service, username, email, password string) (int64, bool, error) {
	existing, err := svc.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		i, err := svc.Register(ctx, identity.RegisterInput{
			Username: username,
			Email:    email,
			Password: password,
			IsAdmin:  true,
		})
		if err != nil {
			return 0, false, err
		}
		return i.ID, true, nil
	case err != nil:
		return 0, false, err
	}

	if err := svc.SetPassword(ctx, existing.ID, password); err != nil {
		return 0, false, err
	}
	if err := svc.SetAdmin(ctx, existing.ID, true); err != nil {
		return 0, false, err
	}
	return existing.ID, false, nil
}

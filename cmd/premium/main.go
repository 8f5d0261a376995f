package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/adapter/repo"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
)

func main() {
	var (
		idFlag      string
		cancelFlag  bool
		expiresFlag string
	)

	flag.StringVar(&idFlag, "id", "", "LINE user ID to update")
	flag.BoolVar(&cancelFlag, "cancel", false, "revoke premium instead of granting it")
	flag.StringVar(&expiresFlag, "expires", "", "premium expiry date (YYYY-MM-DD, empty for no expiry)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	if userID == "" {
		exitWithError(errors.New("-id is required"))
	}

	var expiresAt *time.Time
	if !cancelFlag && strings.TrimSpace(expiresFlag) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(expiresFlag))
		if err != nil {
			exitWithError(fmt.Errorf("invalid -expires value: %w", err))
		}
		expiresAt = &parsed
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "premium").Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	execCtx, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()

	if cancelFlag {
		if err := users.CancelPremium(execCtx, userID); err != nil {
			exitWithError(fmt.Errorf("failed to revoke premium: %w", err))
		}
		fmt.Printf("Premium revoked for %s\n", userID)
		return
	}

	if err := users.SetPremium(execCtx, userID, expiresAt); err != nil {
		exitWithError(fmt.Errorf("failed to grant premium: %w", err))
	}
	if expiresAt != nil {
		fmt.Printf("Premium granted for %s until %s\n", userID, expiresAt.Format("2006-01-02"))
	} else {
		fmt.Printf("Premium granted for %s with no expiry\n", userID)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

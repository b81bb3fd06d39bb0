package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/infomap/infomap/internal/repository"
)

type output struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	IsAdmin       bool   `json:"is_admin"`
	IsActive      bool   `json:"is_active"`
	MaxDailyQuota int    `json:"max_daily_quota"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", os.Getenv("ADMIN_EMAIL"), "Administrator email")
		quota       = flag.Int("quota", envInt("ADMIN_DAILY_QUOTA", 15), "Administrator daily quota")
		migrate     = flag.Bool("migrate", true, "Apply pending migrations first")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_EMAIL or -email is required")
		os.Exit(1)
	}
	if *quota < 0 {
		fmt.Fprintln(os.Stderr, "quota must not be negative")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if *migrate {
		if _, err := repo.Migrate(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	user, err := repo.UpsertAdmin(ctx, *email, *quota)
	if err != nil {
		fmt.Fprintln(os.Stderr, "upsert admin:", err)
		os.Exit(1)
	}

	out := output{
		ID:            user.ID,
		Email:         user.Email,
		IsAdmin:       user.IsAdmin,
		IsActive:      user.IsActive,
		MaxDailyQuota: user.MaxDailyQuota,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Printf("admin %s ready (quota %d)\n", out.Email, out.MaxDailyQuota)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

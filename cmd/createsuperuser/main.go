// Command createsuperuser creates an active staff superuser.
//
// The password comes from -password, then SUPERUSER_PASSWORD, then the
// first line of stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/recipeapp/recipe-api/internal/config"
	"github.com/recipeapp/recipe-api/internal/logging"
	"github.com/recipeapp/recipe-api/internal/metrics"
	"github.com/recipeapp/recipe-api/internal/repository"
	"github.com/recipeapp/recipe-api/internal/service"
	"github.com/recipeapp/recipe-api/internal/validation"
)

type output struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

func main() {
	var (
		email    = flag.String("email", "", "superuser email (required)")
		name     = flag.String("name", "", "display name")
		password = flag.String("password", os.Getenv("SUPERUSER_PASSWORD"), "password; read from stdin when empty")
		format   = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		fmt.Fprintln(os.Stderr, "-email is required")
		os.Exit(2)
	}
	if *format != "plain" && *format != "json" {
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(2)
	}

	if *password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := readLine(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read password:", err)
			os.Exit(1)
		}
		*password = line
	}

	cfg, err := config.LoadTool()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.Options{MaxConns: 2, MinConns: 1})
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", logging.SanitizeError(err, cfg.DatabaseURL))
		os.Exit(1)
	}
	defer repo.Close()

	users := service.NewUserService(repo, nil, metrics.NewNoop(), logger)
	user, err := users.CreateSuperuser(ctx, *email, *password, service.UserFields{Name: *name})
	if err != nil {
		if fields, ok := validation.As(err); ok {
			for field, msgs := range fields {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, strings.Join(msgs, " "))
			}
		} else {
			fmt.Fprintln(os.Stderr, "create superuser:", err)
		}
		os.Exit(1)
	}

	out := output{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Printf("Superuser %s created (%s)\n", out.Email, out.ID)
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

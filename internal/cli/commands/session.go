package commands

import (
	"CardVault/internal/config"
	"context"
	"fmt"
)

// loginCmd открывает сессию по паролю, чтобы не передавать его в каждом запросе.
type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Open an admin session with the shared password" }
func (loginCmd) Usage() string       { return "login" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	if err := newClient(cfg).Login(ctx); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged in.")
	return nil
}

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Close the admin session" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	c := newClient(cfg)
	// сервер мог быть недоступен; локальный токен удаляем в любом случае
	srvErr := c.Delete(ctx, "/api/session", nil)
	if err := c.Tokens.Clear(); err != nil {
		return err
	}
	if srvErr != nil {
		fmt.Fprintf(Out, "Local session cleared, server: %v\n", srvErr)
		return nil
	}
	fmt.Fprintln(Out, "Logged out.")
	return nil
}

func init() {
	RegisterCmd(loginCmd{})
	RegisterCmd(logoutCmd{})
}

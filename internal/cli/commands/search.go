package commands

import (
	"CardVault/internal/config"
	"CardVault/internal/model"
	"context"
	"net/url"
	"strings"
)

// searchCmd — точный поиск по названиям (без учёта регистра).
type searchCmd struct{}

func (searchCmd) Name() string        { return "search" }
func (searchCmd) Description() string { return "Exact name search, one or more names" }
func (searchCmd) Usage() string       { return "search <name>... [-f <file>]" }

func (searchCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	terms, file, err := splitFileFlag(args)
	if err != nil || len(terms) == 0 {
		return ErrUsage
	}
	req := struct {
		Terms    []string `json:"terms"`
		Filename string   `json:"filename,omitempty"`
	}{Terms: terms, Filename: strings.TrimSuffix(file, ".csv")}

	var rows []model.Row
	if err := newClient(cfg).PostJSON(ctx, "/search", req, &rows); err != nil {
		return err
	}
	return printRows(Out, rows)
}

// findCmd — поиск по подстроке названия.
type findCmd struct{}

func (findCmd) Name() string        { return "find" }
func (findCmd) Description() string { return "Substring name search" }
func (findCmd) Usage() string       { return "find <text> [-f <file>]" }

func (findCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	rest, file, err := splitFileFlag(args)
	if err != nil || len(rest) == 0 {
		return ErrUsage
	}
	q := url.Values{}
	q.Set("q", strings.Join(rest, " "))
	if file != "" {
		q.Set("filename", strings.TrimSuffix(file, ".csv"))
	}

	var rows []model.Row
	if err := newClient(cfg).GetJSON(ctx, "/search?"+q.Encode(), &rows); err != nil {
		return err
	}
	return printRows(Out, rows)
}

func init() {
	RegisterCmd(searchCmd{})
	RegisterCmd(findCmd{})
}

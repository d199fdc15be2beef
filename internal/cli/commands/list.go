package commands

import (
	"CardVault/internal/config"
	"CardVault/internal/model"
	"context"
)

// listCmd — самые дорогие карты каждого файла.
type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "Top cards by purchase price for every inventory" }
func (listCmd) Usage() string       { return "list" }

func (listCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var rows []model.Row
	if err := newClient(cfg).GetJSON(ctx, "/files", &rows); err != nil {
		return err
	}
	return printRows(Out, rows)
}

func init() { RegisterCmd(listCmd{}) }

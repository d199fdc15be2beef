package commands

import (
	"CardVault/internal/config"
	"context"
	"fmt"
	"net/url"
	"strings"
)

type uploadCmd struct{}

func (uploadCmd) Name() string        { return "upload" }
func (uploadCmd) Description() string { return "Upload an inventory CSV as <username>.csv" }
func (uploadCmd) Usage() string       { return "upload <username> <file.csv>" }

func (uploadCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 2 || strings.TrimSpace(args[0]) == "" {
		return ErrUsage
	}
	var resp struct {
		Message  string `json:"message"`
		Filename string `json:"filename"`
		JobID    string `json:"job_id"`
	}
	if err := newClient(cfg).Upload(ctx, args[0], args[1], &resp); err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s %s\n", resp.Message, resp.Filename)
	if resp.JobID != "" {
		fmt.Fprintf(Out, "Price update job: %s\n", resp.JobID)
	}
	return nil
}

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Delete an inventory file" }
func (deleteCmd) Usage() string       { return "delete <filename>" }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return ErrUsage
	}
	name := args[0]
	if !strings.HasSuffix(name, ".csv") {
		name += ".csv"
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := newClient(cfg).Delete(ctx, "/files/"+url.PathEscape(name), &resp); err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s %s\n", resp.Message, name)
	return nil
}

func init() {
	RegisterCmd(uploadCmd{})
	RegisterCmd(deleteCmd{})
}

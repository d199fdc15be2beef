package commands

import (
	"CardVault/internal/config"
	"CardVault/internal/model"
	"context"
	"fmt"
	"net/url"
	"time"
)

type statusView struct {
	Catalog struct {
		Present   bool       `json:"present"`
		Path      string     `json:"path"`
		Size      int64      `json:"size"`
		UpdatedAt *time.Time `json:"updated_at"`
	} `json:"catalog"`
	LastRefresh *model.RefreshRun `json:"last_refresh"`
	LastSuccess *model.RefreshRun `json:"last_success"`
	PendingJobs int               `json:"pending_jobs"`
	FailedJobs  int64             `json:"failed_jobs"`
	Currency    string            `json:"currency"`
	Schedule    string            `json:"schedule"`
	TimeZone    string            `json:"time_zone"`
}

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Show price catalog and queue status" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var st statusView
	if err := newClient(cfg).GetJSON(ctx, "/api/status", &st); err != nil {
		return err
	}
	if st.Catalog.Present && st.Catalog.UpdatedAt != nil {
		fmt.Fprintf(Out, "Catalog: %s (%d bytes, updated %s)\n", st.Catalog.Path, st.Catalog.Size, st.Catalog.UpdatedAt.Format(time.RFC3339))
	} else {
		fmt.Fprintln(Out, "Catalog: missing")
	}
	fmt.Fprintf(Out, "Currency: %s\nSchedule: %s (%s)\nPending jobs: %d, failed jobs: %d\n",
		st.Currency, st.Schedule, st.TimeZone, st.PendingJobs, st.FailedJobs)
	if r := st.LastRefresh; r != nil {
		fmt.Fprintf(Out, "Last refresh: #%d %s (%s), files %d, failed %d, updated rows %d\n",
			r.ID, r.Status, r.Trigger, r.Files, r.FailedFiles, r.Updated)
		if r.Error != "" {
			fmt.Fprintf(Out, "  error: %s\n", r.Error)
		}
	}
	if r := st.LastSuccess; r != nil && r.FinishedAt != nil && (st.LastRefresh == nil || r.ID != st.LastRefresh.ID) {
		fmt.Fprintf(Out, "Last successful refresh: #%d at %s\n", r.ID, r.FinishedAt.Format(time.RFC3339))
	}
	return nil
}

// refreshCmd запускает обновление справочника цен на сервере.
type refreshCmd struct{}

func (refreshCmd) Name() string        { return "refresh" }
func (refreshCmd) Description() string { return "Download the price catalog and update all files" }
func (refreshCmd) Usage() string       { return "refresh" }

func (refreshCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := newClient(cfg).PostJSON(ctx, "/api/catalog/refresh", nil, &resp); err != nil {
		return err
	}
	fmt.Fprintln(Out, resp.Message)
	return nil
}

type jobCmd struct{}

func (jobCmd) Name() string        { return "job" }
func (jobCmd) Description() string { return "Show the price update job of an upload" }
func (jobCmd) Usage() string       { return "job <id>" }

func (jobCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	var job model.EnrichJob
	if err := newClient(cfg).GetJSON(ctx, "/api/jobs/"+url.PathEscape(args[0]), &job); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Job %s: %s %s, updated rows %d\n", job.ID, job.FileName, job.Status, job.Updated)
	if job.Error != "" {
		fmt.Fprintf(Out, "  error: %s\n", job.Error)
	}
	return nil
}

func init() {
	RegisterCmd(statusCmd{})
	RegisterCmd(refreshCmd{})
	RegisterCmd(jobCmd{})
}

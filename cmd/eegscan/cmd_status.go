package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eeg/eeg/sink"
)

var statusFlags struct {
	output string
	limit  int
}

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show a stored job, or list recent jobs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVarP(&statusFlags.output, "output", "o", formatTable, "Output format: table, json or yaml")
	f.IntVar(&statusFlags.limit, "limit", 20, "Number of jobs to list")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := checkFormat(statusFlags.output); err != nil {
		return err
	}
	ctx := cmd.Context()
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	var recs []sink.Record
	if len(args) == 1 {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("job id: %w", err)
		}
		rec, err := b.store.Get(ctx, id)
		if errors.Is(err, sink.ErrNotFound) {
			return fmt.Errorf("no job %s in %s sink", id, cfg.Sink.Kind)
		}
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	} else {
		if b.sqlite == nil {
			return fmt.Errorf("listing jobs needs the sqlite sink; pass a job id")
		}
		if recs, err = b.sqlite.List(ctx, statusFlags.limit); err != nil {
			return err
		}
	}

	var v any = recs
	if len(args) == 1 {
		v = recs[0]
	}
	return emit(cmd.OutOrStdout(), statusFlags.output, v, func() string {
		return statusTable(recs)
	})
}

func statusTable(recs []sink.Record) string {
	t := newTable("Job", "State", "Updated", "Channels", "Duration s", "Risk", "Detail")
	alignRight(t, 4, 5, 6)
	for _, r := range recs {
		channels, duration := "-", "-"
		if r.Metadata != nil {
			channels = fmt.Sprint(r.Metadata.ChannelCount)
			duration = fmt.Sprintf("%.1f", r.Metadata.DurationSeconds)
		}
		risk, detail := "-", r.ErrorMessage
		if r.Result != nil {
			risk = fmt.Sprintf("%.0f%%", 100*r.Result.SeizureProbability)
			detail, _, _ = strings.Cut(r.Result.Summary, ";")
		}
		t.AppendRow([]any{r.ID, r.State, r.UpdatedAt.Format("2006-01-02 15:04:05"), channels, duration, risk, detail})
	}
	return t.Render()
}

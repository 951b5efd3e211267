package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/simili-bot/issuebot/internal/core/config"
	"github.com/simili-bot/issuebot/internal/domain"
	"github.com/simili-bot/issuebot/internal/tui"
)

var jobsWatchInterval time.Duration

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect Job Engine jobs",
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch <job-id>",
	Short: "Watch a job's progress until it completes",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsWatch,
}

func init() {
	RootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsWatchCmd)
	jobsWatchCmd.Flags().DurationVar(&jobsWatchInterval, "interval", 2*time.Second, "poll interval")
}

func runJobsWatch(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("job id must be an integer, got %q", args[0])
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.ConnectionString)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	statusChan := make(chan tui.JobStatusMsg)
	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()

	go pollJob(pollCtx, pool, id, jobsWatchInterval, statusChan)

	model := tui.NewJobWatchModel(id, statusChan)
	_, err = tea.NewProgram(model).Run()
	return err
}

// pollJob polls the jobs table for id every interval until the row
// disappears (TickDone) or the context is cancelled, sending one
// tui.JobStatusMsg per poll.
func pollJob(ctx context.Context, pool *pgxpool.Pool, id int64, interval time.Duration, out chan<- tui.JobStatusMsg) {
	defer close(out)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		msg := fetchJobStatus(ctx, pool, id)
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
		if msg.Done || msg.Err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func fetchJobStatus(ctx context.Context, pool *pgxpool.Pool, id int64) tui.JobStatusMsg {
	var jobType domain.JobType
	var data []byte
	err := pool.QueryRow(ctx, `SELECT job_type, data FROM jobs WHERE id = $1`, id).Scan(&jobType, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tui.JobStatusMsg{Done: true}
		}
		return tui.JobStatusMsg{Err: err}
	}

	return tui.JobStatusMsg{
		Found:    true,
		JobType:  string(jobType),
		Progress: describeProgress(jobType, data),
	}
}

func describeProgress(jobType domain.JobType, data []byte) string {
	switch jobType {
	case domain.JobIssueIndexation:
		var p domain.IndexationProgress
		if json.Unmarshal(data, &p) == nil {
			return fmt.Sprintf("pages_done=%d next_cursor=%q", p.PagesDone, p.NextCursor)
		}
	case domain.JobEmbeddingsRegeneration:
		var p domain.RegenerationProgress
		if json.Unmarshal(data, &p) == nil {
			return fmt.Sprintf("processed=%d last_thread_id=%d", p.Processed, p.LastThreadID)
		}
	}
	return string(data)
}

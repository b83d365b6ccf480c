package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/caretrack/licensure/internal/bootstrap"
	"github.com/caretrack/licensure/internal/data"
	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/util"
)

const defaultRunTimeout = 10 * time.Minute

type verifyRunOptions struct {
	Timeout   time.Duration
	LicenseID string
}

type listRunsOptions struct {
	Timeout time.Duration
	Limit   int
	Offset  int
}

func runVerifyPass(cmdCtx *commandContext, args []string) error {
	opts, err := parseVerifyRunFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, opts.Timeout, infraOptions{WithRedis: true}, func(ctx context.Context, inf *infra) error {
		services := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config:      &cmdCtx.Config,
			DB:          inf.DB,
			RedisClient: inf.Redis,
			Logger:      cmdCtx.Logger,
		})
		if services.VerifyJob == nil {
			return errors.New("verification job service unavailable")
		}

		started := time.Now()
		var summary *model.RunSummary
		var runErr error
		if opts.LicenseID != "" {
			cmdCtx.Logger.Info("running verification pass for single license", "license_id", opts.LicenseID)
			summary, runErr = services.VerifyJob.RunForLicense(ctx, opts.LicenseID)
		} else {
			cmdCtx.Logger.Info("running batch verification pass")
			summary, runErr = services.VerifyJob.Run(ctx)
		}
		if runErr != nil {
			return fmt.Errorf("verification run: %w", runErr)
		}

		return printRunSummary(os.Stdout, summary, time.Since(started))
	})
}

func runListRuns(cmdCtx *commandContext, args []string) error {
	opts, err := parseListRunsFlags(args)
	if err != nil {
		return err
	}

	return withInfra(cmdCtx, opts.Timeout, infraOptions{}, func(ctx context.Context, inf *infra) error {
		runs, listErr := data.NewJobRunRepo(inf.DB).List(ctx, opts.Limit, opts.Offset)
		if listErr != nil {
			return fmt.Errorf("list runs: %w", listErr)
		}
		return printRunList(os.Stdout, runs)
	})
}

func parseVerifyRunFlags(args []string) (verifyRunOptions, error) {
	fs := flag.NewFlagSet("verify-run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := verifyRunOptions{
		Timeout: defaultRunTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultRunTimeout,
		"Maximum duration to wait for the verification pass to complete",
	)
	fs.StringVar(&opts.LicenseID, "license", "", "Limit the pass to a single license ID")

	if err := fs.Parse(args); err != nil {
		return verifyRunOptions{}, err
	}

	if opts.Timeout <= 0 {
		return verifyRunOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseListRunsFlags(args []string) (listRunsOptions, error) {
	fs := flag.NewFlagSet("list-runs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listRunsOptions{
		Timeout: defaultMigrationTimeout,
		Limit:   20,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for the listing to complete",
	)
	fs.IntVar(&opts.Limit, "limit", 20, "Maximum number of runs to list")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of runs to skip")

	if err := fs.Parse(args); err != nil {
		return listRunsOptions{}, err
	}

	if opts.Timeout <= 0 {
		return listRunsOptions{}, errors.New("--timeout must be greater than zero")
	}
	if opts.Limit <= 0 {
		return listRunsOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listRunsOptions{}, errors.New("--offset must not be negative")
	}

	return opts, nil
}

func printRunSummary(w io.Writer, summary *model.RunSummary, elapsed time.Duration) error {
	if summary == nil {
		return writeln(w, "no summary produced")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "run id:\t%s\n", summary.JobRunID); err != nil {
		return err
	}
	if err := writef(tw, "processed:\t%d\n", summary.Processed); err != nil {
		return err
	}
	if err := writef(tw, "auto-verified:\t%d\n", summary.AutoVerified); err != nil {
		return err
	}
	if err := writef(tw, "tasks created:\t%d\n", summary.TasksCreated); err != nil {
		return err
	}
	if err := writef(tw, "errors:\t%d\n", summary.Errors); err != nil {
		return err
	}
	if err := writef(tw, "elapsed:\t%s\n", util.FormatProcessingDuration(elapsed)); err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush summary output: %w", err)
	}

	if summary.Errors > 0 {
		if err := writef(w, "\n%d lookup error(s) occurred", summary.Errors); err != nil {
			return err
		}
		if len(summary.ErrorSamples) > 0 {
			if err := writeln(w, "; samples:"); err != nil {
				return err
			}
			for _, sample := range summary.ErrorSamples {
				if err := writef(w, "  - %s\n", sample); err != nil {
					return err
				}
			}
		} else if err := writeln(w); err != nil {
			return err
		}
	}
	return nil
}

func printRunList(w io.Writer, runs []*model.JobRun) error {
	if len(runs) == 0 {
		return writeln(w, "no runs found")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tSTATUS\tPROCESSED\tAUTO\tTASKS\tERRORS\tSTARTED\tDURATION"); err != nil {
		return err
	}
	for _, run := range runs {
		duration := "—"
		if run.CompletedAt != nil {
			duration = util.FormatProcessingDuration(run.CompletedAt.Sub(run.StartedAt))
		}
		if err := writef(
			tw,
			"%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Status,
			run.Processed,
			run.AutoVerified,
			run.TasksCreated,
			run.Errors,
			run.StartedAt.Format(time.RFC3339),
			duration,
		); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush run list output: %w", err)
	}
	return nil
}

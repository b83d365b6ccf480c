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

	"github.com/caretrack/licensure/internal/data"
	"github.com/caretrack/licensure/internal/domain/model"
	"github.com/caretrack/licensure/internal/sources"
)

type listTasksOptions struct {
	Timeout   time.Duration
	LicenseID string
	Status    string
	Assignee  string
	Limit     int
	Offset    int
}

func runListTasks(cmdCtx *commandContext, args []string) error {
	opts, err := parseListTasksFlags(args)
	if err != nil {
		return err
	}

	listOpts := model.TaskListOptions{
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}
	if opts.LicenseID != "" {
		listOpts.LicenseID = &opts.LicenseID
	}
	if opts.Assignee != "" {
		listOpts.Assignee = &opts.Assignee
	}
	if opts.Status != "" {
		var status model.TaskStatus
		if unmarshalErr := status.UnmarshalText([]byte(opts.Status)); unmarshalErr != nil {
			return unmarshalErr
		}
		listOpts.Status = &status
	}

	return withInfra(cmdCtx, opts.Timeout, infraOptions{}, func(ctx context.Context, inf *infra) error {
		tasks, listErr := data.NewTaskRepo(inf.DB).List(ctx, listOpts)
		if listErr != nil {
			return fmt.Errorf("list tasks: %w", listErr)
		}
		return printTaskList(os.Stdout, tasks)
	})
}

func runListJurisdictions(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-jurisdictions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	registry := sources.NewRegistry()
	return printJurisdictions(os.Stdout, registry)
}

func parseListTasksFlags(args []string) (listTasksOptions, error) {
	fs := flag.NewFlagSet("list-tasks", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listTasksOptions{
		Timeout: defaultMigrationTimeout,
		Limit:   50,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for the listing to complete",
	)
	fs.StringVar(&opts.LicenseID, "license", "", "Filter tasks by license ID")
	fs.StringVar(&opts.Status, "status", "", "Filter tasks by status (pending, in_progress, completed, skipped)")
	fs.StringVar(&opts.Assignee, "assignee", "", "Filter tasks by assignee")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of tasks to list")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of tasks to skip")

	if err := fs.Parse(args); err != nil {
		return listTasksOptions{}, err
	}

	if opts.Timeout <= 0 {
		return listTasksOptions{}, errors.New("--timeout must be greater than zero")
	}
	if opts.Limit <= 0 {
		return listTasksOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listTasksOptions{}, errors.New("--offset must not be negative")
	}

	return opts, nil
}

func printTaskList(w io.Writer, tasks []*model.VerificationTask) error {
	if len(tasks) == 0 {
		return writeln(w, "no tasks found")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "ID\tLICENSE\tSTATUS\tPRIORITY\tDUE\tASSIGNEE\tREASON"); err != nil {
		return err
	}
	for _, task := range tasks {
		assignee := "—"
		if task.Assignee != nil && *task.Assignee != "" {
			assignee = *task.Assignee
		}
		if err := writef(
			tw,
			"%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			task.ID,
			task.LicenseID,
			task.Status,
			task.Priority,
			task.DueDate.Format("2006-01-02"),
			assignee,
			task.Reason,
		); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush task list output: %w", err)
	}
	return nil
}

func printJurisdictions(w io.Writer, registry *sources.Registry) error {
	codes := registry.ListAutomated()
	if len(codes) == 0 {
		return writeln(w, "no automated jurisdictions configured")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "JURISDICTION\tKIND\tSOURCE"); err != nil {
		return err
	}
	for _, code := range codes {
		capability := registry.CapabilityFor(code)
		if capability.Spec == nil {
			continue
		}
		if err := writef(tw, "%s\t%s\t%s\n", code, capability.Spec.Kind, capability.Spec.SourceID); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush jurisdiction list output: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/livinlefevreloca/cronnext/internal/config"
	"github.com/livinlefevreloca/cronnext/internal/db"
	"github.com/livinlefevreloca/cronnext/lib/cron"
)

// openStore loads and validates the configuration and opens its store
func openStore(ctx context.Context, configPath string) (*config.Config, *db.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := db.OpenWithConfig(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, store, nil
}

func runAdd(args []string, stdout io.Writer) error {
	var configPath, name, expr, handler string
	flags := newFlagSet("add", stdout, &configPath)
	flags.StringVar(&name, "name", "", "unique schedule name (required)")
	flags.StringVar(&expr, "expr", "", "five-field cron expression (required)")
	flags.StringVar(&handler, "handler", logHandlerName, "name of the handler invoked on each fire")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if name == "" || expr == "" {
		return errors.New("--name and --expr are required")
	}

	schedule, err := cron.Parse(expr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, store, err := openStore(ctx, configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := db.NewRecord(name, expr, handler, schedule)
	if err := store.CreateSchedule(ctx, rec); err != nil {
		if db.IsDuplicate(err) {
			return fmt.Errorf("schedule %q already exists", name)
		}
		return fmt.Errorf("create schedule: %w", err)
	}

	fmt.Fprintln(stdout, rec.ID)
	return nil
}

// listedSchedule is the YAML shape of one list entry
type listedSchedule struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Expression  string `yaml:"expression"`
	Handler     string `yaml:"handler"`
	Status      string `yaml:"status"`
	NextFireAt  string `yaml:"next_fire_at,omitempty"`
	LastFiredAt string `yaml:"last_fired_at,omitempty"`
}

func runList(args []string, stdout io.Writer) error {
	var configPath, output string
	flags := newFlagSet("list", stdout, &configPath)
	flags.StringVarP(&output, "output", "o", "table", "output format: table or yaml")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if output != "table" && output != "yaml" {
		return fmt.Errorf("unknown output format %q", output)
	}

	ctx := context.Background()
	_, store, err := openStore(ctx, configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}

	listed := make([]listedSchedule, len(records))
	for i, r := range records {
		listed[i] = listedSchedule{
			ID:          r.ID,
			Name:        r.Name,
			Expression:  r.Expression,
			Handler:     r.Handler,
			Status:      r.Status,
			NextFireAt:  formatOptional(r.NextFireAt),
			LastFiredAt: formatOptional(r.LastFiredAt),
		}
	}

	if output == "yaml" {
		return yaml.NewEncoder(stdout).Encode(listed)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEXPRESSION\tHANDLER\tSTATUS\tNEXT FIRE")
	for _, l := range listed {
		next := l.NextFireAt
		if next == "" {
			next = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.Name, l.Expression, l.Handler, l.Status, next)
	}
	return tw.Flush()
}

func runRemove(args []string, stdout io.Writer) error {
	var configPath string
	flags := newFlagSet("remove", stdout, &configPath)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.New("remove takes exactly one schedule id or name")
	}
	ref := flags.Arg(0)

	ctx := context.Background()
	_, store, err := openStore(ctx, configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetSchedule(ctx, ref)
	if db.IsNotFound(err) {
		rec, err = store.GetScheduleByName(ctx, ref)
	}
	if err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("no schedule with id or name %q", ref)
		}
		return err
	}

	if err := store.DeleteSchedule(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}

	fmt.Fprintf(stdout, "removed %s (%s)\n", rec.Name, rec.ID)
	return nil
}

func formatOptional(seconds *int64) string {
	if seconds == nil {
		return ""
	}
	return time.Unix(*seconds, 0).UTC().Format(time.RFC3339)
}

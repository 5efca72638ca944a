package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"behaviorkit/adapters/chart"
	"behaviorkit/adapters/eventlog"
	"behaviorkit/adapters/stats/engine"
	"behaviorkit/adapters/tabular"
	"behaviorkit/app"
	"behaviorkit/domain/dataset"
	"behaviorkit/domain/stats"
	"behaviorkit/internal/config"
	"behaviorkit/internal/logger"
	"behaviorkit/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// .env is optional; env vars win either way
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "behaviorkit",
		Short: "Statistical annotation and plotting for behavioural experiment data",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newAnnotateCmd(),
		newEventsCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewWith(func(zc *zap.Config) {
		level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
		if err == nil {
			zc.Level = level
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run [run-spec.yaml]",
		Aliases: []string{"plot"},
		Short:   "Execute a full run spec: load, annotate, plot, report",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			spec, err := app.LoadRunSpec(args[0])
			if err != nil {
				return err
			}

			theme, err := chart.ThemeForName(cfg.Plot.Theme)
			if err != nil {
				return err
			}
			pipeline := app.NewPipeline(theme, log)
			res, err := pipeline.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}

			for _, path := range res.PlotOutputs {
				fmt.Printf("wrote %s\n", path)
			}
			if res.Results != nil {
				fmt.Printf("run %s: %d comparisons\n", res.Results.RunID, len(res.Results.Comparisons))
			}
			return nil
		},
	}
	return cmd
}

func newAnnotateCmd() *cobra.Command {
	var (
		subjectCol   string
		groupCol     string
		valueCol     string
		conditions   []string
		measurements []string
		test         string
		mode         string
		correction   string
		alpha        float64
		format       string
	)

	cmd := &cobra.Command{
		Use:   "annotate [dataset.csv]",
		Short: "Run one statistical annotation over a dataset file",
		Long: `Annotate a dataset with pairwise or matrix statistical comparisons.

Example: behaviorkit annotate swim.csv --group treatment --value immobility --test welch_ttest --correction fdr_bh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			schema := tabular.Schema{
				Subject:      subjectCol,
				Conditions:   conditions,
				Measurements: measurements,
			}
			if groupCol != "" && !contains(conditions, groupCol) {
				schema.Conditions = append(schema.Conditions, groupCol)
			}
			if valueCol != "" && !contains(measurements, valueCol) {
				schema.Measurements = append(schema.Measurements, valueCol)
			}

			reader := tabular.NewReader(args[0], schema, log)
			ds, err := reader.ReadDataset(cmd.Context())
			if err != nil {
				return err
			}

			parsedMode, err := stats.ParseMode(mode)
			if err != nil {
				return err
			}
			annotator := engine.New(log)
			rs, err := annotator.Annotate(ds, engine.Config{
				Test:        test,
				Mode:        parsedMode,
				GroupColumn: groupCol,
				ValueColumn: valueCol,
				Correction:  stats.Correction(correction),
				Alpha:       alpha,
			})
			if err != nil {
				return err
			}

			switch format {
			case "markdown":
				fmt.Print(report.Markdown(rs))
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rs)
			default:
				return fmt.Errorf("unknown output format %q (markdown, json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subjectCol, "subject", "subject", "Subject column name")
	cmd.Flags().StringVar(&groupCol, "group", "", "Condition column defining groups (pairs mode)")
	cmd.Flags().StringVar(&valueCol, "value", "", "Measurement column to compare (pairs mode)")
	cmd.Flags().StringSliceVar(&conditions, "conditions", nil, "Additional condition columns")
	cmd.Flags().StringSliceVar(&measurements, "measurements", nil, "Measurement columns (matrix mode uses all)")
	cmd.Flags().StringVar(&test, "test", "welch_ttest", "Statistical test")
	cmd.Flags().StringVar(&mode, "mode", "pairs", "Comparison mode: pairs or matrix")
	cmd.Flags().StringVar(&correction, "correction", "none", "Multiple-comparison correction")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Family-wise significance level")
	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown or json")

	return cmd
}

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Record and inspect manually logged experiment events",
	}
	cmd.AddCommand(newEventsLogCmd(), newEventsListCmd(), newEventsTableCmd())
	return cmd
}

func newEventsLogCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "log [subject] [label] [value]",
		Short: "Append one event, timestamped now",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			value := 0.0
			if len(args) == 3 {
				value, err = strconv.ParseFloat(args[2], 64)
				if err != nil {
					return fmt.Errorf("value %q is not numeric", args[2])
				}
			}

			store, err := eventlog.Open(dbPath, log)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Append(cmd.Context(), dataset.Event{
				At:      time.Now().UTC(),
				Subject: args[0],
				Label:   args[1],
				Value:   value,
			})
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "events.db", "Event log database path")
	return cmd
}

func newEventsListCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged events in timestamp order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := eventlog.Open(dbPath, log)
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.ReadEvents(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range events.Events {
				line := fmt.Sprintf("%s  %s  %s", e.At.Format(time.RFC3339), e.Subject, e.Label)
				if e.Value != 0 {
					line += fmt.Sprintf("  %g", e.Value)
				}
				fmt.Println(line)
			}
			fmt.Printf("%d events over %s\n", len(events.Events), events.Span())
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "events.db", "Event log database path")
	return cmd
}

func newEventsTableCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the aggregated per-subject event table as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			store, err := eventlog.Open(dbPath, log)
			if err != nil {
				return err
			}
			defer store.Close()

			ds, err := store.ReadDataset(cmd.Context())
			if err != nil {
				return err
			}

			w := csv.NewWriter(os.Stdout)
			header := make([]string, 0)
			for _, col := range ds.Columns() {
				header = append(header, col.Name)
			}
			if err := w.Write(header); err != nil {
				return err
			}
			subjects := ds.Subjects()
			events, _ := ds.Labels("event")
			counts, _ := ds.Values("count")
			rates, _ := ds.Values("rate_per_min")
			totals, _ := ds.Values("total_value")
			for i := 0; i < ds.Len(); i++ {
				row := []string{
					subjects[i],
					events[i],
					strconv.FormatFloat(counts[i], 'g', -1, 64),
					strconv.FormatFloat(rates[i], 'g', -1, 64),
					strconv.FormatFloat(totals[i], 'g', -1, 64),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "events.db", "Event log database path")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the behaviorkit version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("behaviorkit", version)
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"mrforecast/adapters/hyperfile"
	"mrforecast/app"
	"mrforecast/internal/config"
	"mrforecast/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// sharedFlags are the options every forecast command accepts
type sharedFlags struct {
	hyperFile  string
	unit       string
	file       string
	sampleSize int
	classify   bool
	seed       uint64
	summary    bool
}

func main() {
	// .env is optional for the CLI
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "mrforecast",
		Short: "Forecast planetary radius from mass and mass from radius",
		Long: `Forecast planetary radius from mass (forward) and mass from radius (inverse)
with a probabilistic piecewise-linear mass-radius relation.

Configuration is read from the environment (and .env), see HYPER_FILE,
HYPER_SOURCE, GRID_SIZE, GRID_POLICY, WORKERS and SEED.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newForwardCmd(),
		newInverseCmd(),
		newForwardStatsCmd(),
		newInverseStatsCmd(),
		newTableCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (f *sharedFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.hyperFile, "hyper-file", "", "Hyperparameter table (overrides HYPER_FILE)")
	cmd.Flags().StringVar(&f.unit, "unit", "earth", "Unit system: earth|jupiter|sun")
	cmd.Flags().IntVar(&f.sampleSize, "sample-size", 0, "Number of samples (0 keeps the input size, or SAMPLE_SIZE for stats commands)")
	cmd.Flags().BoolVar(&f.classify, "classify", false, "Label each sample with its population")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Random seed for reproducible output (default: SEED or clock)")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Print only the summary statistics")
}

func (f *sharedFlags) seedPtr(cmd *cobra.Command) *uint64 {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	seed := f.seed
	return &seed
}

func newForwardCmd() *cobra.Command {
	var flags sharedFlags

	cmd := &cobra.Command{
		Use:   "forward [mass...]",
		Short: "Draw radii given mass samples",
		Long: `Draw one radius per mass sample (or --sample-size resampled masses).

Example: mrforecast forward 1 1.1 0.9 --unit earth --classify
         mrforecast forward --file mass_posterior.txt --unit jupiter --sample-size 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readValues(args, flags.file)
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), flags.hyperFile)
			if err != nil {
				return err
			}
			result, err := svc.Forward(cmd.Context(), app.ForwardRequest{
				Values:     values,
				Unit:       flags.unit,
				SampleSize: flags.sampleSize,
				Classify:   flags.classify,
				Seed:       flags.seedPtr(cmd),
			})
			if err != nil {
				return err
			}
			return printForecast(result, flags.summary)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.file, "file", "", "Read mass samples from a file (whitespace or comma separated)")
	return cmd
}

func newInverseCmd() *cobra.Command {
	var flags sharedFlags
	var gridSize int

	cmd := &cobra.Command{
		Use:   "inverse [radius...]",
		Short: "Draw masses given radius samples",
		Long: `Draw one mass per radius sample by likelihood-weighted sampling over a
log-mass grid. Larger grids are more accurate and slower.

Example: mrforecast inverse 1 1.05 --grid-size 2000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readValues(args, flags.file)
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), flags.hyperFile)
			if err != nil {
				return err
			}
			result, err := svc.Inverse(cmd.Context(), app.InverseRequest{
				Values:     values,
				Unit:       flags.unit,
				SampleSize: flags.sampleSize,
				GridSize:   gridSize,
				Classify:   flags.classify,
				Seed:       flags.seedPtr(cmd),
			})
			if err != nil {
				return err
			}
			return printForecast(result, flags.summary)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.file, "file", "", "Read radius samples from a file (whitespace or comma separated)")
	cmd.Flags().IntVar(&gridSize, "grid-size", 0, "Inverse grid points (default: GRID_SIZE)")
	return cmd
}

func newForwardStatsCmd() *cobra.Command {
	var flags sharedFlags

	cmd := &cobra.Command{
		Use:   "forward-stats [mean] [std]",
		Short: "Draw radii given a mass mean and standard deviation",
		Long: `Assume a normal mass distribution truncated to the model's mass range,
draw --sample-size masses from it and forecast their radii.

Example: mrforecast forward-stats 5 0.5 --sample-size 1000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mean, std, err := parseStats(args)
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), flags.hyperFile)
			if err != nil {
				return err
			}
			result, err := svc.ForwardStats(cmd.Context(), app.StatsRequest{
				Mean:       mean,
				Std:        std,
				Unit:       flags.unit,
				SampleSize: flags.sampleSize,
				Classify:   flags.classify,
				Seed:       flags.seedPtr(cmd),
			})
			if err != nil {
				return err
			}
			return printForecast(result, flags.summary)
		},
	}

	flags.register(cmd)
	return cmd
}

func newInverseStatsCmd() *cobra.Command {
	var flags sharedFlags
	var gridSize int

	cmd := &cobra.Command{
		Use:   "inverse-stats [mean] [std]",
		Short: "Draw masses given a radius mean and standard deviation",
		Long: `Assume a normal radius distribution truncated to positive values,
draw --sample-size radii from it and forecast their masses.

Example: mrforecast inverse-stats 1.2 0.1 --unit earth --classify`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mean, std, err := parseStats(args)
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), flags.hyperFile)
			if err != nil {
				return err
			}
			result, err := svc.InverseStats(cmd.Context(), app.StatsRequest{
				Mean:       mean,
				Std:        std,
				Unit:       flags.unit,
				SampleSize: flags.sampleSize,
				GridSize:   gridSize,
				Classify:   flags.classify,
				Seed:       flags.seedPtr(cmd),
			})
			if err != nil {
				return err
			}
			return printForecast(result, flags.summary)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&gridSize, "grid-size", 0, "Inverse grid points (default: GRID_SIZE)")
	return cmd
}

func newTableCmd() *cobra.Command {
	var hyperFile string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Inspect or export the hyperparameter table",
	}
	cmd.PersistentFlags().StringVar(&hyperFile, "hyper-file", "", "Hyperparameter table (overrides HYPER_FILE)")

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the table's shape and fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), hyperFile)
			if err != nil {
				return err
			}
			table := svc.Table()
			return printJSON(map[string]interface{}{
				"n_pop":       table.NPop(),
				"rows":        table.Len(),
				"columns":     hyperfile.Header(table.Layout()),
				"fingerprint": table.Fingerprint().String(),
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export [path]",
		Short: "Write the table as text, CSV or XLSX (by extension)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), hyperFile)
			if err != nil {
				return err
			}
			if err := hyperfile.Export(args[0], svc.Table()); err != nil {
				return err
			}
			log.Printf("[CLI] Exported %d draws to %s", svc.Table().Len(), args[0])
			return nil
		},
	})

	return cmd
}

// buildService loads configuration and the table the way the server does
func buildService(ctx context.Context, hyperFile string) (*app.ForecastService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if hyperFile != "" {
		cfg.Hyper.Source = config.SourceFile
		cfg.Hyper.File = hyperFile
	}

	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.Forecasts, nil
}

func parseStats(args []string) (mean, std float64, err error) {
	if mean, err = strconv.ParseFloat(args[0], 64); err != nil {
		return 0, 0, fmt.Errorf("invalid mean %q: %w", args[0], err)
	}
	if std, err = strconv.ParseFloat(args[1], 64); err != nil {
		return 0, 0, fmt.Errorf("invalid std %q: %w", args[1], err)
	}
	return mean, std, nil
}

func printForecast(result *app.Forecast, summaryOnly bool) error {
	if summaryOnly {
		result.Samples = nil
	}
	for _, note := range result.Adjustments {
		log.Printf("[CLI] %s", note)
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

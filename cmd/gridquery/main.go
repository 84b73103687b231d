// Command gridquery runs point queries and grid subsets against a local data directory.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.ngs.io/climate-api/internal/adapter/crs"
	"go.ngs.io/climate-api/internal/adapter/graph"
	ncstore "go.ngs.io/climate-api/internal/adapter/store/netcdf"
	"go.ngs.io/climate-api/internal/adapter/store/partition"
	"go.ngs.io/climate-api/internal/config"
	"go.ngs.io/climate-api/internal/domain"
	"go.ngs.io/climate-api/internal/grid"
	"go.ngs.io/climate-api/internal/usecase"
)

const version = "0.1.0"

var (
	cfg *config.Config
	log *logrus.Logger

	dataDir string
	dates   domain.DateInputs
)

var rootCmd = &cobra.Command{
	Use:   "gridquery",
	Short: "Query gridded climate partitions from the command line.",
	Long: `gridquery answers the same point queries as the climate API server without
starting it, and extracts grid subsets to NetCDF. Settings are read from the
environment (and .env) exactly as the server does; flags override them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		log = cfg.NewLogger()
		log.SetOutput(os.Stderr)
		if !cmd.Flags().Changed("data-dir") {
			dataDir = cfg.DataDir
		}
		return nil
	},
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gridquery v%s\n", version)
	},
	DisableAutoGenTag: true,
}

var parametersCmd = &cobra.Command{
	Use:   "parameters",
	Short: "List the parameters in the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := partition.NewCatalog(dataDir, partition.WithLogger(log)).ListParameters()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var (
	lon, lat float64
	graphDir string
	years    int
)

func queryCmd(kind usecase.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   kind.String() + " PARAMETER OPERATION",
		Short: fmt.Sprintf("Aggregate a point over a %s (mean, min or max)", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := domain.ParseOperation(args[1])
			if err != nil {
				return err
			}

			settings := cfg.Settings()
			if cmd.Flags().Changed("years") {
				settings.ClimatologyYears = years
			}
			opts := []usecase.Option{usecase.WithLogger(log)}
			if graphDir != "" {
				store, err := graph.NewDirStore(graphDir, "file://"+graphDir)
				if err != nil {
					return err
				}
				opts = append(opts, usecase.WithGraphPublisher(graph.NewPublisher(store, 0, log)))
			}

			uc := usecase.NewQueryUseCase(partition.NewCatalog(dataDir, partition.WithLogger(log)), settings, opts...)
			res, err := uc.Execute(context.Background(), usecase.QueryRequest{
				Parameter: args[0],
				Operation: op,
				Kind:      kind,
				Dates:     dates,
				Lon:       &lon,
				Lat:       &lat,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
		DisableAutoGenTag: true,
	}
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees (required)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees (required)")
	cmd.Flags().StringVar(&graphDir, "graph-dir", "", "write the point time series graph to this directory")
	if kind == usecase.Climatology {
		cmd.Flags().IntVar(&years, "years", usecase.DefaultClimatologyYears, "number of preceding years")
	}
	_ = cmd.MarkFlagRequired("lon")
	_ = cmd.MarkFlagRequired("lat")
	return cmd
}

var (
	bbox    string
	outPath string
)

var subsetCmd = &cobra.Command{
	Use:   "subset PARAMETER",
	Short: "Write the daily grid inside a lon/lat box to a NetCDF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		box, err := parseBBox(bbox)
		if err != nil {
			return err
		}

		start, end, err := domain.ResolveRequestWindow(dates, cfg.Settings().Defaults)
		if err != nil {
			return err
		}
		days, err := domain.ExpandRange(start, end)
		if err != nil {
			return err
		}

		data, err := partition.NewCatalog(dataDir, partition.WithLogger(log)).
			Load(args[0], domain.PartitionPattern(domain.YearsOf(days)))
		if err != nil {
			return err
		}
		h, err := grid.New(data).SelectTimes(days)
		if err != nil {
			return err
		}
		if h, err = h.SelectGrid(box[0], box[1], box[2], box[3], nil); err != nil {
			return err
		}

		var opts ncstore.WriteOptions
		if c := h.CRS(); c != nil && !c.IsGeographic() {
			opts.GridMapping = &crs.GridMapping{Proj4: c.String()}
		}
		if err := ncstore.Write(outPath, h.Cube(), opts); err != nil {
			return err
		}

		first, last, err := h.TimeRange()
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"path":  outPath,
			"shape": h.Cube().Shape(),
			"start": first.Format(time.RFC3339),
			"end":   last.Format(time.RFC3339),
		}).Info("subset written")
		return nil
	},
	DisableAutoGenTag: true,
}

// parseBBox parses "minLon,maxLon,minLat,maxLat".
func parseBBox(s string) ([4]float64, error) {
	var box [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return box, fmt.Errorf("bbox must be minLon,maxLon,minLat,maxLat, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return box, fmt.Errorf("invalid bbox value %q: %w", p, err)
		}
		box[i] = v
	}
	return box, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data-dir", "./data", "parameter data directory (default: DATA_DIR)")
	pf.StringVar(&dates.Date, "date", "", "single date (YYYY-MM-DD)")
	pf.StringVar(&dates.StartDate, "start-date", "", "first date (YYYY-MM-DD)")
	pf.StringVar(&dates.EndDate, "end-date", "", "last date (YYYY-MM-DD)")

	subsetCmd.Flags().StringVar(&bbox, "bbox", "", "minLon,maxLon,minLat,maxLat (required)")
	subsetCmd.Flags().StringVarP(&outPath, "out", "o", "subset.nc", "output NetCDF path")
	_ = subsetCmd.MarkFlagRequired("bbox")

	rootCmd.AddCommand(versionCmd, parametersCmd, queryCmd(usecase.Range), queryCmd(usecase.Climatology), subsetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docrocket-mad/ns-school-map/internal/cache"
	"github.com/docrocket-mad/ns-school-map/internal/dataset"
	"github.com/docrocket-mad/ns-school-map/internal/render"
	"github.com/docrocket-mad/ns-school-map/pkg/geocode"
)

var buildFlags struct {
	input           string
	output          string
	reference       string
	failed          string
	cachePath       string
	schoolCol       string
	addressCol      string
	districtCol     string
	max             int
	minDelay        time.Duration
	retries         int
	backoff         time.Duration
	regeocodeFailed bool
	noCache         bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Geocode a school spreadsheet and render the map",
	Long:  "Loads a CSV or Excel workbook of schools, geocodes each address through Nominatim with caching, and writes the map page plus reference and failed-geocode CSVs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("build"); err != nil {
			return err
		}

		rows, err := dataset.LoadTable(ctx, buildFlags.input, dataset.LoadOptions{
			SchoolCol:   buildFlags.schoolCol,
			AddressCol:  buildFlags.addressCol,
			DistrictCol: buildFlags.districtCol,
		})
		if err != nil {
			return eris.Wrap(err, "load input")
		}
		zap.L().Info("input loaded",
			zap.String("path", buildFlags.input),
			zap.Int("rows", len(rows)),
		)

		cachePath := buildFlags.cachePath
		if cachePath == "" {
			cachePath = cfg.Cache.Path
		}
		store, err := cache.Open(cachePath)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer store.Close()

		// Flags override config when set.
		minDelay := time.Duration(cfg.Geocode.MinDelayMS) * time.Millisecond
		if cmd.Flags().Changed("min-delay") {
			minDelay = buildFlags.minDelay
		}
		retries := cfg.Geocode.Retries
		if buildFlags.retries > 0 {
			retries = buildFlags.retries
		}
		backoff := time.Duration(cfg.Geocode.BackoffSecs) * time.Second
		if cmd.Flags().Changed("backoff") {
			backoff = buildFlags.backoff
		}

		geo := geocode.NewClient(
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithCountryCode(cfg.Geocode.CountryCode),
			geocode.WithMinDelay(minDelay),
			geocode.WithRetries(retries),
			geocode.WithBackoff(backoff),
		)

		result, err := dataset.NewBuilder(geo, store).Build(ctx, rows, dataset.BuildOptions{
			RegeocodeFailed: buildFlags.regeocodeFailed,
			NoCache:         buildFlags.noCache,
			FlushEvery:      cfg.Build.FlushEvery,
			Max:             buildFlags.max,
		})
		if err != nil {
			return eris.Wrap(err, "build dataset")
		}
		zap.L().Info("geocoding complete",
			zap.Int("placed", len(result.Records)),
			zap.Int("failed", len(result.Failed)),
		)

		if err := writeFile(buildFlags.reference, func(f *os.File) error {
			return dataset.WriteReference(f, result.Reference)
		}); err != nil {
			return eris.Wrap(err, "write reference")
		}

		if len(result.Failed) > 0 {
			if err := writeFile(buildFlags.failed, func(f *os.File) error {
				return dataset.WriteFailed(f, result.Failed)
			}); err != nil {
				return eris.Wrap(err, "write failed geocodes")
			}
			zap.L().Warn("some addresses did not geocode",
				zap.Int("count", len(result.Failed)),
				zap.String("path", buildFlags.failed),
			)
		}

		style, err := render.LoadStyle(cfg.Map.StylePath)
		if err != nil {
			return eris.Wrap(err, "load style")
		}
		if err := writeFile(buildFlags.output, func(f *os.File) error {
			return render.WritePage(f, result.Records, style, false)
		}); err != nil {
			return eris.Wrap(err, "write map page")
		}

		zap.L().Info("build complete", zap.String("map", buildFlags.output))
		return nil
	},
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	buildCmd.Flags().StringVar(&buildFlags.input, "input", "", "input CSV or XLSX of schools (required)")
	buildCmd.Flags().StringVar(&buildFlags.output, "output", "school_map.html", "output map page")
	buildCmd.Flags().StringVar(&buildFlags.reference, "reference", "school_map_reference.csv", "reference CSV with all rows")
	buildCmd.Flags().StringVar(&buildFlags.failed, "failed", "failed_geocodes.csv", "CSV of addresses that did not geocode")
	buildCmd.Flags().StringVar(&buildFlags.cachePath, "cache", "", "geocode cache path (default from config)")
	buildCmd.Flags().StringVar(&buildFlags.schoolCol, "school-col", "", "school name column (default School)")
	buildCmd.Flags().StringVar(&buildFlags.addressCol, "address-col", "", "address column (default Address)")
	buildCmd.Flags().StringVar(&buildFlags.districtCol, "district-col", "", "group column (default auto-detect)")
	buildCmd.Flags().IntVar(&buildFlags.max, "max", 0, "process at most N rows (0 = all)")
	buildCmd.Flags().DurationVar(&buildFlags.minDelay, "min-delay", 0, "minimum delay between geocode requests (default from config)")
	buildCmd.Flags().IntVar(&buildFlags.retries, "retries", 0, "attempts per query variant (default from config)")
	buildCmd.Flags().DurationVar(&buildFlags.backoff, "backoff", 0, "base backoff between retries (default from config)")
	buildCmd.Flags().BoolVar(&buildFlags.regeocodeFailed, "regeocode-failed", false, "retry addresses with a recorded failure")
	buildCmd.Flags().BoolVar(&buildFlags.noCache, "no-cache", false, "skip the geocode cache entirely")
	_ = buildCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(buildCmd)
}

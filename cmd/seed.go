package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docrocket-mad/ns-school-map/internal/address"
	"github.com/docrocket-mad/ns-school-map/internal/cache"
	"github.com/docrocket-mad/ns-school-map/internal/dataset"
)

var seedFlags struct {
	input     string
	cachePath string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the geocode cache from a reference CSV",
	Long:  "Loads a previously built reference CSV and writes its coordinates into the cache, so a rebuild needs no network calls for already-resolved addresses.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rows, err := dataset.LoadTable(ctx, seedFlags.input, dataset.LoadOptions{})
		if err != nil {
			return eris.Wrap(err, "load reference")
		}

		cachePath := seedFlags.cachePath
		if cachePath == "" {
			cachePath = cfg.Cache.Path
		}
		store, err := cache.Open(cachePath)
		if err != nil {
			return eris.Wrap(err, "open cache")
		}
		defer store.Close()

		entries, err := store.Load(ctx)
		if err != nil {
			return eris.Wrap(err, "load cache")
		}

		var seeded, skipped int
		for _, row := range rows {
			lat, latErr := strconv.ParseFloat(row.Lat, 64)
			lon, lonErr := strconv.ParseFloat(row.Lon, 64)
			if latErr != nil || lonErr != nil {
				skipped++
				continue
			}
			entries[address.Normalize(row.Address)] = cache.Entry{Lat: lat, Lon: lon}
			seeded++
		}

		if err := store.Save(ctx, entries); err != nil {
			return eris.Wrap(err, "save cache")
		}

		zap.L().Info("cache seeded",
			zap.String("cache", cachePath),
			zap.Int("seeded", seeded),
			zap.Int("skipped", skipped),
			zap.Int("total", len(entries)),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFlags.input, "input", "", "reference CSV with lat/lon columns (required)")
	seedCmd.Flags().StringVar(&seedFlags.cachePath, "cache", "", "geocode cache path (default from config)")
	_ = seedCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(seedCmd)
}

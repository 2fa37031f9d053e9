package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docrocket-mad/ns-school-map/internal/dataset"
	"github.com/docrocket-mad/ns-school-map/internal/markers"
	"github.com/docrocket-mad/ns-school-map/internal/model"
	"github.com/docrocket-mad/ns-school-map/internal/render"
	"github.com/docrocket-mad/ns-school-map/internal/view"
	"github.com/docrocket-mad/ns-school-map/pkg/geocode"
)

var serveFlags struct {
	input string
	port  int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive map with editable markers",
	Long:  "Loads a reference CSV into an in-memory marker session and serves the map page plus the edit API. Edits live for the session; use the CSV export to keep them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		rows, err := dataset.LoadTable(ctx, serveFlags.input, dataset.LoadOptions{})
		if err != nil {
			return eris.Wrap(err, "load reference")
		}

		geo := geocode.NewClient(
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithUserAgent(cfg.Geocode.UserAgent),
			geocode.WithCountryCode(cfg.Geocode.CountryCode),
			geocode.WithMinDelay(time.Duration(cfg.Geocode.MinDelayMS)*time.Millisecond),
		)

		store := markers.NewStore(recordsFromRows(rows), geo, markers.NopRenderer{})
		zap.L().Info("session loaded",
			zap.String("input", serveFlags.input),
			zap.Int("records", len(store.Records())),
		)

		style, err := render.LoadStyle(cfg.Map.StylePath)
		if err != nil {
			return eris.Wrap(err, "load style")
		}

		port := serveFlags.port
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(store, geo, style),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// recordsFromRows turns loaded reference rows into session records. Rows
// without parseable coordinates keep the NaN sentinel so they survive into
// the export.
func recordsFromRows(rows []dataset.Row) []model.LocationRecord {
	records := make([]model.LocationRecord, 0, len(rows))
	for _, row := range rows {
		rec := model.LocationRecord{
			School:  row.School,
			Address: row.Address,
			Group:   row.Group,
			Lat:     model.NoCoordinate(),
			Lon:     model.NoCoordinate(),
			Status:  model.DeriveStatus(row.Status, row.RecentRel, row.CurrentWork),
		}
		if lat, err := strconv.ParseFloat(row.Lat, 64); err == nil {
			if lon, err := strconv.ParseFloat(row.Lon, 64); err == nil {
				rec.Lat = lat
				rec.Lon = lon
			}
		}
		records = append(records, rec)
	}
	return records
}

func newRouter(store *markers.Store, geo geocode.Client, style render.Style) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.WritePage(w, store.Records(), style, true); err != nil {
			zap.L().Error("render page", zap.Error(err))
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/records", func(w http.ResponseWriter, _ *http.Request) {
			placeable := view.DefaultFilter().Apply(store.Records())
			view.SortBySchool(placeable)
			writeJSON(w, http.StatusOK, placeable)
		})

		r.Post("/records", handleAddRecord(store))

		r.Patch("/records/{id}", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				httpError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if err := store.SetStatus(chi.URLParam(req, "id"), model.Status(body.Status)); err != nil {
				writeStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Delete("/records/{id}", func(w http.ResponseWriter, req *http.Request) {
			if err := store.Delete(chi.URLParam(req, "id")); err != nil {
				writeStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/records/{id}/position", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				httpError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if err := store.BeginMove(chi.URLParam(req, "id")); err != nil {
				writeStoreError(w, err)
				return
			}
			rec, err := store.CommitMove(body.Lat, body.Lon)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		r.Post("/moves/cancel", func(w http.ResponseWriter, _ *http.Request) {
			store.CancelMove()
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/undo", func(w http.ResponseWriter, _ *http.Request) {
			rec, err := store.UndoDelete()
			if err != nil {
				writeStoreError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		r.Post("/geocode", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Query == "" {
				httpError(w, http.StatusBadRequest, "query is required")
				return
			}
			result, err := geo.Lookup(req.Context(), body.Query)
			if err != nil {
				httpError(w, http.StatusBadGateway, "lookup failed")
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Get("/export.csv", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="schools.csv"`)
			if err := view.ExportCSV(w, store.Records()); err != nil {
				zap.L().Error("export csv", zap.Error(err))
			}
		})
	})

	return r
}

func handleAddRecord(store *markers.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			School  string   `json:"school"`
			Address string   `json:"address"`
			Group   string   `json:"group"`
			Status  string   `json:"status"`
			Lat     *float64 `json:"lat"`
			Lon     *float64 `json:"lon"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.School == "" {
			httpError(w, http.StatusBadRequest, "school is required")
			return
		}

		// A supplied coordinate wins over the address lookup.
		if body.Lat != nil && body.Lon != nil {
			rec := store.Add(model.LocationRecord{
				School:  body.School,
				Address: body.Address,
				Group:   body.Group,
				Lat:     *body.Lat,
				Lon:     *body.Lon,
				Status:  model.ParseStatus(body.Status),
			})
			writeJSON(w, http.StatusCreated, rec)
			return
		}

		if body.Address == "" {
			httpError(w, http.StatusBadRequest, "address or lat/lon is required")
			return
		}
		rec, err := store.AddByAddress(req.Context(), body.School, body.Address, body.Group, model.ParseStatus(body.Status))
		if err != nil {
			if errors.Is(err, markers.ErrLookupFailed) {
				httpError(w, http.StatusUnprocessableEntity, "address lookup found nothing")
				return
			}
			httpError(w, http.StatusBadGateway, "lookup failed")
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, markers.ErrNotFound):
		httpError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, markers.ErrNothingToUndo):
		httpError(w, http.StatusConflict, "nothing to undo")
	case errors.Is(err, markers.ErrNoPendingMove):
		httpError(w, http.StatusConflict, "no pending move")
	default:
		httpError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.input, "input", "", "reference CSV to load into the session (required)")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 0, "server port (default from config)")
	_ = serveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(serveCmd)
}

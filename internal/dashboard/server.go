package dashboard

import (
	"cmp"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/workshop-scraper/internal/catalog"
	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/storage"
)

const topN = 15

// Server renders the scraped data file.
type Server struct {
	dataFile string
	router   chi.Router
	logger   *slog.Logger
}

func New(dataFile string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{dataFile: dataFile, router: chi.NewRouter(), logger: logger}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleCharts)
	s.router.Get("/api/records", s.handleRecords)
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartServer serves the dashboard until the listener fails.
func StartServer(dataFile string, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           New(dataFile, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) load(w http.ResponseWriter) ([]domain.ItemRecord, bool) {
	records, err := storage.ReadRecords(s.dataFile)
	if err != nil {
		s.logger.Error("Read data file failed", "path", s.dataFile, "error", err)
		http.Error(w, "cannot read data file", http.StatusInternalServerError)
		return nil, false
	}
	return records, true
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	records, ok := s.load(w)
	if !ok {
		return
	}
	page := components.NewPage()
	page.PageTitle = "Workshop Catalog"
	page.AddCharts(topSubscribed(records), tagPie(records), ratingHistogram(records))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		s.logger.Error("Render dashboard failed", "error", err)
	}
}

// handleRecords returns the records as JSON, filtered and sorted with the
// same options as the catalog view: tag, min_subs, min_rating, sort.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, ok := s.load(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	minSubs, _ := strconv.Atoi(q.Get("min_subs"))
	minRating, _ := strconv.Atoi(q.Get("min_rating"))
	view := catalog.Filter(records, catalog.ViewOptions{
		Tag:            q.Get("tag"),
		MinSubscribers: minSubs,
		MinRating:      minRating,
		Sort:           q.Get("sort"),
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.Error("Encode records failed", "error", err)
	}
}

// 1. Most subscribed items
func topSubscribed(records []domain.ItemRecord) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Most Subscribed"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)
	top := catalog.Filter(records, catalog.ViewOptions{Sort: catalog.SortSubscribers})
	if len(top) > topN {
		top = top[:topN]
	}
	var x []string
	var y []opts.BarData
	for _, rec := range top {
		x = append(x, rec.Name)
		y = append(y, opts.BarData{Value: rec.Subscribers})
	}
	bar.SetXAxis(x).AddSeries("Subscribers", y)
	return bar
}

// 2. Tag distribution
func tagPie(records []domain.ItemRecord) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Tags"}))

	counts := make(map[string]int)
	for _, rec := range records {
		for _, t := range rec.Tags {
			counts[t]++
		}
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	slices.SortFunc(tags, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var items []opts.PieData
	for _, t := range tags {
		items = append(items, opts.PieData{Name: t, Value: counts[t]})
	}
	pie.AddSeries("Items", items)
	return pie
}

// 3. Star rating histogram, 0 meaning unrated
func ratingHistogram(records []domain.ItemRecord) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Ratings"}))

	var buckets [6]int
	for _, rec := range records {
		buckets[min(max(rec.Rating, 0), 5)]++
	}
	x := []string{"unrated", "1", "2", "3", "4", "5"}
	y := make([]opts.BarData, 0, len(buckets))
	for _, n := range buckets {
		y = append(y, opts.BarData{Value: n})
	}
	bar.SetXAxis(x).AddSeries("Items", y)
	return bar
}

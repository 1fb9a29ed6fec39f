package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/qepting91/workshop-scraper/internal/catalog"
	"github.com/qepting91/workshop-scraper/internal/collector"
	"github.com/qepting91/workshop-scraper/internal/config"
	"github.com/qepting91/workshop-scraper/internal/domain"
	"github.com/qepting91/workshop-scraper/internal/enrich"
	"github.com/qepting91/workshop-scraper/internal/ingest"
	"github.com/qepting91/workshop-scraper/internal/lists"
	"github.com/qepting91/workshop-scraper/internal/storage"
)

type catalogFlags struct {
	appID    string
	sort     string
	search   string
	tags     string
	days     string
	pages    int
	fidelity string
	enrich   int
	listFile string
	add      []string
	truncate bool

	tag       string
	minSubs   int
	minRating int
	order     string
}

func (f *catalogFlags) view() catalog.ViewOptions {
	return catalog.ViewOptions{Tag: f.tag, MinSubscribers: f.minSubs, MinRating: f.minRating, Sort: f.order}
}

func newCatalogCommand(a *app) *cobra.Command {
	f := &catalogFlags{}
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load listing pages, enrich them and append records to the data file",
		Long: `Loads listing pages for one query given by flags, or for every row of
the targets CSV when no --appid is given. Page 1 replaces the working set and
later pages are appended until the upstream runs out of new items.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCatalog(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.appID, "appid", "", "catalog (app) id; empty reads the targets CSV")
	fl.StringVar(&f.sort, "sort", "trend", "browse sort")
	fl.StringVar(&f.search, "search", "", "free-text search")
	fl.StringVar(&f.tags, "tags", "", "required tags")
	fl.StringVar(&f.days, "days", "", "recency window in days")
	fl.IntVar(&f.pages, "pages", 1, "pages to load per query")
	fl.StringVar(&f.fidelity, "fidelity", "", "enrichment fidelity (lite or full); defaults to ENRICH_FIDELITY")
	fl.IntVar(&f.enrich, "enrich", -1, "items to enrich per page; defaults to ENRICH_LIMIT")
	fl.StringVar(&f.listFile, "list", "", "list export JSON used for the already-in-list state")
	fl.StringSliceVar(&f.add, "add", nil, "item ids to add to the --list file once loaded")
	fl.BoolVar(&f.truncate, "truncate", false, "start a fresh data file")
	fl.StringVar(&f.tag, "tag", "", "only write records with a matching tag")
	fl.IntVar(&f.minSubs, "min-subs", 0, "only write records with at least this many subscribers")
	fl.IntVar(&f.minRating, "min-rating", 0, "only write records rated at least this many stars")
	fl.StringVar(&f.order, "order", "", "write order: title, subscribers, favorites or rating")
	return cmd
}

func (a *app) runCatalog(cmd *cobra.Command, f *catalogFlags) error {
	ctx := cmd.Context()
	logger := a.logger

	targets, err := a.targets(f)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		logger.Warn("No targets to load", "targets_file", a.cfg.TargetsFile)
		return nil
	}

	fidelity := a.cfg.EnrichFidelity
	if f.fidelity != "" {
		if fidelity, err = domain.ParseFidelity(f.fidelity); err != nil {
			return err
		}
	}
	enrichLimit := a.cfg.EnrichLimit
	if f.enrich >= 0 {
		enrichLimit = f.enrich
	}

	var list *lists.List
	if f.listFile != "" {
		if list, err = ingest.LoadListExport(f.listFile); err != nil {
			return fmt.Errorf("load list: %w", err)
		}
		logger.Info("List loaded", "name", list.Name(), "items", len(list.IDs()))
	} else if len(f.add) > 0 {
		return errors.New("--add needs --list")
	}

	client, err := collector.NewCollector(a.cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize collector", "error", err)
		return err
	}
	logger.Info("Collector initialized", "mode", a.cfg.CollectorMode, "proxy_preference", a.cfg.ProxyPreference)

	// Concurrency Setup
	jobQueue := make(chan domain.Target, len(targets))
	resultQueue := make(chan domain.ItemRecord, 100)
	var workerWg sync.WaitGroup
	var writerWg sync.WaitGroup

	writer := &storage.WriterService{FilePath: a.cfg.DataFile, Truncate: f.truncate, Logger: logger}
	writerWg.Add(1)
	go writer.Start(&writerWg, resultQueue)

	// Proxies throttle hard; keep the live mode to two queries at a time.
	numWorkers := 4
	if a.cfg.CollectorMode == config.ModeLive {
		numWorkers = 2
	}

	for i := 0; i < min(numWorkers, len(targets)); i++ {
		workerWg.Add(1)
		go func(worker int) {
			defer workerWg.Done()
			for t := range jobQueue {
				select {
				case <-ctx.Done():
					return
				default:
				}
				svc := catalog.New(client, listSink(list), catalog.Options{
					EnrichLimit:    enrichLimit,
					EnrichFidelity: fidelity,
					OnProgress: func(p enrich.Progress) {
						logger.Debug("Enrichment progress", "worker", worker, "done", p.Done, "total", p.Total, "failed", p.Failed)
					},
					Logger: logger.With("worker", worker, "appid", t.Filters.AppID),
				})
				if err := loadTarget(ctx, svc, t); err != nil {
					logger.Error("Scrape failed", "appid", t.Filters.AppID, "search", t.Filters.SearchText,
						"exhausted", collector.IsExhausted(err), "error", err)
				}
				for _, id := range f.add {
					switch err := svc.AddToList(id); {
					case err == nil:
						logger.Info("Added to list", "id", id)
					case errors.Is(err, domain.ErrUnknownItem):
					default:
						logger.Warn("Add to list failed", "id", id, "error", err)
					}
				}
				for _, r := range svc.View(f.view()) {
					resultQueue <- r
				}
				st := svc.Stats(f.view())
				logger.Info("Target done", "appid", t.Filters.AppID,
					"total", st.Total, "session_loaded", st.SessionLoaded, "shown", st.Shown, "already_in_list", st.AlreadyInList)
			}
		}(i)
	}

	// Enqueue Jobs
	logger.Info("Starting scrape cycle", "targets", len(targets))
	for _, t := range targets {
		jobQueue <- t
	}
	close(jobQueue)

	workerWg.Wait()
	close(resultQueue)
	writerWg.Wait()
	if err := writer.Err(); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	logger.Info("Scrape complete. Data saved.", "records", writer.Written(), "path", a.cfg.DataFile)

	if len(f.add) > 0 {
		if err := saveList(f.listFile, list); err != nil {
			return err
		}
		logger.Info("List saved", "path", f.listFile, "items", len(list.IDs()))
	}
	return nil
}

func saveList(path string, l *lists.List) error {
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("save list: %w", err)
	}
	if err := ingest.WriteListExport(out, l); err != nil {
		out.Close()
		return fmt.Errorf("save list: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("save list: %w", err)
	}
	return os.Rename(tmp, path)
}

// loadTarget loads page 1 and appends further pages until the upstream
// stops yielding new items.
func loadTarget(ctx context.Context, svc *catalog.Service, t domain.Target) error {
	for page := 1; page <= max(t.Pages, 1); page++ {
		res, err := svc.Load(ctx, catalog.LoadRequest{Filters: t.Filters, Page: page, Append: page > 1})
		if err != nil {
			return err
		}
		if res.NoMorePages {
			break
		}
	}
	return nil
}

func (a *app) targets(f *catalogFlags) ([]domain.Target, error) {
	if f.appID == "" {
		targets, err := ingest.LoadTargets(a.cfg.TargetsFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load targets: %w", err)
		}
		if len(targets) > 0 {
			for i := range targets {
				if targets[i].Filters.PerPage == 0 {
					targets[i].Filters.PerPage = a.cfg.PerPage
				}
			}
			return targets, nil
		}
		f.appID = a.cfg.AppID
	}
	return []domain.Target{{
		Filters: domain.Filters{
			AppID:        f.appID,
			Sort:         f.sort,
			SearchText:   f.search,
			RequiredTags: f.tags,
			Days:         f.days,
			PerPage:      a.cfg.PerPage,
		},
		Pages: f.pages,
	}}, nil
}

// listSink keeps a nil *lists.List from becoming a non-nil interface.
func listSink(l *lists.List) domain.ListSink {
	if l == nil {
		return nil
	}
	return l
}

func newDetailCommand(a *app) *cobra.Command {
	var fidelity string
	cmd := &cobra.Command{
		Use:   "detail <id>",
		Short: "Fetch one item's details and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := domain.ParseFidelity(fidelity)
			if err != nil {
				return err
			}
			client, err := collector.NewCollector(a.cfg, a.logger)
			if err != nil {
				return err
			}
			svc := catalog.New(client, nil, catalog.Options{Logger: a.logger})
			rec, err := svc.Detail(cmd.Context(), args[0], level)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
	cmd.Flags().StringVar(&fidelity, "fidelity", "full", "lite or full")
	return cmd
}

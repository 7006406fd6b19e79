// Command didaxa is the main entry point for the Didaxa tutoring dialogue
// server. It wires the configured providers, ingests an optional document
// corpus into tutoring sessions, and keeps the session registry alive until
// shut down, exposing health and metrics endpoints while it runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/didaxa/didaxa/internal/assign"
	"github.com/didaxa/didaxa/internal/config"
	"github.com/didaxa/didaxa/internal/conversation"
	"github.com/didaxa/didaxa/internal/health"
	"github.com/didaxa/didaxa/internal/observe"
	"github.com/didaxa/didaxa/internal/segment"
	"github.com/didaxa/didaxa/internal/session"
	"github.com/didaxa/didaxa/pkg/provider/embeddings"
	"github.com/didaxa/didaxa/pkg/store"
	pgstore "github.com/didaxa/didaxa/pkg/store/postgres"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	docsDir := flag.String("docs", "", "optional directory of .txt/.md documents to ingest at startup")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "didaxa: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "didaxa: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("didaxa starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "didaxa",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	gen, err := config.BuildGenerator(cfg.Providers.LLM)
	if err != nil {
		slog.Error("failed to build generator", "err", err)
		return 1
	}
	slog.Info("generator ready", "provider", cfg.Providers.LLM.Name, "model", gen.ModelID())

	var embedder embeddings.Provider
	if cfg.Providers.Embeddings.Name != "" {
		embedder, err = config.BuildEmbedder(cfg.Providers.Embeddings)
		if err != nil {
			slog.Error("failed to build embedder", "err", err)
			return 1
		}
		slog.Info("embedder ready", "provider", cfg.Providers.Embeddings.Name, "model", embedder.ModelID())
	}
	if *docsDir != "" && embedder == nil {
		slog.Error("document ingestion requires providers.embeddings to be configured")
		return 1
	}

	// ── Session store ─────────────────────────────────────────────────────────
	var (
		st      store.SessionStore
		unitIdx store.UnitIndex
		checks  []health.Checker
	)
	if cfg.Store.PostgresDSN != "" {
		pg, err := pgstore.NewStore(ctx, cfg.Store.PostgresDSN, cfg.Store.EmbeddingDimensions)
		if err != nil {
			slog.Error("failed to open postgres store", "err", err)
			return 1
		}
		defer pg.Close()
		st = pg
		unitIdx = pg
		checks = append(checks, health.Checker{Name: "postgres", Check: pg.Ping})
		slog.Info("session store ready", "backend", "postgres", "embedding_dimensions", cfg.Store.EmbeddingDimensions)
	} else {
		mem := store.NewMemory()
		st = mem
		unitIdx = mem
		slog.Info("session store ready", "backend", "memory")
	}

	// ── Session registry ──────────────────────────────────────────────────────
	registry := session.NewRegistry(st, gen,
		session.WithIdleTimeout(cfg.Session.IdleTimeout.Std()),
		session.WithMachineOptions(
			conversation.WithGenerateTimeout(cfg.Dialogue.GenerateTimeout.Std()),
			conversation.WithContextWindow(cfg.Dialogue.ContextWindow),
		),
	)

	// ── Document ingestion ────────────────────────────────────────────────────
	if *docsDir != "" {
		segmenter := segment.New(embedder,
			segment.WithSimilarityThreshold(cfg.Segmentation.SimilarityThreshold),
			segment.WithGroupSizes(cfg.Segmentation.MinGroupSize, cfg.Segmentation.MaxGroupSize),
			segment.WithMinParagraphLen(cfg.Segmentation.MinParagraphLen),
		)
		if err := ingestDocuments(ctx, registry, segmenter, unitIdx, cfg.Assignment.Mode, *docsDir); err != nil {
			slog.Error("document ingestion failed", "err", err)
			return 1
		}
	}

	// ── Health and metrics endpoints ──────────────────────────────────────────
	mux := http.NewServeMux()
	health.New(version, checks...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
			stop()
		}
	}()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, registry.Len())

	slog.Info("server ready — press Ctrl+C to shut down")

	// Run blocks until ctx is cancelled, then snapshots every live session.
	if err := registry.Run(ctx, cfg.Session.SweepInterval.Std()); err != nil {
		slog.Error("failed to save sessions on shutdown", "err", err)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Document ingestion ────────────────────────────────────────────────────────

// ingestDocuments builds one tutoring session per .txt or .md file in dir:
// the file's text is segmented into units, roles are assigned, and the unit
// centroids are written to the vector index before the session is persisted.
func ingestDocuments(ctx context.Context, reg *session.Registry, seg *segment.Segmenter, idx store.UnitIndex, mode assign.Mode, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read docs dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".txt" && ext != ".md" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %q: %w", path, err)
		}

		units, err := seg.Segment(ctx, string(raw))
		if err != nil {
			return fmt.Errorf("segment %q: %w", path, err)
		}
		if len(units) == 0 {
			slog.Warn("document produced no units — skipping", "file", entry.Name())
			continue
		}
		assignment, err := assign.Assign(units, mode)
		if err != nil {
			return fmt.Errorf("assign roles for %q: %w", path, err)
		}

		id, m, err := reg.Create(ctx)
		if err != nil {
			return err
		}
		if err := m.LoadDocument(units); err != nil {
			return fmt.Errorf("load %q: %w", path, err)
		}
		if err := m.AttachAssignment(assignment); err != nil {
			return fmt.Errorf("attach assignment for %q: %w", path, err)
		}

		for _, u := range units {
			if len(u.Centroid) == 0 {
				continue
			}
			rec := store.UnitRecord{
				SessionID:   id,
				UnitID:      u.ID,
				Title:       u.Title,
				SectionKind: string(u.SectionKind),
				Cohesion:    u.Cohesion,
				WordCount:   u.WordCount,
				Embedding:   u.Centroid,
			}
			if err := idx.IndexUnit(ctx, rec); err != nil {
				return fmt.Errorf("index unit %s of %q: %w", u.ID, path, err)
			}
		}

		if err := reg.Save(ctx, id); err != nil {
			return err
		}
		slog.Info("document ingested", "file", entry.Name(), "session_id", id, "units", len(units))
	}
	return nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, sessions int) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Didaxa — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	backend := "memory"
	if cfg.Store.PostgresDSN != "" {
		backend = "postgres"
	}
	fmt.Printf("║  Store           : %-19s ║\n", backend)
	fmt.Printf("║  Assignment mode : %-19s ║\n", cfg.Assignment.Mode)
	fmt.Printf("║  Sessions loaded : %-19d ║\n", sessions)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

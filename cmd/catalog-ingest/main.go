// Command catalog-ingest imports gzip-compressed supplier product feeds into
// the catalog. Feeds are JSON lines files; SKUs are deduplicated across all
// feeds with a bloom filter (first occurrence wins) and rows are written in
// batches. Re-running is safe: products upsert on SKU.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 500
	progressEvery = 100_000
)

// feedProduct is one line of a supplier feed.
type feedProduct struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz product feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feeds found in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("ingesting feeds", slog.Int("files", len(files)))

	// Readers fan feed lines into one channel; a single writer dedups SKUs
	// and batches the upserts.
	rows := make(chan feedProduct, batchSize)

	g, ctx := errgroup.WithContext(ctx)
	readers, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		readers.Go(readFeed(ctx, f, rows))
	}
	g.Go(func() error {
		defer close(rows)
		return readers.Wait()
	})
	g.Go(func() error {
		w := newWriter(pool)
		return w.consume(ctx, rows)
	})

	return g.Wait()
}

// readFeed streams one gzip feed file and sends each parsed line to out.
// Malformed lines are logged and skipped.
func readFeed(ctx context.Context, path string, out chan<- feedProduct) func() error {
	return func() error {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		defer func() { _ = f.Close() }()

		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()

		var count, skipped uint64
		scanner := bufio.NewScanner(gz)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var p feedProduct
			if err := json.Unmarshal(scanner.Bytes(), &p); err != nil || p.SKU == "" || p.Name == "" {
				skipped++
				continue
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("feed progress", slog.String("file", path), slog.Uint64("lines", count))
			}

			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := scanner.Err(); err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}

		slog.Info("feed complete",
			slog.String("file", path),
			slog.Uint64("lines", count),
			slog.Uint64("skipped", skipped),
		)
		return nil
	}
}

const upsertFeedProductSQL = `INSERT INTO products
	(id, sku, name, description, price, category_id, stock_quantity, active, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, now())
	ON CONFLICT (sku) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		price = EXCLUDED.price,
		category_id = EXCLUDED.category_id,
		stock_quantity = EXCLUDED.stock_quantity,
		active = TRUE,
		updated_at = now()`

const upsertCategoryByNameSQL = `INSERT INTO product_categories (id, name)
	VALUES ($1, $2)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	RETURNING id`

// writer dedups SKUs and flushes product upserts in batches.
type writer struct {
	pool       *pgxpool.Pool
	seen       *bloom.BloomFilter
	categories map[string]string
	batch      *pgx.Batch
	written    uint64
}

func newWriter(pool *pgxpool.Pool) *writer {
	return &writer{
		pool:       pool,
		seen:       bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		categories: make(map[string]string),
		batch:      &pgx.Batch{},
	}
}

func (w *writer) consume(ctx context.Context, rows <-chan feedProduct) error {
	for p := range rows {
		// A bloom hit may be a false positive, which only means an already
		// upserted SKU is written twice. The upsert keeps that harmless.
		if w.seen.TestString(p.SKU) {
			continue
		}
		w.seen.AddString(p.SKU)

		categoryID, err := w.categoryID(ctx, p.Category)
		if err != nil {
			return errors.Wrapf(err, "resolve category %q", p.Category)
		}

		w.batch.Queue(upsertFeedProductSQL,
			uuid.NewString(), p.SKU, p.Name, p.Description, p.Price, categoryID, p.StockQuantity,
		)
		if w.batch.Len() >= batchSize {
			if err := w.flush(ctx); err != nil {
				return err
			}
		}
	}
	if err := w.flush(ctx); err != nil {
		return err
	}

	slog.Info("ingest complete", slog.Uint64("products", w.written))
	return nil
}

func (w *writer) categoryID(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = "Uncategorized"
	}
	if id, ok := w.categories[name]; ok {
		return id, nil
	}

	var id string
	err := w.pool.QueryRow(ctx, upsertCategoryByNameSQL, uuid.NewString(), name).Scan(&id)
	if err != nil {
		return "", err
	}
	w.categories[name] = id
	return id, nil
}

func (w *writer) flush(ctx context.Context) error {
	if w.batch.Len() == 0 {
		return nil
	}

	res := w.pool.SendBatch(ctx, w.batch)
	if err := res.Close(); err != nil {
		return errors.Wrap(err, "flush product batch")
	}

	w.written += uint64(w.batch.Len())
	slog.Info("write progress", slog.Uint64("written", w.written))
	w.batch = &pgx.Batch{}
	return nil
}

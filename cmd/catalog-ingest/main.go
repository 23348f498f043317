// Command catalog-ingest seeds the PostgreSQL row store from gzipped CSV
// exports of the storefront spreadsheet (File > Download > CSV, gzipped).
// The first record of each file is the header row; everything after it is
// loaded verbatim — parsing and normalization stay in the catalog builder.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/sekarjagad/batik-store/internal/domain/catalog"
	"github.com/sekarjagad/batik-store/internal/rowstore"
	"github.com/sekarjagad/batik-store/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		productsFile string
		variantsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "data/products.csv.gz", "gzipped CSV export of the products sheet")
	flag.StringVar(&variantsFile, "variants-file", "", "gzipped CSV export of the variants sheet (optional)")
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

	if err := run(ctx, databaseURL, productsFile, variantsFile); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, variantsFile string) error {
	var (
		products rowstore.Table
		variants rowstore.Table
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := readCSVGz(gctx, productsFile, catalog.TableProducts)
		if err != nil {
			return errors.Wrap(err, "read products export")
		}
		products = t
		return nil
	})
	if variantsFile != "" {
		g.Go(func() error {
			t, err := readCSVGz(gctx, variantsFile, catalog.TableVariants)
			if err != nil {
				return errors.Wrap(err, "read variants export")
			}
			variants = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("exports read",
		slog.Int("products", len(products.Rows)),
		slog.Int("variants", len(variants.Rows)),
	)

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	store := postgres.NewStore(pool)
	if err := store.ReplaceTable(ctx, products); err != nil {
		return errors.Wrap(err, "load products")
	}
	if variantsFile != "" {
		if err := store.ReplaceTable(ctx, variants); err != nil {
			return errors.Wrap(err, "load variants")
		}
	}

	// An empty orders table so checkout has somewhere to append. Created
	// only when missing: a re-ingest must not wipe order history.
	if _, err := store.ReadTable(ctx, catalog.TableOrders); errors.Is(err, rowstore.ErrTableNotFound) {
		if err := store.ReplaceTable(ctx, rowstore.Table{
			Name:   catalog.TableOrders,
			Header: []string{"id", "placed_at", "items", "total"},
		}); err != nil {
			return errors.Wrap(err, "create orders table")
		}
	} else if err != nil {
		return errors.Wrap(err, "check orders table")
	}

	return nil
}

func readCSVGz(ctx context.Context, path, tableName string) (rowstore.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return rowstore.Table{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return rowstore.Table{}, errors.Wrapf(err, "gunzip %s", path)
	}
	defer gz.Close() //nolint:errcheck

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1 // sheets export ragged rows; the Table API tolerates them

	t := rowstore.Table{Name: tableName}
	for {
		if err := ctx.Err(); err != nil {
			return rowstore.Table{}, err
		}

		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rowstore.Table{}, errors.Wrapf(err, "parse %s", path)
		}

		if t.Header == nil {
			t.Header = record
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if t.Header == nil {
		return rowstore.Table{}, errors.Errorf("%s: empty export, expected a header row", path)
	}
	return t, nil
}

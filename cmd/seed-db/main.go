// Command seed-db loads catalog products, stock levels and API keys.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/luxe-store/internal/domain/auth"
	"github.com/xenking/luxe-store/internal/domain/product"
	"github.com/xenking/luxe-store/internal/storage/postgres"
)

const upsertConcurrency = 8

type productJSON struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	Stock    int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		adminAPIKey  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file, optionally gzip-compressed (.json.gz)")
	flag.StringVar(&apiKey, "api-key", "", "customer API key to seed (or LUXE_SEED_API_KEY env)")
	flag.StringVar(&adminAPIKey, "admin-api-key", "", "admin API key to seed (or LUXE_SEED_ADMIN_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or LUXE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("LUXE_SEED_API_KEY")
	}
	if adminAPIKey == "" {
		adminAPIKey = os.Getenv("LUXE_SEED_ADMIN_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("LUXE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	keys := seedKeys(apiKey, adminAPIKey, apiKeyPepper)
	if err := run(ctx, databaseURL, productsFile, keys); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

// seedKeys returns the API keys to store for the non-empty raw keys.
func seedKeys(customer, admin, pepper string) []auth.APIKey {
	var keys []auth.APIKey
	if customer != "" {
		keys = append(keys, auth.APIKey{
			ID:      "default",
			KeyHash: auth.Hash([]byte(pepper), customer),
			Name:    "Default customer key",
			UserID:  "demo-customer",
			Role:    auth.RoleUser,
		})
	}
	if admin != "" {
		keys = append(keys, auth.APIKey{
			ID:      "admin",
			KeyHash: auth.Hash([]byte(pepper), admin),
			Name:    "Default admin key",
			UserID:  "demo-admin",
			Role:    auth.RoleAdmin,
		})
	}
	return keys
}

func run(ctx context.Context, databaseURL, productsFile string, keys []auth.APIKey) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := loadProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "load products")
	}

	if err := seedProducts(ctx,
		postgres.NewProductRepository(pool),
		postgres.NewInventoryRepository(pool),
		products,
	); err != nil {
		return errors.Wrap(err, "seed products")
	}

	apikeys := postgres.NewAPIKeyRepository(pool)
	for _, k := range keys {
		if err := apikeys.Upsert(ctx, k); err != nil {
			return errors.Wrapf(err, "upsert api key %s", k.ID)
		}
		slog.Info("upserted API key", slog.String("id", k.ID), slog.String("role", string(k.Role)))
	}

	return nil
}

// loadProducts reads a products file, decompressing it when the name ends
// in .gz.
func loadProducts(path string) ([]productJSON, error) {
	slog.Info("reading products file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	return decodeProducts(r)
}

func decodeProducts(r io.Reader) ([]productJSON, error) {
	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	for i, p := range products {
		switch {
		case p.ID == "":
			return nil, errors.Errorf("product %d: id is required", i)
		case p.Price.IsNegative():
			return nil, errors.Errorf("product %s: negative price", p.ID)
		case p.Stock < 0:
			return nil, errors.Errorf("product %s: negative stock", p.ID)
		}
	}
	return products, nil
}

type productWriter interface {
	Upsert(ctx context.Context, p product.Product) error
}

type stockWriter interface {
	Set(ctx context.Context, productID string, stock int) error
}

func seedProducts(ctx context.Context, catalog productWriter, stock stockWriter, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertConcurrency)
	for _, p := range products {
		g.Go(func() error {
			if err := catalog.Upsert(ctx, product.Product{
				ID:       p.ID,
				Title:    p.Title,
				Price:    p.Price,
				Category: p.Category,
				Image:    p.Image,
			}); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			if err := stock.Set(ctx, p.ID, p.Stock); err != nil {
				return errors.Wrapf(err, "set stock %s", p.ID)
			}
			slog.Info("upserted product",
				slog.String("id", p.ID),
				slog.String("title", p.Title),
				slog.Int("stock", p.Stock),
			)
			return nil
		})
	}
	return g.Wait()
}

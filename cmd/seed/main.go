// Command seed uploads every image in a folder and creates one product per
// image through the catalog service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/media"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func main() {
	dir := flag.String("dir", "test-data", "folder of product images")
	category := flag.String("category", "Cosmetics", "category of the seeded products")
	brand := flag.String("brand", "TestBrand", "brand of the seeded products")
	flag.Parse()

	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	if cfg.Cloudinary.CloudName == "" {
		log.Fatal("CLOUDINARY_CLOUD_NAME is required to seed products")
	}
	uploader, err := media.NewCloudinaryUploader(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, cfg.Cloudinary.Folder)
	if err != nil {
		log.Fatalf("Failed to initialize Cloudinary: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	products, closeStore, err := openProductStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Database.Driver, err)
	}
	defer closeStore()

	files, err := imageFiles(*dir)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *dir, err)
	}

	catalog := service.NewCatalogService(products, uploader)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, path := range files {
		in := productInput(filepath.Base(path), *category, *brand, rng)
		if err := createProduct(ctx, catalog, in, path); err != nil {
			log.Fatalf("Failed to seed %s: %v", path, err)
		}
		logger.Info("Seeded product", zap.String("name", in.Name), zap.Float64("price", in.Price))
	}
	logger.Info("Seeding complete", zap.Int("products", len(files)))
}

func openProductStore(ctx context.Context, cfg *config.Config) (store.ProductStore, func(), error) {
	switch cfg.Database.Driver {
	case "mongo":
		s, err := store.NewMongoStore(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := s.Migrate(); err != nil {
				s.Close()
				return nil, nil, err
			}
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("seeding needs a persistent store, got %q", cfg.Database.Driver)
	}
}

func createProduct(ctx context.Context, catalog *service.CatalogService, in service.ProductInput, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = catalog.CreateProduct(ctx, in, []service.ImageFile{{Filename: filepath.Base(path), Content: f}})
	return err
}

// imageFiles lists the images directly inside dir in name order.
func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// productName turns "red_lip-gloss.png" into "Red lip gloss".
func productName(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// productInput prices the product between 10 and 60 with two decimals.
func productInput(filename, category, brand string, rng *rand.Rand) service.ProductInput {
	name := productName(filename)
	price := decimal.NewFromFloat(rng.Float64()*50 + 10).Round(2)
	return service.ProductInput{
		Name:        name,
		Price:       price.InexactFloat64(),
		Description: fmt.Sprintf("This is the %s product.", name),
		Category:    category,
		Brand:       brand,
	}
}

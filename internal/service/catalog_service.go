package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"storefront/internal/media"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 30
	maxPageLimit     = 100
	// MaxPage bounds the page number so the row offset cannot overflow.
	MaxPage = 100000
	// MaxProductImages caps the images attached to one product.
	MaxProductImages = 5
)

// ProductQuery carries the catalog list filters and pagination.
type ProductQuery struct {
	ID       string
	Category string
	Brands   []string
	MinPrice *float64
	MaxPrice *float64
	Page     int
	Limit    int
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products   []models.Product `json:"products"`
	TotalCount int              `json:"totalCount"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}

// ProductInput holds the editable product fields.
type ProductInput struct {
	Name        string
	Price       float64
	Description string
	Category    string
	Brand       string
}

// ImageFile is an uploaded image waiting to be sent to the image host.
type ImageFile struct {
	Filename string
	Content  io.Reader
}

// CatalogService serves product browsing and admin product management.
type CatalogService struct {
	products store.ProductStore
	uploader media.Uploader
	logger   *zap.Logger
}

// NewCatalogService creates a catalog service. uploader may be nil, in which
// case product writes that carry images fail with ErrUpstream.
func NewCatalogService(products store.ProductStore, uploader media.Uploader) *CatalogService {
	return &CatalogService{
		products: products,
		uploader: uploader,
		logger:   util.GetLogger(),
	}
}

// ListProducts returns the requested page. Page defaults to 1 and Limit to 30.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		return nil, fmt.Errorf("%w: page must be at most %d", ErrValidation, MaxPage)
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	products, total, err := s.products.ListProducts(ctx, q.filter(), (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list products: %v", ErrPersistence, err)
	}
	return &ProductPage{Products: products, TotalCount: total, Page: page, Limit: limit}, nil
}

// GetProduct returns one product or ErrNotFound.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get product: %v", ErrPersistence, err)
	}
	return product, nil
}

// FieldValues returns facet data for field. "category" and "brand" yield
// value counts; "price" yields the min and max price. The brand facet is
// narrowed by category and by the price range when both bounds are given;
// the price facet is narrowed by category and brands.
func (s *CatalogService) FieldValues(ctx context.Context, field string, q ProductQuery) (any, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.FieldValues")
	defer span.End()

	var (
		values any
		err    error
	)
	switch field {
	case "category":
		values, err = s.products.CategoryCounts(ctx)
	case "brand":
		filter := store.ProductFilter{Category: q.Category}
		if q.MinPrice != nil && q.MaxPrice != nil {
			filter.MinPrice, filter.MaxPrice = q.MinPrice, q.MaxPrice
		}
		values, err = s.products.BrandCounts(ctx, filter)
	case "price":
		values, err = s.products.PriceBounds(ctx, store.ProductFilter{Category: q.Category, Brands: q.Brands})
	case "":
		return nil, fmt.Errorf("%w: field is required", ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unsupported field %q", ErrValidation, field)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s facet: %v", ErrPersistence, field, err)
	}
	return values, nil
}

// CreateProduct uploads between one and five images and stores the product.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput, files []ImageFile) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrValidation)
	}
	if len(files) > MaxProductImages {
		return nil, fmt.Errorf("%w: maximum %d images allowed", ErrValidation, MaxProductImages)
	}

	urls, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	product := &models.Product{ID: uuid.NewString(), Images: urls}
	in.apply(product)
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("%w: create product: %v", ErrPersistence, err)
	}
	s.logger.Info("Product created", zap.String("product_id", product.ID), zap.Int("images", len(urls)))
	return product, nil
}

// UpdateProduct replaces the product fields and sets its images to
// existingImages followed by the newly uploaded files.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput, existingImages []string, files []ImageFile) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if len(existingImages)+len(files) > MaxProductImages {
		return nil, fmt.Errorf("%w: maximum %d images allowed", ErrValidation, MaxProductImages)
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	urls, err := s.uploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	in.apply(product)
	product.Images = append(append([]string{}, existingImages...), urls...)
	if err := s.products.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: update product: %v", ErrPersistence, err)
	}
	return product, nil
}

// DeleteProduct removes a product. Carts that reference it are left alone.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	err := s.products.DeleteProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: delete product: %v", ErrPersistence, err)
	}
	return nil
}

func (s *CatalogService) uploadAll(ctx context.Context, files []ImageFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: image host is not configured", ErrUpstream)
	}
	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := s.uploader.Upload(ctx, f.Filename, f.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (q ProductQuery) filter() store.ProductFilter {
	return store.ProductFilter{
		ID:       q.ID,
		Category: q.Category,
		Brands:   q.Brands,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	}
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	return nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Price = in.Price
	p.Description = in.Description
	p.Category = in.Category
	p.Brand = in.Brand
}

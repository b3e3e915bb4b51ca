package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"storefront/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func images(n int) []ImageFile {
	files := make([]ImageFile, n)
	for i := range files {
		files[i] = ImageFile{Filename: string(rune('a'+i)) + ".png", Content: strings.NewReader("x")}
	}
	return files
}

func TestListProductsDefaults(t *testing.T) {
	st := store.NewMemoryStore()
	seedCatalog(st)
	svc := NewCatalogService(st, nil)

	page, err := svc.ListProducts(context.Background(), ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 30, page.Limit)
	assert.Equal(t, 3, page.TotalCount)
	assert.Len(t, page.Products, 3)

	page, err = svc.ListProducts(context.Background(), ProductQuery{Category: "makeup", Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	assert.Len(t, page.Products, 1)
}

func TestListProductsRejectsHugePage(t *testing.T) {
	st := store.NewMemoryStore()
	seedCatalog(st)
	svc := NewCatalogService(st, nil)
	ctx := context.Background()

	_, err := svc.ListProducts(ctx, ProductQuery{Page: math.MaxInt/2 + 1, Limit: 2})
	assert.ErrorIs(t, err, ErrValidation)

	page, err := svc.ListProducts(ctx, ProductQuery{Page: MaxPage, Limit: maxPageLimit})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, 3, page.TotalCount)
}

func TestFieldValues(t *testing.T) {
	st := store.NewMemoryStore()
	seedCatalog(st)
	svc := NewCatalogService(st, nil)
	ctx := context.Background()

	categories, err := svc.FieldValues(ctx, "category", ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, []store.FieldCount{{Value: "makeup", Count: 2}, {Value: "skincare", Count: 1}}, categories)

	lo, hi := 10.0, 50.0
	brands, err := svc.FieldValues(ctx, "brand", ProductQuery{MinPrice: &lo, MaxPrice: &hi})
	require.NoError(t, err)
	assert.Equal(t, []store.FieldCount{{Value: "mara", Count: 2}}, brands)

	// one bound alone does not narrow the brand facet
	brands, err = svc.FieldValues(ctx, "brand", ProductQuery{MinPrice: &lo})
	require.NoError(t, err)
	assert.Len(t, brands, 2)

	bounds, err := svc.FieldValues(ctx, "price", ProductQuery{Brands: []string{"mara"}})
	require.NoError(t, err)
	assert.Equal(t, store.PriceBounds{MinPrice: 19.99, MaxPrice: 45}, bounds)

	_, err = svc.FieldValues(ctx, "", ProductQuery{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.FieldValues(ctx, "color", ProductQuery{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateProduct(t *testing.T) {
	up := &fakeUploader{}
	svc := NewCatalogService(store.NewMemoryStore(), up)
	ctx := context.Background()
	in := ProductInput{Name: "Blush", Price: 12.5, Category: "makeup", Brand: "mara"}

	_, err := svc.CreateProduct(ctx, in, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateProduct(ctx, in, images(6))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateProduct(ctx, ProductInput{Price: 1}, images(1))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, up.names)

	product, err := svc.CreateProduct(ctx, in, images(2))
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, []string{"https://img.test/a.png", "https://img.test/b.png"}, []string(product.Images))

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blush", got.Name)
}

func TestCreateProductUploadFailure(t *testing.T) {
	svc := NewCatalogService(store.NewMemoryStore(), &fakeUploader{err: errors.New("cloudinary 500")})
	_, err := svc.CreateProduct(context.Background(), ProductInput{Name: "Blush"}, images(1))
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestUpdateProductMergesImages(t *testing.T) {
	up := &fakeUploader{}
	svc := NewCatalogService(store.NewMemoryStore(), up)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, ProductInput{Name: "Blush", Price: 10}, images(2))
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, product.ID, ProductInput{Name: "Blush"}, product.Images, images(4))
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.UpdateProduct(ctx, product.ID, ProductInput{Name: "Blush 2", Price: 11}, product.Images[:1], images(1))
	require.NoError(t, err)
	assert.Equal(t, "Blush 2", updated.Name)
	assert.Equal(t, []string{"https://img.test/a.png", "https://img.test/a.png"}, []string(updated.Images))

	_, err = svc.UpdateProduct(ctx, "missing", ProductInput{Name: "x"}, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, product.ID), ErrNotFound)
	_, err = svc.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

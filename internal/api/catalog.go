package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type productListQuery struct {
	ID       string   `form:"id"`
	Category string   `form:"category"`
	Brand    string   `form:"brand"`
	MinPrice *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	Page     int      `form:"page" binding:"omitempty,min=1,max=100000"`
	Limit    int      `form:"limit" binding:"omitempty,min=1"`
	Field    string   `form:"field"`
}

func (q productListQuery) toService() service.ProductQuery {
	var brands []string
	for _, b := range strings.Split(q.Brand, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brands = append(brands, b)
		}
	}
	return service.ProductQuery{
		ID:       q.ID,
		Category: q.Category,
		Brands:   brands,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Page:     q.Page,
		Limit:    q.Limit,
	}
}

type productForm struct {
	Name        string  `form:"name"`
	Price       float64 `form:"price"`
	Description string  `form:"description"`
	Category    string  `form:"category"`
	Brand       string  `form:"brand"`
	// ExistingImages is a JSON array of image URLs to keep on update.
	ExistingImages string `form:"existingImages"`
}

func (f productForm) input() service.ProductInput {
	return service.ProductInput{
		Name:        f.Name,
		Price:       f.Price,
		Description: f.Description,
		Category:    f.Category,
		Brand:       f.Brand,
	}
}

func (h *Handler) listProducts(c *gin.Context) {
	var q productListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	page, err := h.svc.Catalog.ListProducts(c.Request.Context(), q.toService())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) productFields(c *gin.Context) {
	var q productListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	values, err := h.svc.Catalog.FieldValues(c.Request.Context(), q.Field, q.toService())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"field": q.Field, "values": values})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.svc.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) createProduct(c *gin.Context) {
	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "Invalid form data", err)
		return
	}

	files, closeAll, err := imageFiles(c)
	if err != nil {
		badRequest(c, "Invalid image upload", err)
		return
	}
	defer closeAll()

	product, err := h.svc.Catalog.CreateProduct(c.Request.Context(), form.input(), files)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "Invalid form data", err)
		return
	}

	var existing []string
	if form.ExistingImages != "" {
		if err := json.Unmarshal([]byte(form.ExistingImages), &existing); err != nil {
			badRequest(c, "existingImages must be a JSON array of URLs", err)
			return
		}
	}

	files, closeAll, err := imageFiles(c)
	if err != nil {
		badRequest(c, "Invalid image upload", err)
		return
	}
	defer closeAll()

	product, err := h.svc.Catalog.UpdateProduct(c.Request.Context(), c.Param("id"), form.input(), existing, files)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.svc.Catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// imageFiles opens the files sent under the "images" form field. The
// returned func closes every opened file.
func imageFiles(c *gin.Context) ([]service.ImageFile, func(), error) {
	noop := func() {}
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}

	var (
		files  []service.ImageFile
		opened []multipart.File
	)
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, noop, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, service.ImageFile{Filename: fh.Filename, Content: f})
	}
	return files, closeAll, nil
}

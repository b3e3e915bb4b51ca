package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ListProducts returns one page of matching products and the total match count
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter, offset, limit int) ([]models.Product, int, error) {
	if err := checkWindow(offset, limit); err != nil {
		return nil, 0, err
	}
	where, args := productWhere(filter)

	countQuery, countArgs, err := sqlx.In("SELECT COUNT(*) FROM products"+where, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	pageArgs := append(append([]any{}, args...), limit, offset)
	query, queryArgs, err := sqlx.In("SELECT * FROM products"+where+" ORDER BY created_at, id LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, s.db.Rebind(query), queryArgs...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, name, price, description, category, brand, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query, product.ID, product.Name, product.Price,
		product.Description, product.Category, product.Brand, product.Images)
	if err := row.Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// UpdateProduct replaces the editable fields of a product
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, price = $2, description = $3, category = $4, brand = $5, images = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query, product.Name, product.Price, product.Description,
		product.Category, product.Brand, product.Images, product.ID)
	err := row.Scan(&product.CreatedAt, &product.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryCounts groups all products by category
func (s *Store) CategoryCounts(ctx context.Context) ([]FieldCount, error) {
	counts := []FieldCount{}
	err := s.db.SelectContext(ctx, &counts,
		"SELECT category AS value, COUNT(*) AS count FROM products GROUP BY category ORDER BY category")
	return counts, err
}

// BrandCounts groups the matching products by brand
func (s *Store) BrandCounts(ctx context.Context, filter ProductFilter) ([]FieldCount, error) {
	where, args := productWhere(filter)
	query, args, err := sqlx.In("SELECT brand AS value, COUNT(*) AS count FROM products"+where+" GROUP BY brand ORDER BY brand", args...)
	if err != nil {
		return nil, err
	}
	counts := []FieldCount{}
	err = s.db.SelectContext(ctx, &counts, s.db.Rebind(query), args...)
	return counts, err
}

// PriceBounds returns the min and max price of the matching products
func (s *Store) PriceBounds(ctx context.Context, filter ProductFilter) (PriceBounds, error) {
	where, args := productWhere(filter)
	query, args, err := sqlx.In("SELECT COALESCE(MIN(price), 0) AS min_price, COALESCE(MAX(price), 0) AS max_price FROM products"+where, args...)
	if err != nil {
		return PriceBounds{}, err
	}
	var bounds PriceBounds
	err = s.db.GetContext(ctx, &bounds, s.db.Rebind(query), args...)
	return bounds, err
}

// productWhere renders the filter with "?" placeholders for sqlx.In.
func productWhere(f ProductFilter) (string, []any) {
	var conds []string
	var args []any
	if f.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, f.ID)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if len(f.Brands) > 0 {
		conds = append(conds, "brand IN (?)")
		args = append(args, f.Brands)
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := s.db.QueryRowxContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by e-mail
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the document-database backend. Each cart is one document
// keyed by user id; orders are appended to their own collection.
type MongoStore struct {
	client   *mongo.Client
	carts    *mongo.Collection
	orders   *mongo.Collection
	products *mongo.Collection
	users    *mongo.Collection
	events   *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures the indexes exist.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		carts:    db.Collection("carts"),
		orders:   db.Collection("orders"),
		products: db.Collection("products"),
		users:    db.Collection("users"),
		events:   db.Collection("processed_events"),
	}
	if err := s.createIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	if _, err := s.orders.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "payment_info.payment_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	if _, err := s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "category", Value: 1}, {Key: "brand", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

// Ping checks the connection
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// GetCart retrieves the cart owned by userID
func (s *MongoStore) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.carts.FindOne(ctx, bson.M{"_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

// SaveCart upserts cart
func (s *MongoStore) SaveCart(ctx context.Context, cart *models.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Recount()
	if cart.Items == nil {
		cart.Items = models.CartItems{}
	}

	_, err := s.carts.ReplaceOne(ctx, bson.M{"_id": cart.UserID}, cart, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

// ClearCart empties the cart owned by userID
func (s *MongoStore) ClearCart(ctx context.Context, userID string) error {
	update := bson.M{"$set": bson.M{
		"items":      bson.A{},
		"item_count": 0,
		"updated_at": time.Now().UTC(),
	}}
	if _, err := s.carts.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// CreateOrder inserts a new order
func (s *MongoStore) CreateOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	if _, err := s.orders.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetOrderByID retrieves an order by ID
func (s *MongoStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.findOrder(ctx, bson.M{"_id": id})
}

// GetOrderByPaymentID retrieves an order by its checkout session ID
func (s *MongoStore) GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	return s.findOrder(ctx, bson.M{"payment_info.payment_id": paymentID})
}

func (s *MongoStore) findOrder(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	err := s.orders.FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// MarkOrderPaid flips a pending order to paid and reports whether it did
func (s *MongoStore) MarkOrderPaid(ctx context.Context, paymentID, paymentStatus string) (*models.Order, bool, error) {
	filter := bson.M{
		"payment_info.payment_id": paymentID,
		"status":                  models.OrderStatusPending,
	}
	update := bson.M{"$set": bson.M{
		"status":                      models.OrderStatusPaid,
		"payment_info.payment_status": paymentStatus,
		"updated_at":                  time.Now().UTC(),
	}}

	var order models.Order
	err := s.orders.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&order)
	if err == nil {
		return &order, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	existing, err := s.GetOrderByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ListOrdersByUser returns the orders of userID, newest first
func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	cur, err := s.orders.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := []models.Order{}
	if err := cur.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// GetProductByID retrieves a product by ID
func (s *MongoStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// GetProductsByIDs returns the products that exist among ids
func (s *MongoStore) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	products := []models.Product{}
	if len(ids) == 0 {
		return products, nil
	}
	cur, err := s.products.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// ListProducts returns one page of matching products and the total match count
func (s *MongoStore) ListProducts(ctx context.Context, filter ProductFilter, offset, limit int) ([]models.Product, int, error) {
	if err := checkWindow(offset, limit); err != nil {
		return nil, 0, err
	}
	match := productMatch(filter)

	total, err := s.products.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := s.products.Find(ctx, match, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	products := []models.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, int(total), nil
}

// CreateProduct inserts a new product
func (s *MongoStore) CreateProduct(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	if _, err := s.products.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// UpdateProduct replaces an existing product
func (s *MongoStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"name":        product.Name,
		"price":       product.Price,
		"description": product.Description,
		"category":    product.Category,
		"brand":       product.Brand,
		"images":      product.Images,
		"updated_at":  product.UpdatedAt,
	}}
	res, err := s.products.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes a product
func (s *MongoStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CategoryCounts counts products per category
func (s *MongoStore) CategoryCounts(ctx context.Context) ([]FieldCount, error) {
	return s.groupCounts(ctx, "$category", bson.M{})
}

// BrandCounts counts matching products per brand
func (s *MongoStore) BrandCounts(ctx context.Context, filter ProductFilter) ([]FieldCount, error) {
	return s.groupCounts(ctx, "$brand", productMatch(filter))
}

func (s *MongoStore) groupCounts(ctx context.Context, field string, match bson.M) ([]FieldCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.products.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", field, err)
	}
	counts := []FieldCount{}
	if err := cur.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode %s counts: %w", field, err)
	}
	return counts, nil
}

// PriceBounds returns the price range of matching products
func (s *MongoStore) PriceBounds(ctx context.Context, filter ProductFilter) (PriceBounds, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: productMatch(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"min_price": bson.M{"$min": "$price"},
			"max_price": bson.M{"$max": "$price"},
		}}},
	}
	cur, err := s.products.Aggregate(ctx, pipeline)
	if err != nil {
		return PriceBounds{}, fmt.Errorf("failed to aggregate price: %w", err)
	}
	var rows []PriceBounds
	if err := cur.All(ctx, &rows); err != nil {
		return PriceBounds{}, fmt.Errorf("failed to decode price bounds: %w", err)
	}
	if len(rows) == 0 {
		return PriceBounds{}, nil
	}
	return rows[0], nil
}

func productMatch(f ProductFilter) bson.M {
	match := bson.M{}
	if f.ID != "" {
		match["_id"] = f.ID
	}
	if f.Category != "" {
		match["category"] = f.Category
	}
	if len(f.Brands) > 0 {
		match["brand"] = bson.M{"$in": f.Brands}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		match["price"] = price
	}
	return match
}

// CreateUser inserts a new user
func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now().UTC()
	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by e-mail
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// IsEventProcessed reports whether eventID was already handled
func (s *MongoStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.events.CountDocuments(ctx, bson.M{"_id": eventID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkEventProcessed records eventID as handled
func (s *MongoStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.events.InsertOne(ctx, models.ProcessedEvent{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

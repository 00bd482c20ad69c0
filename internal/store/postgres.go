package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DBStore struct {
	queries
	DB *sql.DB
}

type queries struct {
	q querier
}

var (
	_ Store = (*DBStore)(nil)
	_ Tx    = (*queries)(nil)
)

func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{queries: queries{q: db}, DB: db}
}

func ConnectDB(driver, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func RunMigrations(db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	if migrationsDir == "" {
		return fmt.Errorf("migrations directory not specified")
	}

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	if len(migrationFiles) == 0 {
		logger.Info("no migration files found", zap.String("dir", migrationsDir))
		return nil
	}

	for _, fileName := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationsDir, fileName))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", fileName, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", fileName, err)
		}
		logger.Info("applied migration", zap.String("file", fileName))
	}
	return nil
}

func (s *DBStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// WithinTx runs fn in a READ COMMITTED transaction. Rows that a check
// depends on are locked with GetProductForUpdate; unique constraints settle
// concurrent inserts.
func (s *DBStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{q: tx}); err != nil {
		return translate(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translate(err))
	}
	return nil
}

// translate maps driver errors onto the store sentinels, keeping the cause.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%w: %s: %v", ErrUniqueViolation, pqErr.Constraint, err)
	case pqSerializationFailure, pqDeadlockDetected:
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return err
}

func expectOne(res sql.Result, err error, what string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func timeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

const productColumns = `
        id, seller_id, category_id, name_ar, name_en, description_ar, description_en,
        price, quantity, is_approved, approved_by, approved_at,
        disapproval_reason_ar, disapproval_reason_en,
        has_standalone_discount, standalone_discount_percentage,
        standalone_discount_start, standalone_discount_end,
        created_at, updated_at`

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p          models.Product
		approvedBy sql.NullInt64
		approvedAt sql.NullTime
		start, end sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.SellerID, &p.CategoryID, &p.NameAr, &p.NameEn, &p.DescriptionAr, &p.DescriptionEn,
		&p.Price, &p.Quantity, &p.IsApproved, &approvedBy, &approvedAt,
		&p.DisapprovalReasonAr, &p.DisapprovalReasonEn,
		&p.HasStandaloneDiscount, &p.StandaloneDiscountPercentage,
		&start, &end,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approvedBy.Valid {
		id := approvedBy.Int64
		p.ApprovedBy = &id
	}
	p.ApprovedAt = nullTimePtr(approvedAt)
	p.StandaloneDiscountStart = nullTimePtr(start)
	p.StandaloneDiscountEnd = nullTimePtr(end)
	return &p, nil
}

func (s *queries) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
        INSERT INTO products (seller_id, category_id, name_ar, name_en, description_ar, description_en,
            price, quantity, is_approved, has_standalone_discount, standalone_discount_percentage,
            standalone_discount_start, standalone_discount_end, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, NOW()), COALESCE($14, NOW()))
        RETURNING id, created_at, updated_at`

	var createdAt interface{}
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt
	}
	err := s.q.QueryRowContext(ctx, query,
		p.SellerID, p.CategoryID, p.NameAr, p.NameEn, p.DescriptionAr, p.DescriptionEn,
		p.Price, p.Quantity, p.IsApproved, p.HasStandaloneDiscount, p.StandaloneDiscountPercentage,
		timeArg(p.StandaloneDiscountStart), timeArg(p.StandaloneDiscountEnd), createdAt,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

func (s *queries) getProduct(ctx context.Context, id int64, lock bool) (*models.Product, error) {
	query := `SELECT` + productColumns + ` FROM products WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", translate(err))
	}
	return p, nil
}

func (s *queries) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.getProduct(ctx, id, false)
}

func (s *queries) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return s.getProduct(ctx, id, true)
}

func (s *queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
        UPDATE products SET
            category_id = $2, name_ar = $3, name_en = $4, description_ar = $5, description_en = $6,
            price = $7, quantity = $8, is_approved = $9, approved_by = $10, approved_at = $11,
            disapproval_reason_ar = $12, disapproval_reason_en = $13,
            has_standalone_discount = $14, standalone_discount_percentage = $15,
            standalone_discount_start = $16, standalone_discount_end = $17,
            updated_at = NOW()
        WHERE id = $1
        RETURNING updated_at`

	var approvedBy interface{}
	if p.ApprovedBy != nil {
		approvedBy = *p.ApprovedBy
	}
	err := s.q.QueryRowContext(ctx, query,
		p.ID, p.CategoryID, p.NameAr, p.NameEn, p.DescriptionAr, p.DescriptionEn,
		p.Price, p.Quantity, p.IsApproved, approvedBy, timeArg(p.ApprovedAt),
		p.DisapprovalReasonAr, p.DisapprovalReasonEn,
		p.HasStandaloneDiscount, p.StandaloneDiscountPercentage,
		timeArg(p.StandaloneDiscountStart), timeArg(p.StandaloneDiscountEnd),
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoRows
		}
		return fmt.Errorf("failed to update product: %w", translate(err))
	}
	return nil
}

// DeleteProduct relies on ON DELETE CASCADE for sales, cart and wishlist lines.
func (s *queries) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return expectOne(res, err, "delete product")
}

const discountedAtCond = `(
        (has_standalone_discount AND standalone_discount_percentage IS NOT NULL
            AND (standalone_discount_start IS NULL OR standalone_discount_start <= $%[1]d)
            AND (standalone_discount_end IS NULL OR standalone_discount_end >= $%[1]d))
        OR EXISTS (
            SELECT 1 FROM product_sales ps
            JOIN sale_events e ON e.id = ps.sale_event_id
            WHERE ps.product_id = products.id AND e.start_date <= $%[1]d AND e.end_date >= $%[1]d))`

func productOrder(f ProductFilter) string {
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}
	col := "created_at"
	if f.SortBy == SortPrice {
		col = "price"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}

func (s *queries) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Approved != nil {
		add("is_approved = $%d", *f.Approved)
	}
	if f.SellerID != 0 {
		add("seller_id = $%d", f.SellerID)
	}
	if f.CategoryID != 0 {
		add("category_id = $%d", f.CategoryID)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.MinQuantity != nil {
		add("quantity >= $%d", *f.MinQuantity)
	}
	if f.MaxQuantity != nil {
		add("quantity <= $%d", *f.MaxQuantity)
	}
	if f.InStock {
		where = append(where, "quantity > 0")
	}
	if !f.DiscountedAt.IsZero() {
		add(discountedAtCond, f.DiscountedAt)
	}

	query := `SELECT` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += productOrder(f)
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", translate(err))
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return out, nil
}

const saleEventColumns = `id, name_ar, name_en, description_ar, description_en, start_date, end_date, created_by, created_at`

func scanSaleEvent(row rowScanner) (*models.SaleEvent, error) {
	var e models.SaleEvent
	err := row.Scan(&e.ID, &e.NameAr, &e.NameEn, &e.DescriptionAr, &e.DescriptionEn,
		&e.StartDate, &e.EndDate, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *queries) CreateSaleEvent(ctx context.Context, e *models.SaleEvent) error {
	query := `
        INSERT INTO sale_events (name_ar, name_en, description_ar, description_en, start_date, end_date, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at`

	err := s.q.QueryRowContext(ctx, query,
		e.NameAr, e.NameEn, e.DescriptionAr, e.DescriptionEn, e.StartDate, e.EndDate, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create sale event: %w", translate(err))
	}
	return nil
}

func (s *queries) GetSaleEvent(ctx context.Context, id int64) (*models.SaleEvent, error) {
	query := `SELECT ` + saleEventColumns + ` FROM sale_events WHERE id = $1`
	e, err := scanSaleEvent(s.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sale event: %w", err)
	}
	return e, nil
}

func (s *queries) listSaleEvents(ctx context.Context, query string, args ...interface{}) ([]models.SaleEvent, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale events: %w", translate(err))
	}
	defer rows.Close()

	var out []models.SaleEvent
	for rows.Next() {
		e, err := scanSaleEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale event: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sale events: %w", err)
	}
	return out, nil
}

func (s *queries) ListActiveSaleEvents(ctx context.Context, now time.Time) ([]models.SaleEvent, error) {
	query := `
        SELECT ` + saleEventColumns + `
        FROM sale_events
        WHERE start_date <= $1 AND end_date >= $1
        ORDER BY id`
	return s.listSaleEvents(ctx, query, now)
}

func (s *queries) ListSaleEventsStartedBetween(ctx context.Context, from, to time.Time) ([]models.SaleEvent, error) {
	query := `
        SELECT ` + saleEventColumns + `
        FROM sale_events
        WHERE start_date > $1 AND start_date <= $2
        ORDER BY id`
	return s.listSaleEvents(ctx, query, from, to)
}

const productSaleSelect = `
        SELECT ps.id, ps.product_id, ps.sale_event_id, ps.discount_percentage,
            ps.start_date, ps.end_date, ps.created_at,
            e.id, e.name_ar, e.name_en, e.description_ar, e.description_en,
            e.start_date, e.end_date, e.created_by, e.created_at
        FROM product_sales ps
        JOIN sale_events e ON e.id = ps.sale_event_id`

func scanProductSale(row rowScanner) (*models.ProductSale, error) {
	var ps models.ProductSale
	e := &ps.Event
	err := row.Scan(
		&ps.ID, &ps.ProductID, &ps.SaleEventID, &ps.DiscountPercentage,
		&ps.StartDate, &ps.EndDate, &ps.CreatedAt,
		&e.ID, &e.NameAr, &e.NameEn, &e.DescriptionAr, &e.DescriptionEn,
		&e.StartDate, &e.EndDate, &e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

func (s *queries) CreateProductSale(ctx context.Context, ps *models.ProductSale) error {
	query := `
        INSERT INTO product_sales (product_id, sale_event_id, discount_percentage, start_date, end_date)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	err := s.q.QueryRowContext(ctx, query,
		ps.ProductID, ps.SaleEventID, ps.DiscountPercentage, ps.StartDate, ps.EndDate,
	).Scan(&ps.ID, &ps.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product sale: %w", translate(err))
	}

	event, err := s.GetSaleEvent(ctx, ps.SaleEventID)
	if err != nil {
		return err
	}
	if event != nil {
		ps.Event = *event
	}
	return nil
}

func (s *queries) getProductSale(ctx context.Context, where string, args ...interface{}) (*models.ProductSale, error) {
	ps, err := scanProductSale(s.q.QueryRowContext(ctx, productSaleSelect+" WHERE "+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product sale: %w", err)
	}
	return ps, nil
}

func (s *queries) GetProductSale(ctx context.Context, id int64) (*models.ProductSale, error) {
	return s.getProductSale(ctx, "ps.id = $1", id)
}

func (s *queries) GetProductSaleByPair(ctx context.Context, productID, saleEventID int64) (*models.ProductSale, error) {
	return s.getProductSale(ctx, "ps.product_id = $1 AND ps.sale_event_id = $2", productID, saleEventID)
}

func (s *queries) UpdateProductSalePercentage(ctx context.Context, id int64, pct decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx, `UPDATE product_sales SET discount_percentage = $2 WHERE id = $1`, id, pct)
	return expectOne(res, err, "update product sale")
}

func (s *queries) DeleteProductSale(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM product_sales WHERE id = $1`, id)
	return expectOne(res, err, "delete product sale")
}

func (s *queries) listProductSales(ctx context.Context, query string, args ...interface{}) ([]models.ProductSale, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list product sales: %w", translate(err))
	}
	defer rows.Close()

	var out []models.ProductSale
	for rows.Next() {
		ps, err := scanProductSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product sale: %w", err)
		}
		out = append(out, *ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product sales: %w", err)
	}
	return out, nil
}

func (s *queries) ListProductSalesForProducts(ctx context.Context, productIDs []int64) ([]models.ProductSale, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	return s.listProductSales(ctx, productSaleSelect+` WHERE ps.product_id = ANY($1) ORDER BY ps.id`, pq.Array(productIDs))
}

func (s *queries) ListLiveProductSalesInEvent(ctx context.Context, saleEventID int64, now time.Time) ([]models.ProductSale, error) {
	query := productSaleSelect + `
        WHERE ps.sale_event_id = $1 AND e.start_date <= $2 AND e.end_date >= $2
        ORDER BY ps.id`
	return s.listProductSales(ctx, query, saleEventID, now)
}

func (s *queries) ListProductSalesInEvent(ctx context.Context, saleEventID int64) ([]models.ProductSale, error) {
	return s.listProductSales(ctx, productSaleSelect+` WHERE ps.sale_event_id = $1 ORDER BY ps.id`, saleEventID)
}

func (s *queries) ListProductSalesBySeller(ctx context.Context, sellerID int64) ([]models.ProductSale, error) {
	query := productSaleSelect + `
        JOIN products p ON p.id = ps.product_id
        WHERE p.seller_id = $1
        ORDER BY ps.id`
	return s.listProductSales(ctx, query, sellerID)
}

func (s *queries) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	_, err := s.q.ExecContext(ctx, `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", translate(err))
	}

	var c models.Cart
	err = s.q.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &c, nil
}

func (s *queries) getCartItem(ctx context.Context, where string, args ...interface{}) (*models.CartItem, error) {
	var item models.CartItem
	err := s.q.QueryRowContext(ctx,
		`SELECT id, cart_id, product_id, quantity, added_at FROM cart_items WHERE `+where, args...,
	).Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

func (s *queries) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	return s.getCartItem(ctx, "id = $1", id)
}

func (s *queries) GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	return s.getCartItem(ctx, "cart_id = $1 AND product_id = $2", cartID, productID)
}

func (s *queries) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, cart_id, product_id, quantity, added_at FROM cart_items WHERE cart_id = $1 ORDER BY id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", translate(err))
	}
	defer rows.Close()

	var out []models.CartItem
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart items: %w", err)
	}
	return out, nil
}

func (s *queries) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	err := s.q.QueryRowContext(ctx, `
        INSERT INTO cart_items (cart_id, product_id, quantity)
        VALUES ($1, $2, $3)
        RETURNING id, added_at`,
		item.CartID, item.ProductID, item.Quantity,
	).Scan(&item.ID, &item.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to create cart item: %w", translate(err))
	}
	return nil
}

func (s *queries) UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) error {
	res, err := s.q.ExecContext(ctx, `UPDATE cart_items SET quantity = $2 WHERE id = $1`, id, quantity)
	return expectOne(res, err, "update cart item")
}

func (s *queries) DeleteCartItem(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	return expectOne(res, err, "delete cart item")
}

func (s *queries) GetOrCreateWishlist(ctx context.Context, userID int64) (*models.Wishlist, error) {
	_, err := s.q.ExecContext(ctx, `INSERT INTO wishlists (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create wishlist: %w", translate(err))
	}

	var w models.Wishlist
	err = s.q.QueryRowContext(ctx, `SELECT id, user_id, created_at FROM wishlists WHERE user_id = $1`, userID).
		Scan(&w.ID, &w.UserID, &w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}
	return &w, nil
}

func (s *queries) getWishlistItem(ctx context.Context, where string, args ...interface{}) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := s.q.QueryRowContext(ctx,
		`SELECT id, wishlist_id, product_id, added_at FROM wishlist_items WHERE `+where, args...,
	).Scan(&item.ID, &item.WishlistID, &item.ProductID, &item.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wishlist item: %w", err)
	}
	return &item, nil
}

func (s *queries) GetWishlistItem(ctx context.Context, id int64) (*models.WishlistItem, error) {
	return s.getWishlistItem(ctx, "id = $1", id)
}

func (s *queries) GetWishlistItemByProduct(ctx context.Context, wishlistID, productID int64) (*models.WishlistItem, error) {
	return s.getWishlistItem(ctx, "wishlist_id = $1 AND product_id = $2", wishlistID, productID)
}

func (s *queries) ListWishlistItems(ctx context.Context, wishlistID int64) ([]models.WishlistItem, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, wishlist_id, product_id, added_at FROM wishlist_items WHERE wishlist_id = $1 ORDER BY id`, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist items: %w", translate(err))
	}
	defer rows.Close()

	var out []models.WishlistItem
	for rows.Next() {
		var item models.WishlistItem
		if err := rows.Scan(&item.ID, &item.WishlistID, &item.ProductID, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlist items: %w", err)
	}
	return out, nil
}

func (s *queries) CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	err := s.q.QueryRowContext(ctx, `
        INSERT INTO wishlist_items (wishlist_id, product_id)
        VALUES ($1, $2)
        RETURNING id, added_at`,
		item.WishlistID, item.ProductID,
	).Scan(&item.ID, &item.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to create wishlist item: %w", translate(err))
	}
	return nil
}

func (s *queries) DeleteWishlistItem(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM wishlist_items WHERE id = $1`, id)
	return expectOne(res, err, "delete wishlist item")
}

func (s *queries) ListWishlistUsersForProduct(ctx context.Context, productID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx, `
        SELECT DISTINCT w.user_id
        FROM wishlist_items wi
        JOIN wishlists w ON w.id = wi.wishlist_id
        WHERE wi.product_id = $1
        ORDER BY w.user_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wishlist users: %w", translate(err))
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist user: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wishlist users: %w", err)
	}
	return out, nil
}

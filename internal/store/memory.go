package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/clock"
	"storefront/internal/models"
	"storefront/internal/pricing"

	"github.com/shopspring/decimal"
)

// MemoryStore is a thread-safe in-memory Store. Transactions run one at a
// time against a copy of the state that replaces the live state on commit.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	clock clock.Clock
}

type memState struct {
	nextID map[string]int64

	products     map[int64]models.Product
	saleEvents   map[int64]models.SaleEvent
	productSales map[int64]models.ProductSale

	carts      map[int64]models.Cart
	cartByUser map[int64]int64
	cartItems  map[int64]models.CartItem

	wishlists      map[int64]models.Wishlist
	wishlistByUser map[int64]int64
	wishlistItems  map[int64]models.WishlistItem
}

func newMemState() *memState {
	return &memState{
		nextID:         make(map[string]int64),
		products:       make(map[int64]models.Product),
		saleEvents:     make(map[int64]models.SaleEvent),
		productSales:   make(map[int64]models.ProductSale),
		carts:          make(map[int64]models.Cart),
		cartByUser:     make(map[int64]int64),
		cartItems:      make(map[int64]models.CartItem),
		wishlists:      make(map[int64]models.Wishlist),
		wishlistByUser: make(map[int64]int64),
		wishlistItems:  make(map[int64]models.WishlistItem),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (st *memState) clone() *memState {
	return &memState{
		nextID:         cloneMap(st.nextID),
		products:       cloneMap(st.products),
		saleEvents:     cloneMap(st.saleEvents),
		productSales:   cloneMap(st.productSales),
		carts:          cloneMap(st.carts),
		cartByUser:     cloneMap(st.cartByUser),
		cartItems:      cloneMap(st.cartItems),
		wishlists:      cloneMap(st.wishlists),
		wishlistByUser: cloneMap(st.wishlistByUser),
		wishlistItems:  cloneMap(st.wishlistItems),
	}
}

func (st *memState) id(table string) int64 {
	st.nextID[table]++
	return st.nextID[table]
}

// NewMemoryStore constructs an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(clock.System{})
}

// NewMemoryStoreWithClock constructs an empty MemoryStore whose default
// timestamps come from c, standing in for the database's NOW().
func NewMemoryStoreWithClock(c clock.Clock) *MemoryStore {
	return &MemoryStore{state: newMemState(), clock: c}
}

func (s *MemoryStore) tx(st *memState) *memTx {
	return &memTx{st: st, now: s.clock.Now}
}

// compile-time assertions
var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(s.tx(working)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func view[T any](s *MemoryStore, fn func(tx *memTx) (T, error)) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.tx(s.state))
}

// single statements validate before mutating, so they run on the live state
func apply(s *MemoryStore, fn func(tx *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.tx(s.state))
}

func (s *MemoryStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return apply(s, func(tx *memTx) error { return tx.CreateProduct(ctx, p) })
}

func (s *MemoryStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return view(s, func(tx *memTx) (*models.Product, error) { return tx.GetProduct(ctx, id) })
}

func (s *MemoryStore) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return view(s, func(tx *memTx) (*models.Product, error) { return tx.GetProductForUpdate(ctx, id) })
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	return apply(s, func(tx *memTx) error { return tx.UpdateProduct(ctx, p) })
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	return apply(s, func(tx *memTx) error { return tx.DeleteProduct(ctx, id) })
}

func (s *MemoryStore) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	return view(s, func(tx *memTx) ([]models.Product, error) { return tx.ListProducts(ctx, f) })
}

func (s *MemoryStore) CreateSaleEvent(ctx context.Context, e *models.SaleEvent) error {
	return apply(s, func(tx *memTx) error { return tx.CreateSaleEvent(ctx, e) })
}

func (s *MemoryStore) GetSaleEvent(ctx context.Context, id int64) (*models.SaleEvent, error) {
	return view(s, func(tx *memTx) (*models.SaleEvent, error) { return tx.GetSaleEvent(ctx, id) })
}

func (s *MemoryStore) ListActiveSaleEvents(ctx context.Context, now time.Time) ([]models.SaleEvent, error) {
	return view(s, func(tx *memTx) ([]models.SaleEvent, error) { return tx.ListActiveSaleEvents(ctx, now) })
}

func (s *MemoryStore) ListSaleEventsStartedBetween(ctx context.Context, from, to time.Time) ([]models.SaleEvent, error) {
	return view(s, func(tx *memTx) ([]models.SaleEvent, error) { return tx.ListSaleEventsStartedBetween(ctx, from, to) })
}

func (s *MemoryStore) CreateProductSale(ctx context.Context, ps *models.ProductSale) error {
	return apply(s, func(tx *memTx) error { return tx.CreateProductSale(ctx, ps) })
}

func (s *MemoryStore) GetProductSale(ctx context.Context, id int64) (*models.ProductSale, error) {
	return view(s, func(tx *memTx) (*models.ProductSale, error) { return tx.GetProductSale(ctx, id) })
}

func (s *MemoryStore) GetProductSaleByPair(ctx context.Context, productID, saleEventID int64) (*models.ProductSale, error) {
	return view(s, func(tx *memTx) (*models.ProductSale, error) { return tx.GetProductSaleByPair(ctx, productID, saleEventID) })
}

func (s *MemoryStore) UpdateProductSalePercentage(ctx context.Context, id int64, pct decimal.Decimal) error {
	return apply(s, func(tx *memTx) error { return tx.UpdateProductSalePercentage(ctx, id, pct) })
}

func (s *MemoryStore) DeleteProductSale(ctx context.Context, id int64) error {
	return apply(s, func(tx *memTx) error { return tx.DeleteProductSale(ctx, id) })
}

func (s *MemoryStore) ListProductSalesForProducts(ctx context.Context, productIDs []int64) ([]models.ProductSale, error) {
	return view(s, func(tx *memTx) ([]models.ProductSale, error) { return tx.ListProductSalesForProducts(ctx, productIDs) })
}

func (s *MemoryStore) ListLiveProductSalesInEvent(ctx context.Context, saleEventID int64, now time.Time) ([]models.ProductSale, error) {
	return view(s, func(tx *memTx) ([]models.ProductSale, error) {
		return tx.ListLiveProductSalesInEvent(ctx, saleEventID, now)
	})
}

func (s *MemoryStore) ListProductSalesInEvent(ctx context.Context, saleEventID int64) ([]models.ProductSale, error) {
	return view(s, func(tx *memTx) ([]models.ProductSale, error) { return tx.ListProductSalesInEvent(ctx, saleEventID) })
}

func (s *MemoryStore) ListProductSalesBySeller(ctx context.Context, sellerID int64) ([]models.ProductSale, error) {
	return view(s, func(tx *memTx) ([]models.ProductSale, error) { return tx.ListProductSalesBySeller(ctx, sellerID) })
}

func (s *MemoryStore) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart *models.Cart
	err := apply(s, func(tx *memTx) error {
		var err error
		cart, err = tx.GetOrCreateCart(ctx, userID)
		return err
	})
	return cart, err
}

func (s *MemoryStore) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	return view(s, func(tx *memTx) (*models.CartItem, error) { return tx.GetCartItem(ctx, id) })
}

func (s *MemoryStore) GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	return view(s, func(tx *memTx) (*models.CartItem, error) { return tx.GetCartItemByProduct(ctx, cartID, productID) })
}

func (s *MemoryStore) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	return view(s, func(tx *memTx) ([]models.CartItem, error) { return tx.ListCartItems(ctx, cartID) })
}

func (s *MemoryStore) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return apply(s, func(tx *memTx) error { return tx.CreateCartItem(ctx, item) })
}

func (s *MemoryStore) UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) error {
	return apply(s, func(tx *memTx) error { return tx.UpdateCartItemQuantity(ctx, id, quantity) })
}

func (s *MemoryStore) DeleteCartItem(ctx context.Context, id int64) error {
	return apply(s, func(tx *memTx) error { return tx.DeleteCartItem(ctx, id) })
}

func (s *MemoryStore) GetOrCreateWishlist(ctx context.Context, userID int64) (*models.Wishlist, error) {
	var wl *models.Wishlist
	err := apply(s, func(tx *memTx) error {
		var err error
		wl, err = tx.GetOrCreateWishlist(ctx, userID)
		return err
	})
	return wl, err
}

func (s *MemoryStore) GetWishlistItem(ctx context.Context, id int64) (*models.WishlistItem, error) {
	return view(s, func(tx *memTx) (*models.WishlistItem, error) { return tx.GetWishlistItem(ctx, id) })
}

func (s *MemoryStore) GetWishlistItemByProduct(ctx context.Context, wishlistID, productID int64) (*models.WishlistItem, error) {
	return view(s, func(tx *memTx) (*models.WishlistItem, error) {
		return tx.GetWishlistItemByProduct(ctx, wishlistID, productID)
	})
}

func (s *MemoryStore) ListWishlistItems(ctx context.Context, wishlistID int64) ([]models.WishlistItem, error) {
	return view(s, func(tx *memTx) ([]models.WishlistItem, error) { return tx.ListWishlistItems(ctx, wishlistID) })
}

func (s *MemoryStore) CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	return apply(s, func(tx *memTx) error { return tx.CreateWishlistItem(ctx, item) })
}

func (s *MemoryStore) DeleteWishlistItem(ctx context.Context, id int64) error {
	return apply(s, func(tx *memTx) error { return tx.DeleteWishlistItem(ctx, id) })
}

func (s *MemoryStore) ListWishlistUsersForProduct(ctx context.Context, productID int64) ([]int64, error) {
	return view(s, func(tx *memTx) ([]int64, error) { return tx.ListWishlistUsersForProduct(ctx, productID) })
}

// memTx runs queries against one memState without locking; callers hold the
// store lock.
type memTx struct {
	st  *memState
	now func() time.Time
}

func (tx *memTx) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return tx.now()
	}
	return t
}

func (tx *memTx) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.ID = tx.st.id("products")
	p.CreatedAt = tx.stamp(p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	tx.st.products[p.ID] = *p
	return nil
}

func (tx *memTx) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := tx.st.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tx *memTx) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return tx.GetProduct(ctx, id)
}

func (tx *memTx) UpdateProduct(ctx context.Context, p *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.st.products[p.ID]; !ok {
		return ErrNoRows
	}
	p.UpdatedAt = tx.now()
	tx.st.products[p.ID] = *p
	return nil
}

// DeleteProduct cascades like the foreign keys of the SQL schema.
func (tx *memTx) DeleteProduct(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.st.products[id]; !ok {
		return ErrNoRows
	}
	delete(tx.st.products, id)
	for psID, ps := range tx.st.productSales {
		if ps.ProductID == id {
			delete(tx.st.productSales, psID)
		}
	}
	for itemID, item := range tx.st.cartItems {
		if item.ProductID == id {
			delete(tx.st.cartItems, itemID)
		}
	}
	for itemID, item := range tx.st.wishlistItems {
		if item.ProductID == id {
			delete(tx.st.wishlistItems, itemID)
		}
	}
	return nil
}

// discountedAt mirrors the EXISTS clause of the SQL discount filter.
func (tx *memTx) discountedAt(p models.Product, now time.Time) bool {
	if pricing.StandaloneActive(p, now) {
		return true
	}
	for _, ps := range tx.st.productSales {
		if ps.ProductID != p.ID {
			continue
		}
		if e, ok := tx.st.saleEvents[ps.SaleEventID]; ok && e.ActiveAt(now) {
			return true
		}
	}
	return false
}

func (tx *memTx) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(tx.st.products))
	for _, p := range tx.st.products {
		if f.Approved != nil && p.IsApproved != *f.Approved {
			continue
		}
		if f.SellerID != 0 && p.SellerID != f.SellerID {
			continue
		}
		if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.MinQuantity != nil && p.Quantity < *f.MinQuantity {
			continue
		}
		if f.MaxQuantity != nil && p.Quantity > *f.MaxQuantity {
			continue
		}
		if f.InStock && p.Quantity <= 0 {
			continue
		}
		if !f.DiscountedAt.IsZero() && !tx.discountedAt(p, f.DiscountedAt) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !f.SortAsc {
			a, b = b, a
		}
		switch {
		case f.SortBy == SortPrice && !a.Price.Equal(b.Price):
			return a.Price.LessThan(b.Price)
		case f.SortBy != SortPrice && !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func paginate[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return in[:0]
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func (tx *memTx) CreateSaleEvent(ctx context.Context, e *models.SaleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.ID = tx.st.id("sale_events")
	e.CreatedAt = tx.stamp(e.CreatedAt)
	tx.st.saleEvents[e.ID] = *e
	return nil
}

func (tx *memTx) GetSaleEvent(ctx context.Context, id int64) (*models.SaleEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := tx.st.saleEvents[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (tx *memTx) listSaleEvents(keep func(models.SaleEvent) bool) []models.SaleEvent {
	out := make([]models.SaleEvent, 0)
	for _, e := range tx.st.saleEvents {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tx *memTx) ListActiveSaleEvents(ctx context.Context, now time.Time) ([]models.SaleEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.listSaleEvents(func(e models.SaleEvent) bool { return e.ActiveAt(now) }), nil
}

func (tx *memTx) ListSaleEventsStartedBetween(ctx context.Context, from, to time.Time) ([]models.SaleEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.listSaleEvents(func(e models.SaleEvent) bool {
		return e.StartDate.After(from) && !e.StartDate.After(to)
	}), nil
}

func (tx *memTx) withEvent(ps models.ProductSale) models.ProductSale {
	ps.Event = tx.st.saleEvents[ps.SaleEventID]
	return ps
}

func (tx *memTx) CreateProductSale(ctx context.Context, ps *models.ProductSale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, existing := range tx.st.productSales {
		if existing.ProductID == ps.ProductID && existing.SaleEventID == ps.SaleEventID {
			return ErrUniqueViolation
		}
	}
	ps.ID = tx.st.id("product_sales")
	ps.CreatedAt = tx.stamp(ps.CreatedAt)
	row := *ps
	row.Event = models.SaleEvent{}
	tx.st.productSales[ps.ID] = row
	*ps = tx.withEvent(row)
	return nil
}

func (tx *memTx) GetProductSale(ctx context.Context, id int64) (*models.ProductSale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, ok := tx.st.productSales[id]
	if !ok {
		return nil, nil
	}
	ps = tx.withEvent(ps)
	return &ps, nil
}

func (tx *memTx) GetProductSaleByPair(ctx context.Context, productID, saleEventID int64) (*models.ProductSale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ps := range tx.st.productSales {
		if ps.ProductID == productID && ps.SaleEventID == saleEventID {
			ps = tx.withEvent(ps)
			return &ps, nil
		}
	}
	return nil, nil
}

func (tx *memTx) UpdateProductSalePercentage(ctx context.Context, id int64, pct decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ps, ok := tx.st.productSales[id]
	if !ok {
		return ErrNoRows
	}
	ps.DiscountPercentage = pct
	tx.st.productSales[id] = ps
	return nil
}

func (tx *memTx) DeleteProductSale(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.st.productSales[id]; !ok {
		return ErrNoRows
	}
	delete(tx.st.productSales, id)
	return nil
}

func (tx *memTx) listProductSales(keep func(models.ProductSale) bool) []models.ProductSale {
	out := make([]models.ProductSale, 0)
	for _, ps := range tx.st.productSales {
		ps = tx.withEvent(ps)
		if keep(ps) {
			out = append(out, ps)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tx *memTx) ListProductSalesForProducts(ctx context.Context, productIDs []int64) ([]models.ProductSale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[int64]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	return tx.listProductSales(func(ps models.ProductSale) bool {
		_, ok := wanted[ps.ProductID]
		return ok
	}), nil
}

func (tx *memTx) ListLiveProductSalesInEvent(ctx context.Context, saleEventID int64, now time.Time) ([]models.ProductSale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.listProductSales(func(ps models.ProductSale) bool {
		return ps.SaleEventID == saleEventID && ps.Event.ActiveAt(now)
	}), nil
}

func (tx *memTx) ListProductSalesInEvent(ctx context.Context, saleEventID int64) ([]models.ProductSale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.listProductSales(func(ps models.ProductSale) bool { return ps.SaleEventID == saleEventID }), nil
}

func (tx *memTx) ListProductSalesBySeller(ctx context.Context, sellerID int64) ([]models.ProductSale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.listProductSales(func(ps models.ProductSale) bool {
		p, ok := tx.st.products[ps.ProductID]
		return ok && p.SellerID == sellerID
	}), nil
}

func (tx *memTx) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id, ok := tx.st.cartByUser[userID]; ok {
		c := tx.st.carts[id]
		return &c, nil
	}
	c := models.Cart{ID: tx.st.id("carts"), UserID: userID, CreatedAt: tx.now()}
	tx.st.carts[c.ID] = c
	tx.st.cartByUser[userID] = c.ID
	return &c, nil
}

func (tx *memTx) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, ok := tx.st.cartItems[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (tx *memTx) GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, item := range tx.st.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, nil
}

func (tx *memTx) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.CartItem, 0)
	for _, item := range tx.st.cartItems {
		if item.CartID == cartID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *memTx) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, existing := range tx.st.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			return ErrUniqueViolation
		}
	}
	item.ID = tx.st.id("cart_items")
	item.AddedAt = tx.stamp(item.AddedAt)
	tx.st.cartItems[item.ID] = *item
	return nil
}

func (tx *memTx) UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item, ok := tx.st.cartItems[id]
	if !ok {
		return ErrNoRows
	}
	item.Quantity = quantity
	tx.st.cartItems[id] = item
	return nil
}

func (tx *memTx) DeleteCartItem(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.st.cartItems[id]; !ok {
		return ErrNoRows
	}
	delete(tx.st.cartItems, id)
	return nil
}

func (tx *memTx) GetOrCreateWishlist(ctx context.Context, userID int64) (*models.Wishlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id, ok := tx.st.wishlistByUser[userID]; ok {
		w := tx.st.wishlists[id]
		return &w, nil
	}
	w := models.Wishlist{ID: tx.st.id("wishlists"), UserID: userID, CreatedAt: tx.now()}
	tx.st.wishlists[w.ID] = w
	tx.st.wishlistByUser[userID] = w.ID
	return &w, nil
}

func (tx *memTx) GetWishlistItem(ctx context.Context, id int64) (*models.WishlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, ok := tx.st.wishlistItems[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (tx *memTx) GetWishlistItemByProduct(ctx context.Context, wishlistID, productID int64) (*models.WishlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, item := range tx.st.wishlistItems {
		if item.WishlistID == wishlistID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, nil
}

func (tx *memTx) ListWishlistItems(ctx context.Context, wishlistID int64) ([]models.WishlistItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.WishlistItem, 0)
	for _, item := range tx.st.wishlistItems {
		if item.WishlistID == wishlistID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *memTx) CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, existing := range tx.st.wishlistItems {
		if existing.WishlistID == item.WishlistID && existing.ProductID == item.ProductID {
			return ErrUniqueViolation
		}
	}
	item.ID = tx.st.id("wishlist_items")
	item.AddedAt = tx.stamp(item.AddedAt)
	tx.st.wishlistItems[item.ID] = *item
	return nil
}

func (tx *memTx) DeleteWishlistItem(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := tx.st.wishlistItems[id]; !ok {
		return ErrNoRows
	}
	delete(tx.st.wishlistItems, id)
	return nil
}

func (tx *memTx) ListWishlistUsersForProduct(ctx context.Context, productID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	out := make([]int64, 0)
	for _, item := range tx.st.wishlistItems {
		if item.ProductID != productID {
			continue
		}
		userID := tx.st.wishlists[item.WishlistID].UserID
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		out = append(out, userID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

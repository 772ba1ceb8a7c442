package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/model"
)

const (
	userColumns         = `id, first_name, last_name, email, mobile, password_hash, image_url, role, addresses, cart_id, orders, created_at`
	cartColumns         = `id, user_id, cart_items, total_price, total_items`
	productColumns      = `id, name, description, price, available_in_stock, image_url, owner, average_rating, category_id, cart_items, created_at`
	paymentColumns      = `id, type, orders, created_at`
	orderColumns        = `id, user_id, user_name, date, delivery_fee, payment_id, user_address, total_price, cart_items, shipment_status`
	notificationColumns = `id, user_id, order_id, shipment_status, created_at`
	eventColumns        = `id, aggregate_id, aggregate_type, event_type, data, version, created_at`
)

// PostgresStore keeps documents in PostgreSQL, with embedded line items and
// addresses in JSONB columns and back-references in text arrays.
type PostgresStore struct {
	queries
	db  *sqlx.DB
	log logrus.FieldLogger
}

func NewPostgresStore(db *sqlx.DB, log logrus.FieldLogger) *PostgresStore {
	return &PostgresStore{
		queries: queries{q: db},
		db:      db,
		log:     log,
	}
}

// ConnectPostgres opens and verifies a pooled connection.
func ConnectPostgres(ctx context.Context, connStr string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return db, nil
}

// RunInTx implements Store. Row locks taken through LockCart and LockOrder
// serialize concurrent mutations of the same cart or order.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&queries{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Warn("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// queries implements Tx over either the pool or a transaction.
type queries struct {
	q sqlx.ExtContext
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func duplicate(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (s *queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "user "+id)
	}
	return row.toModel()
}

func (s *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, notFound(err, "user "+email)
	}
	return row.toModel()
}

func (s *queries) getCart(ctx context.Context, userID, suffix string) (*model.Cart, error) {
	var row cartRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`+suffix, userID)
	if err != nil {
		return nil, notFound(err, "cart for user "+userID)
	}
	return row.toModel()
}

func (s *queries) GetCartByUser(ctx context.Context, userID string) (*model.Cart, error) {
	return s.getCart(ctx, userID, "")
}

func (s *queries) LockCart(ctx context.Context, userID string) (*model.Cart, error) {
	return s.getCart(ctx, userID, " FOR UPDATE")
}

func (s *queries) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var row productRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "product "+id)
	}
	return row.toModel(), nil
}

func (s *queries) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	var row paymentRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "payment "+id)
	}
	return row.toModel(), nil
}

func (s *queries) getOrder(ctx context.Context, id, suffix string) (*model.Order, error) {
	var row orderRow
	err := sqlx.GetContext(ctx, s.q, &row, `SELECT `+orderColumns+` FROM orders WHERE id = $1`+suffix, id)
	if err != nil {
		return nil, notFound(err, "order "+id)
	}
	return row.toModel()
}

func (s *queries) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.getOrder(ctx, id, "")
}

func (s *queries) LockOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.getOrder(ctx, id, " FOR UPDATE")
}

func (s *queries) selectOrders(ctx context.Context, query string, args ...any) ([]*model.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	orders := make([]*model.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *queries) ListOrders(ctx context.Context) ([]*model.Order, error) {
	return s.selectOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY seq`)
}

func (s *queries) ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.selectOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY seq`, userID)
}

func (s *queries) ListNotifications(ctx context.Context, userID string) ([]*model.Notification, error) {
	var rows []notificationRow
	err := sqlx.SelectContext(ctx, s.q, &rows,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	out := make([]*model.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *queries) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	var rows []eventRow
	err := sqlx.SelectContext(ctx, s.q, &rows,
		`SELECT `+eventColumns+` FROM events WHERE aggregate_id = $1 ORDER BY version ASC`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}

func (s *queries) InsertUser(ctx context.Context, u *model.User) error {
	addresses, err := jsonString(u.Addresses)
	if err != nil {
		return fmt.Errorf("encode addresses: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.Mobile, u.PasswordHash, u.ImageURL, u.Role,
		addresses, u.CartID, pq.Array(nonNil(u.Orders)), u.CreatedAt,
	)
	if err != nil {
		return duplicate(err, "insert user "+u.ID)
	}
	return nil
}

func (s *queries) InsertCart(ctx context.Context, c *model.Cart) error {
	items, err := jsonString(model.CloneLineItems(c.CartItems))
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO carts (`+cartColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, items, c.TotalPrice, c.TotalItems,
	)
	if err != nil {
		return duplicate(err, "insert cart "+c.ID)
	}
	return nil
}

func (s *queries) SaveCart(ctx context.Context, c *model.Cart) error {
	items, err := jsonString(model.CloneLineItems(c.CartItems))
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE carts SET cart_items = $2, total_price = $3, total_items = $4, updated_at = NOW() WHERE user_id = $1`,
		c.UserID, items, c.TotalPrice, c.TotalItems,
	)
	if err != nil {
		return fmt.Errorf("save cart %s: %w", c.ID, err)
	}
	return expectRow(res, "cart for user "+c.UserID)
}

func (s *queries) InsertProduct(ctx context.Context, p *model.Product) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.Description, p.Price, p.AvailableInStock, p.ImageURL, p.Owner,
		p.AverageRating, p.CategoryID, pq.Array(nonNil(p.CartItems)), p.CreatedAt,
	)
	if err != nil {
		return duplicate(err, "insert product "+p.ID)
	}
	return nil
}

func (s *queries) InsertPayment(ctx context.Context, p *model.Payment) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO payments (`+paymentColumns+`) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Type, pq.Array(nonNil(p.Orders)), p.CreatedAt,
	)
	if err != nil {
		return duplicate(err, "insert payment "+p.ID)
	}
	return nil
}

func (s *queries) InsertOrder(ctx context.Context, o *model.Order) error {
	address, err := jsonString(o.UserAddress)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	items, err := jsonString(model.CloneLineItems(o.CartItems))
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.UserID, o.UserName, o.Date, o.DeliveryFee, o.PaymentID, address,
		o.TotalPrice, items, string(o.ShipmentStatus),
	)
	if err != nil {
		return duplicate(err, "insert order "+o.ID)
	}
	return nil
}

func (s *queries) UpdateOrderStatus(ctx context.Context, orderID string, status model.ShipmentStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE orders SET shipment_status = $2 WHERE id = $1`, orderID, string(status))
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	return expectRow(res, "order "+orderID)
}

func (s *queries) productExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.q, &exists, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id)
	return exists, err
}

func (s *queries) AddCartRef(ctx context.Context, productID, itemID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE products SET cart_items = array_append(cart_items, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(cart_items))`,
		productID, itemID,
	)
	if err != nil {
		return fmt.Errorf("add cart ref to product %s: %w", productID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	exists, err := s.productExists(ctx, productID)
	if err != nil {
		return fmt.Errorf("product %s: %w", productID, err)
	}
	if !exists {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	return nil
}

func (s *queries) RemoveCartRefs(ctx context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := s.q.ExecContext(ctx,
		`UPDATE products
		 SET cart_items = ARRAY(
		     SELECT ref FROM unnest(cart_items) WITH ORDINALITY AS t(ref, n)
		     WHERE NOT ref = ANY($1::text[]) ORDER BY n)
		 WHERE cart_items && $1::text[]`,
		pq.Array(itemIDs),
	)
	if err != nil {
		return fmt.Errorf("remove cart refs: %w", err)
	}
	return nil
}

func (s *queries) DecrementStock(ctx context.Context, productID string, qty int) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE products SET available_in_stock = available_in_stock - $2
		 WHERE id = $1 AND available_in_stock >= $2`,
		productID, qty,
	)
	if err != nil {
		return fmt.Errorf("decrement stock of product %s: %w", productID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	exists, err := s.productExists(ctx, productID)
	if err != nil {
		return fmt.Errorf("product %s: %w", productID, err)
	}
	if !exists {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	return fmt.Errorf("product %s, need %d: %w", productID, qty, ErrInsufficientStock)
}

func (s *queries) AppendUserOrder(ctx context.Context, userID, orderID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET orders = array_append(orders, $2) WHERE id = $1`, userID, orderID)
	if err != nil {
		return fmt.Errorf("append order to user %s: %w", userID, err)
	}
	return expectRow(res, "user "+userID)
}

func (s *queries) AppendPaymentOrder(ctx context.Context, paymentID, orderID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE payments SET orders = array_append(orders, $2) WHERE id = $1`, paymentID, orderID)
	if err != nil {
		return fmt.Errorf("append order to payment %s: %w", paymentID, err)
	}
	return expectRow(res, "payment "+paymentID)
}

func (s *queries) SaveNotification(ctx context.Context, n *model.Notification) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.UserID, n.Status.OrderID, string(n.Status.ShipmentStatus), n.CreatedAt,
	)
	if err != nil {
		return duplicate(err, "insert notification "+n.ID)
	}
	return nil
}

func (s *queries) AppendEvent(ctx context.Context, e *Event) error {
	var current int
	err := sqlx.GetContext(ctx, s.q, &current,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1`, e.AggregateID)
	if err != nil {
		return fmt.Errorf("event version for %s: %w", e.AggregateID, err)
	}
	e.Version = current + 1

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.AggregateID, e.AggregateType, e.EventType, string(e.Data), e.Version, e.Timestamp,
	)
	if err != nil {
		return duplicate(err, "insert event "+e.ID)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lumashop/lumashop/internal/models"
)

const orderColumns = `id, user_id, full_name, email, shipping_address, amount_paid::text, date_ordered, shipped, date_shipped`

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// CreateWithItems inserts the order and its items in a single transaction.
// On success the generated ids and order date are written back to the
// arguments.
func (s *OrderStore) CreateWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}

	return inTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (user_id, full_name, email, shipping_address, amount_paid)
			VALUES ($1, $2, $3, $4, $5::numeric)
			RETURNING id, date_ordered
		`, order.UserID, order.FullName, order.Email, order.ShippingAddress, order.AmountPaid.StringFixed(2)).
			Scan(&order.ID, &order.DateOrdered)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		if len(items) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i := range items {
			items[i].OrderID = order.ID
			items[i].UserID = order.UserID
			batch.Queue(`
				INSERT INTO order_items (order_id, product_id, user_id, quantity, price)
				VALUES ($1, $2, $3, $4, $5::numeric)
				RETURNING id
			`, order.ID, items[i].ProductID, items[i].UserID, items[i].Quantity, items[i].Price.StringFixed(2))
		}

		results := tx.SendBatch(ctx, batch)
		for i := range items {
			if err := results.QueryRow().Scan(&items[i].ID); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert item for product %d: %w", items[i].ProductID, err)
			}
		}
		return results.Close()
	})
}

func (s *OrderStore) GetByID(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return order, nil
}

// ListByShipped returns orders filtered by shipping state, oldest first.
func (s *OrderStore) ListByShipped(ctx context.Context, shipped bool) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE shipped = $1
		ORDER BY date_ordered, id
	`, shipped)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return orders, nil
}

func (s *OrderStore) ItemsForOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, user_id, quantity, price::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var (
			item  models.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.UserID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid item price %q: %w", price, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}
	return items, nil
}

// SetShipped writes the shipped flag. The previous flag is read under a row
// lock; date_shipped is stamped with at only when the order moves from
// unshipped to shipped. The second return value reports that transition.
func (s *OrderStore) SetShipped(ctx context.Context, orderID int64, shipped bool, at time.Time) (*models.Order, bool, error) {
	var (
		order      *models.Order
		transition bool
	)

	err := inTx(ctx, s.pool, func(tx pgx.Tx) error {
		var current bool
		err := tx.QueryRow(ctx, `SELECT shipped FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to lock order %d: %w", orderID, err)
		}

		transition = shipped && !current
		if transition {
			_, err = tx.Exec(ctx, `UPDATE orders SET shipped = TRUE, date_shipped = $2 WHERE id = $1`, orderID, at)
		} else {
			_, err = tx.Exec(ctx, `UPDATE orders SET shipped = $2 WHERE id = $1`, orderID, shipped)
		}
		if err != nil {
			return fmt.Errorf("failed to update order %d: %w", orderID, err)
		}

		order, err = scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
		if err != nil {
			return fmt.Errorf("failed to reload order %d: %w", orderID, err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, transition, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order  models.Order
		amount string
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.FullName,
		&order.Email,
		&order.ShippingAddress,
		&amount,
		&order.DateOrdered,
		&order.Shipped,
		&order.DateShipped,
	)
	if err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	order.AmountPaid = parsed
	return &order, nil
}

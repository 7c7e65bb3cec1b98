// Package postgres implements store.Store on a pgx connection pool. SQL
// is written by hand; bundle members and custom compositions are stored
// as JSONB alongside the flat item columns.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marejada-pos/api/internal/enum"
	"github.com/marejada-pos/api/internal/store"
	"github.com/shopspring/decimal"
)

type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for seeding tools.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, branch_id, active
		FROM users
		WHERE username = $1 AND active = true
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.BranchID, &u.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListCatalog(ctx context.Context, branchID uuid.UUID) ([]store.CatalogItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, branch_id, name, category, COALESCE(size, ''), price::text, addon, bundle, active
		FROM catalog_items
		WHERE branch_id = $1 AND active = true
		ORDER BY category, name, size
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]store.CatalogItem, 0, 64)
	for rows.Next() {
		var it store.CatalogItem
		var price string
		if err := rows.Scan(&it.ID, &it.BranchID, &it.Name, &it.Category, &it.Size, &price, &it.Addon, &it.Bundle, &it.Active); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("catalog item %s: bad price %q", it.ID, price)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateOrder(ctx context.Context, order store.Order) (*store.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrInvalidOrder
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.Status = enum.OrderStatusWaiting
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.OrderNumber == "" {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
			return nil, err
		}
		order.OrderNumber = fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), seq)
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].Status = enum.ItemStatusActive
	}
	order.Total = order.ActiveTotal()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, branch_id, order_number, status, service_type, comments, total, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, order.ID, order.BranchID, order.OrderNumber, int(order.Status), order.ServiceType, order.Comments,
		order.Total.String(), order.CreatedBy, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, it := range order.Items {
		if err := insertItem(ctx, tx, order.ID, it); err != nil {
			return nil, err
		}
	}

	for _, p := range order.Payments {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO payments (id, order_id, method, amount, created_at)
			VALUES ($1,$2,$3,$4,$5)
		`, p.ID, order.ID, p.Method, p.Amount.String(), now)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, order.BranchID, order.ID)
}

func (s *Store) GetOrder(ctx context.Context, branchID, orderID uuid.UUID) (*store.Order, error) {
	var o store.Order
	var status int
	var total string
	err := s.pool.QueryRow(ctx, `
		SELECT id, branch_id, order_number, status, service_type, COALESCE(comments, ''), total::text, created_by, created_at, updated_at
		FROM orders
		WHERE id = $1 AND branch_id = $2
	`, orderID, branchID).Scan(&o.ID, &o.BranchID, &o.OrderNumber, &status, &o.ServiceType, &o.Comments, &total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	o.Status = enum.OrderStatus(status)
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("order %s: bad total %q", o.ID, total)
	}

	if o.Items, err = s.listItems(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.Payments, err = s.listPayments(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) ListQueue(ctx context.Context, branchID uuid.UUID) ([]store.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id
		FROM orders
		WHERE branch_id = $1 AND status IN ($2, $3)
		ORDER BY created_at ASC
	`, branchID, int(enum.OrderStatusWaiting), int(enum.OrderStatusPreparing))
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, 32)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	queue := make([]store.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.GetOrder(ctx, branchID, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, err
		}
		queue = append(queue, *o)
	}
	return queue, nil
}

func (s *Store) UpdateOrder(ctx context.Context, branchID, orderID uuid.UUID, edit store.OrderEdit) (*store.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status int
	err = tx.QueryRow(ctx, `
		SELECT status FROM orders WHERE id = $1 AND branch_id = $2 FOR UPDATE
	`, orderID, branchID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if enum.OrderStatus(status) == enum.OrderStatusCancelled {
		return nil, store.ErrStatusConflict
	}

	for _, change := range edit.Items {
		switch {
		case change.ID != nil:
			if change.Status == enum.ItemStatusCancelled {
				res, err := tx.Exec(ctx, `
					UPDATE order_items SET status = 0 WHERE id = $1 AND order_id = $2
				`, *change.ID, orderID)
				if err != nil {
					return nil, err
				}
				if res.RowsAffected() == 0 {
					return nil, fmt.Errorf("%w: unknown item %s", store.ErrInvalidOrder, *change.ID)
				}
				continue
			}
			if change.Quantity < 1 {
				return nil, fmt.Errorf("%w: quantity must be >= 1", store.ErrInvalidOrder)
			}
			res, err := tx.Exec(ctx, `
				UPDATE order_items SET status = 1, quantity = $3 WHERE id = $1 AND order_id = $2
			`, *change.ID, orderID, change.Quantity)
			if err != nil {
				return nil, err
			}
			if res.RowsAffected() == 0 {
				return nil, fmt.Errorf("%w: unknown item %s", store.ErrInvalidOrder, *change.ID)
			}
		case change.Create != nil:
			created := *change.Create
			created.ID = uuid.New()
			created.Status = enum.ItemStatusActive
			if err := insertItem(ctx, tx, orderID, created); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: item entry needs an id or a creation body", store.ErrInvalidOrder)
		}
	}

	var active int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM order_items WHERE order_id = $1 AND status = 1
	`, orderID).Scan(&active); err != nil {
		return nil, err
	}
	if active == 0 {
		return nil, fmt.Errorf("%w: edit would leave no active items", store.ErrInvalidOrder)
	}

	next := enum.OrderStatus(status)
	// An edited completed order goes back onto the kitchen queue.
	if next == enum.OrderStatusCompleted {
		next = enum.OrderStatusPreparing
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = $2,
		    service_type = CASE WHEN $3::text = '' THEN service_type ELSE $3::text END,
		    comments = $4,
		    total = (
				SELECT COALESCE(SUM(unit_price * quantity), 0)
				FROM order_items
				WHERE order_id = orders.id AND status = 1
		    ),
		    updated_at = now()
		WHERE id = $1
	`, orderID, int(next), edit.ServiceType, edit.Comments)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, branchID, orderID)
}

func (s *Store) TransitionOrder(ctx context.Context, branchID, orderID uuid.UUID, from, to enum.OrderStatus) (*store.Order, error) {
	res, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $4, updated_at = now()
		WHERE id = $1 AND branch_id = $2 AND status = $3
	`, orderID, branchID, int(from), int(to))
	if err != nil {
		return nil, err
	}
	if res.RowsAffected() == 0 {
		// Distinguish a missing order from a lost race.
		var current int
		err := s.pool.QueryRow(ctx, `
			SELECT status FROM orders WHERE id = $1 AND branch_id = $2
		`, orderID, branchID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		return nil, store.ErrStatusConflict
	}
	return s.GetOrder(ctx, branchID, orderID)
}

func insertItem(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, it store.OrderItem) error {
	var members, custom []byte
	var err error
	if len(it.Members) > 0 {
		if members, err = json.Marshal(it.Members); err != nil {
			return err
		}
	}
	if it.Custom != nil {
		if custom, err = json.Marshal(it.Custom); err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO order_items (id, order_id, catalog_id, kind, name, category, size, quantity, unit_price, status, addon, bundle, members, custom)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, it.ID, orderID, nilUUID(it.CatalogID), string(it.Kind), it.Name, it.Category, it.Size,
		it.Quantity, it.UnitPrice.String(), int(it.Status), it.Addon, it.Bundle, members, custom)
	return err
}

func (s *Store) listItems(ctx context.Context, orderID uuid.UUID) ([]store.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(catalog_id, '00000000-0000-0000-0000-000000000000'::uuid), kind, name, category,
			COALESCE(size, ''), quantity, unit_price::text, status, addon, bundle, members, custom
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]store.OrderItem, 0, 8)
	for rows.Next() {
		var it store.OrderItem
		var kind, price string
		var status int
		var members, custom []byte
		if err := rows.Scan(&it.ID, &it.CatalogID, &kind, &it.Name, &it.Category, &it.Size,
			&it.Quantity, &price, &status, &it.Addon, &it.Bundle, &members, &custom); err != nil {
			return nil, err
		}
		it.Kind = enum.LineKind(kind)
		it.Status = enum.ItemStatus(status)
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order item %s: bad unit price %q", it.ID, price)
		}
		if len(members) > 0 {
			if err := json.Unmarshal(members, &it.Members); err != nil {
				return nil, err
			}
		}
		if len(custom) > 0 {
			it.Custom = &store.CustomComposition{}
			if err := json.Unmarshal(custom, it.Custom); err != nil {
				return nil, err
			}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) listPayments(ctx context.Context, orderID uuid.UUID) ([]store.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, method, amount::text
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []store.Payment
	for rows.Next() {
		var p store.Payment
		var amount string
		if err := rows.Scan(&p.ID, &p.Method, &amount); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payment %s: bad amount %q", p.ID, amount)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func nilUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

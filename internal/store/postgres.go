package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"storesync/internal/model"
)

// Postgres implements OrderStore and ProductStore over a pgx pool. Row
// ownership is enforced per tenant in every statement.
type Postgres struct {
	DB *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres { return &Postgres{DB: db} }

const uniqueViolation = "23505"

// classify maps a pgx error to the store taxonomy. Anything that is not a
// constraint violation or a missing row counts as transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return Transient(op, err)
}

func (p *Postgres) ExistsBySerial(ctx context.Context, tenantID, serial string) (bool, error) {
	var exists bool
	err := p.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE tenant_id=$1 AND serial=$2)`,
		tenantID, serial).Scan(&exists)
	if err != nil {
		return false, classify("exists by serial", err)
	}
	return exists, nil
}

// Insert writes the order header and its items in one transaction, so a
// failed item write rolls the header back and a retry starts clean.
func (p *Postgres) Insert(ctx context.Context, tenantID string, o model.Order) (string, error) {
	if err := ValidateOrder(o); err != nil {
		return "", err
	}
	tx, err := p.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", Transient("insert order", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, tenant_id, serial, status, shipping_cost, discount,
		                   deposit, payments_received, total, profit, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		id, tenantID, o.Serial, o.Status, o.ShippingCost, o.Discount,
		o.Deposit, o.PaymentsReceived, o.Total, o.Profit, o.CreatedAt); err != nil {
		return "", classify("insert order", err)
	}
	if err := insertItems(ctx, tx, id, o.Items); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", Transient("insert order", err)
	}
	return id, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, orderID string, items []model.OrderItem) error {
	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_type, size, quantity,
			                        cost, price, item_discount, total_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			uuid.NewString(), orderID, it.ProductType, it.Size, it.Quantity,
			it.Cost, it.Price, it.ItemDiscount, it.TotalPrice); err != nil {
			return classify("insert order item", err)
		}
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, remoteID string, patch OrderPatch) error {
	set := ""
	args := []any{remoteID}
	add := func(col string, v any) {
		if set != "" {
			set += ", "
		}
		args = append(args, v)
		set += fmt.Sprintf("%s=$%d", col, len(args))
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Deposit != nil {
		add("deposit", *patch.Deposit)
	}
	if patch.PaymentsReceived != nil {
		add("payments_received", *patch.PaymentsReceived)
	}
	if patch.Total != nil {
		add("total", *patch.Total)
	}
	if set == "" {
		return nil
	}
	tag, err := p.DB.Exec(ctx, `UPDATE orders SET `+set+` WHERE id=$1`, args...)
	if err != nil {
		return classify("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, remoteID string) error {
	tag, err := p.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, remoteID)
	if err != nil {
		return classify("delete order", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, tenantID string, f OrderFilter) ([]RemoteOrder, error) {
	q := `SELECT id, serial, status, shipping_cost, discount, deposit,
	             payments_received, total, profit, created_at
	      FROM orders WHERE tenant_id=$1`
	args := []any{tenantID}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		q += fmt.Sprintf(" AND created_at>=$%d", len(args))
	}
	q += " ORDER BY serial"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := p.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, classify("list orders", err)
	}
	defer rows.Close()

	var out []RemoteOrder
	for rows.Next() {
		var ro RemoteOrder
		o := &ro.Order
		if err := rows.Scan(&ro.RemoteID, &o.Serial, &o.Status, &o.ShippingCost,
			&o.Discount, &o.Deposit, &o.PaymentsReceived, &o.Total, &o.Profit,
			&o.CreatedAt); err != nil {
			return nil, classify("scan order", err)
		}
		out = append(out, ro)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list orders", err)
	}
	return out, nil
}

// Products returns the ProductStore view of p.
func (p *Postgres) Products() ProductStore { return postgresProducts{p} }

type postgresProducts struct{ p *Postgres }

func (pp postgresProducts) ExistsByName(ctx context.Context, tenantID, name string) (bool, error) {
	var exists bool
	err := pp.p.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE tenant_id=$1 AND name=$2)`,
		tenantID, name).Scan(&exists)
	if err != nil {
		return false, classify("exists by name", err)
	}
	return exists, nil
}

func (pp postgresProducts) List(ctx context.Context, tenantID string) ([]RemoteProduct, error) {
	rows, err := pp.p.DB.Query(ctx, `
		SELECT p.id, p.name, COALESCE(s.size,''), s.cost, s.price
		FROM products p
		LEFT JOIN product_sizes s ON s.product_id = p.id
		WHERE p.tenant_id=$1
		ORDER BY p.name, s.size`, tenantID)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	byID := make(map[string]*RemoteProduct)
	var order []string
	for rows.Next() {
		var (
			id, name, size string
			cost, price    *decimal.Decimal
		)
		if err := rows.Scan(&id, &name, &size, &cost, &price); err != nil {
			return nil, classify("scan product", err)
		}
		rp, ok := byID[id]
		if !ok {
			rp = &RemoteProduct{RemoteID: id, Product: model.Product{ID: id, Name: name}}
			byID[id] = rp
			order = append(order, id)
		}
		if size != "" {
			rp.Product.Sizes = append(rp.Product.Sizes, model.ProductSize{
				Size: size, Cost: deref(cost), Price: deref(price),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list products", err)
	}
	out := make([]RemoteProduct, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (pp postgresProducts) Insert(ctx context.Context, tenantID string, prod model.Product) (string, error) {
	if err := ValidateProduct(prod); err != nil {
		return "", err
	}
	tx, err := pp.p.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", Transient("insert product", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO products(id, tenant_id, name) VALUES ($1,$2,$3)`,
		id, tenantID, prod.Name); err != nil {
		return "", classify("insert product", err)
	}
	if err := insertSizes(ctx, tx, id, prod.Sizes); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", Transient("insert product", err)
	}
	return id, nil
}

func (pp postgresProducts) Update(ctx context.Context, remoteID string, prod model.Product) error {
	if err := ValidateProduct(prod); err != nil {
		return err
	}
	tx, err := pp.p.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transient("update product", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE products SET name=$2 WHERE id=$1`, remoteID, prod.Name)
	if err != nil {
		return classify("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM product_sizes WHERE product_id=$1`, remoteID); err != nil {
		return classify("update product sizes", err)
	}
	if err := insertSizes(ctx, tx, remoteID, prod.Sizes); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transient("update product", err)
	}
	return nil
}

func (pp postgresProducts) Delete(ctx context.Context, remoteID string) error {
	tag, err := pp.p.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, remoteID)
	if err != nil {
		return classify("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func insertSizes(ctx context.Context, tx pgx.Tx, productID string, sizes []model.ProductSize) error {
	for _, s := range sizes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_sizes(product_id, size, cost, price)
			VALUES ($1,$2,$3,$4)`,
			productID, s.Size, s.Cost, s.Price); err != nil {
			return classify("insert product size", err)
		}
	}
	return nil
}

// InitSchema creates the remote tables when they do not exist. Meant for
// development against a scratch database; production schemas are managed
// outside this subsystem.
func (p *Postgres) InitSchema(ctx context.Context) error {
	_, err := p.DB.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		serial TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		shipping_cost NUMERIC NOT NULL DEFAULT 0,
		discount NUMERIC NOT NULL DEFAULT 0,
		deposit NUMERIC NOT NULL DEFAULT 0,
		payments_received NUMERIC NOT NULL DEFAULT 0,
		total NUMERIC NOT NULL DEFAULT 0,
		profit NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, serial)
	);
	CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_type TEXT NOT NULL,
		size TEXT NOT NULL DEFAULT '',
		quantity BIGINT NOT NULL,
		cost NUMERIC NOT NULL DEFAULT 0,
		price NUMERIC NOT NULL DEFAULT 0,
		item_discount NUMERIC NOT NULL DEFAULT 0,
		total_price NUMERIC
	);
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		UNIQUE (tenant_id, name)
	);
	CREATE TABLE IF NOT EXISTS product_sizes (
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		size TEXT NOT NULL,
		cost NUMERIC NOT NULL DEFAULT 0,
		price NUMERIC NOT NULL DEFAULT 0,
		UNIQUE (product_id, size)
	);`)
	if err != nil {
		return Transient("init schema", err)
	}
	return nil
}

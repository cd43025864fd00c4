// This file defines the ProductRequest model and its repository. A product
// request is raised by a product owner and asks a photographer to supply a
// photo. A request with fulfilled = 0 is "open"; photographers list open
// requests as their work queue. There is no foreign key between requests
// and photos; they correlate through product_id only.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ProductRequest represents a row in the product_requests table. Product
// is populated by list/show queries that join the owning product.
type ProductRequest struct {
	ID        uint64    `json:"id"`
	ProductID uint64    `json:"product_id"`
	Name      string    `json:"name"`
	Fulfilled int8      `json:"fulfilled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Product   *Product  `json:"product,omitempty"`
}

// ErrRequestNotFound is returned when no matching product request exists.
var ErrRequestNotFound = errors.New("product request not found")

type RequestRepo struct {
	db *sql.DB
}

func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

func (r *RequestRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new request inside the caller's transaction and
// populates the generated id and timestamp fields.
func (r *RequestRepo) CreateTx(ctx context.Context, tx *sql.Tx, req *ProductRequest) error {
	const qInsert = "INSERT INTO product_requests (product_id, name) VALUES (?, ?)"
	res, err := tx.ExecContext(ctx, qInsert, req.ProductID, req.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)

	const qSelect = "SELECT product_id, name, fulfilled, created_at, updated_at FROM product_requests WHERE id = ?"
	return tx.QueryRowContext(ctx, qSelect, req.ID).Scan(&req.ProductID, &req.Name, &req.Fulfilled, &req.CreatedAt, &req.UpdatedAt)
}

// GetByID fetches a request together with its product.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (*ProductRequest, error) {
	const q = `SELECT pr.id, pr.product_id, pr.name, pr.fulfilled, pr.created_at, pr.updated_at,
					  p.id, p.user_id, p.name, p.created_at, p.updated_at
			   FROM product_requests pr JOIN products p ON p.id = pr.product_id
			   WHERE pr.id = ?`
	var req ProductRequest
	var prod Product
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&req.ID, &req.ProductID, &req.Name, &req.Fulfilled, &req.CreatedAt, &req.UpdatedAt,
		&prod.ID, &prod.UserID, &prod.Name, &prod.CreatedAt, &prod.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	req.Product = &prod
	return &req, nil
}

// GetByIDAndProduct fetches a request scoped to one product. Owner-side
// update and delete go through this so a request id belonging to another
// owner's product reads as missing.
func (r *RequestRepo) GetByIDAndProduct(ctx context.Context, id, productID uint64) (*ProductRequest, error) {
	const q = `SELECT id, product_id, name, fulfilled, created_at, updated_at
			   FROM product_requests WHERE id = ? AND product_id = ?`
	var req ProductRequest
	err := r.db.QueryRowContext(ctx, q, id, productID).Scan(
		&req.ID, &req.ProductID, &req.Name, &req.Fulfilled, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListOpen returns one page of unfulfilled requests with their products,
// oldest first. This is the photographer's work queue.
func (r *RequestRepo) ListOpen(ctx context.Context, limit, offset int) ([]*ProductRequest, error) {
	const q = `SELECT pr.id, pr.product_id, pr.name, pr.fulfilled, pr.created_at, pr.updated_at,
					  p.id, p.user_id, p.name, p.created_at, p.updated_at
			   FROM product_requests pr JOIN products p ON p.id = pr.product_id
			   WHERE pr.fulfilled = 0 ORDER BY pr.id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ProductRequest
	for rows.Next() {
		req := new(ProductRequest)
		prod := new(Product)
		if err := rows.Scan(
			&req.ID, &req.ProductID, &req.Name, &req.Fulfilled, &req.CreatedAt, &req.UpdatedAt,
			&prod.ID, &prod.UserID, &prod.Name, &prod.CreatedAt, &prod.UpdatedAt); err != nil {
			return nil, err
		}
		req.Product = prod
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FirstOpenByProductTx returns the oldest open request for a product, or
// ErrRequestNotFound. Runs on the caller's transaction so the photo flows
// see a consistent snapshot under the product advisory lock.
func (r *RequestRepo) FirstOpenByProductTx(ctx context.Context, tx *sql.Tx, productID uint64) (*ProductRequest, error) {
	const q = `SELECT id, product_id, name, fulfilled, created_at, updated_at
			   FROM product_requests WHERE product_id = ? AND fulfilled = 0 ORDER BY id LIMIT 1`
	var req ProductRequest
	err := tx.QueryRowContext(ctx, q, productID).Scan(
		&req.ID, &req.ProductID, &req.Name, &req.Fulfilled, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateName renames a request scoped by product. Returns sql.ErrNoRows
// when nothing matched.
func (r *RequestRepo) UpdateName(ctx context.Context, id, productID uint64, name string) error {
	const q = `UPDATE product_requests
			   SET name = ?, updated_at = CURRENT_TIMESTAMP
			   WHERE id = ? AND product_id = ?`
	res, err := r.db.ExecContext(ctx, q, name, id, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a request scoped by product. Returns sql.ErrNoRows when
// nothing matched.
func (r *RequestRepo) Delete(ctx context.Context, id, productID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM product_requests WHERE id = ? AND product_id = ?", id, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkFulfilledTx closes a request. Called by the approve flow in the same
// transaction that marks the photo approved, so the two flags can never
// drift apart.
func (r *RequestRepo) MarkFulfilledTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE product_requests SET fulfilled = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}

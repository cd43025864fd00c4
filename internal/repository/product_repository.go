// This file defines the Product model and repository methods for CRUD and
// lookup operations. A product belongs to exactly one owner; every query
// that mutates a product is scoped by (id, user_id) so one owner can never
// touch another owner's rows.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Product represents a product entity persisted in the database.
type Product struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrProductNotFound is returned when a product cannot be found in the DB.
var ErrProductNotFound = errors.New("product not found")

// ProductRepo encapsulates all database queries related to products.
type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying pool so handlers can open transactions that
// span several repositories.
func (r *ProductRepo) DB() *sql.DB { return r.db }

// Create inserts a new product. On success the ID field is populated and a
// follow-up SELECT fills the default timestamp columns so callers receive
// a fully populated record.
func (r *ProductRepo) Create(ctx context.Context, p *Product) error {
	const qInsert = "INSERT INTO products (user_id, name) VALUES (?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, p.UserID, p.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	const qSelect = "SELECT user_id, name, created_at, updated_at FROM products WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, p.ID).Scan(&p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID fetches a product by its ID regardless of owner. The photo
// submission flow uses this because photographers do not own the product
// they shoot for.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*Product, error) {
	const q = "SELECT id, user_id, name, created_at, updated_at FROM products WHERE id = ?"
	var p Product
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByIDAndOwner fetches a product by id but only if it belongs to the
// specified owner. ErrProductNotFound covers both "missing" and "owned by
// someone else" so the response does not leak other owners' ids.
func (r *ProductRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Product, error) {
	const q = "SELECT id, user_id, name, created_at, updated_at FROM products WHERE id = ? AND user_id = ?"
	var p Product
	if err := r.db.QueryRowContext(ctx, q, id, ownerID).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FirstByOwner resolves "the" product of an owner: the lowest id wins.
// The schema allows several products per owner, so the request and photo
// flows need a deterministic tie-break when picking the product to act on.
func (r *ProductRepo) FirstByOwner(ctx context.Context, ownerID uint64) (*Product, error) {
	const q = "SELECT id, user_id, name, created_at, updated_at FROM products WHERE user_id = ? ORDER BY id LIMIT 1"
	var p Product
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByOwner returns one page of the owner's products ordered by id.
func (r *ProductRepo) ListByOwner(ctx context.Context, ownerID uint64, limit, offset int) ([]*Product, error) {
	const q = `SELECT id, user_id, name, created_at, updated_at
			   FROM products WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		p := new(Product)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateName updates the product name if it belongs to the provided owner.
// It returns sql.ErrNoRows when no row is affected (not found / not owned).
func (r *ProductRepo) UpdateName(ctx context.Context, id, ownerID uint64, name string) error {
	const q = `UPDATE products
			   SET name = ?, updated_at = CURRENT_TIMESTAMP
			   WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, name, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByIDAndOwner removes a product provided it belongs to the owner
// and has no dependent photo requests or photos. Deletion with dependents
// is blocked with ErrConflict rather than cascaded. The check and the
// delete run inside one transaction.
func (r *ProductRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var dbOwnerID uint64
	if err = tx.QueryRowContext(ctx, `SELECT user_id FROM products WHERE id = ?`, id).Scan(&dbOwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrProductNotFound
		}
		return err
	}
	if dbOwnerID != ownerID {
		err = ErrProductNotFound // do not reveal that the id exists
		return err
	}

	var dependents int
	if err = tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM product_requests WHERE product_id = ?) +
				(SELECT COUNT(*) FROM photos WHERE product_id = ?)`, id, id).Scan(&dependents); err != nil {
		return err
	}
	if dependents > 0 {
		err = ErrConflict
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

// AcquireLockTx takes a MySQL advisory lock keyed by product id on the
// transaction's connection. Submit/approve/reject serialize on this lock
// so concurrent decisions on the same product cannot interleave.
func (r *ProductRepo) AcquireLockTx(ctx context.Context, tx *sql.Tx, productID uint64) error {
	var got sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT GET_LOCK(CONCAT('product:', ?), 5)`, productID).Scan(&got); err != nil {
		return err
	}
	if !got.Valid || got.Int64 != 1 {
		return ErrConflict
	}
	return nil
}

// ReleaseLockTx releases the advisory lock taken by AcquireLockTx.
func (r *ProductRepo) ReleaseLockTx(ctx context.Context, tx *sql.Tx, productID uint64) {
	var released sql.NullInt64
	_ = tx.QueryRowContext(ctx,
		`SELECT RELEASE_LOCK(CONCAT('product:', ?))`, productID).Scan(&released)
}

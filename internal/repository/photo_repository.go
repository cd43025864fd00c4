// This file defines the Photo model and its repository. A photo is created
// by a photographer against a product that has an open request. Its
// approved flag starts at 0; the owning product owner flips it to 1 on
// approval or writes 0 again on rejection, which deliberately leaves a
// rejected photo indistinguishable from a fresh submission.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Photo represents a row in the photos table. ProductPhoto holds the URL
// of the stored object, not the image bytes.
type Photo struct {
	ID           uint64    `json:"id"`
	ProductID    uint64    `json:"product_id"`
	ProductPhoto string    `json:"product_photo"`
	Approved     int8      `json:"approved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Product      *Product  `json:"product,omitempty"`
}

// ErrPhotoNotFound is returned when no matching photo exists.
var ErrPhotoNotFound = errors.New("photo not found")

type PhotoRepo struct {
	db *sql.DB
}

func NewPhotoRepo(db *sql.DB) *PhotoRepo { return &PhotoRepo{db: db} }

func (r *PhotoRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a photo inside the caller's transaction and populates
// the generated id and timestamp fields.
func (r *PhotoRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *Photo) error {
	const qInsert = "INSERT INTO photos (product_id, product_photo) VALUES (?, ?)"
	res, err := tx.ExecContext(ctx, qInsert, p.ProductID, p.ProductPhoto)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	const qSelect = "SELECT product_id, product_photo, approved, created_at, updated_at FROM photos WHERE id = ?"
	return tx.QueryRowContext(ctx, qSelect, p.ID).Scan(&p.ProductID, &p.ProductPhoto, &p.Approved, &p.CreatedAt, &p.UpdatedAt)
}

// ListAll returns one page of photos with their products, newest first.
func (r *PhotoRepo) ListAll(ctx context.Context, limit, offset int) ([]*Photo, error) {
	const q = `SELECT ph.id, ph.product_id, ph.product_photo, ph.approved, ph.created_at, ph.updated_at,
					  p.id, p.user_id, p.name, p.created_at, p.updated_at
			   FROM photos ph JOIN products p ON p.id = ph.product_id
			   ORDER BY ph.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Photo
	for rows.Next() {
		ph := new(Photo)
		prod := new(Product)
		if err := rows.Scan(
			&ph.ID, &ph.ProductID, &ph.ProductPhoto, &ph.Approved, &ph.CreatedAt, &ph.UpdatedAt,
			&prod.ID, &prod.UserID, &prod.Name, &prod.CreatedAt, &prod.UpdatedAt); err != nil {
			return nil, err
		}
		ph.Product = prod
		out = append(out, ph)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestByProductTx returns the most recent photo for a product in any
// state. The approve flow uses it to detect an already-approved photo and
// stay idempotent.
func (r *PhotoRepo) LatestByProductTx(ctx context.Context, tx *sql.Tx, productID uint64) (*Photo, error) {
	const q = `SELECT id, product_id, product_photo, approved, created_at, updated_at
			   FROM photos WHERE product_id = ? ORDER BY id DESC LIMIT 1`
	var p Photo
	err := tx.QueryRowContext(ctx, q, productID).Scan(
		&p.ID, &p.ProductID, &p.ProductPhoto, &p.Approved, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LatestOpenByProductTx returns the most recent unresolved (approved = 0)
// photo for a product.
func (r *PhotoRepo) LatestOpenByProductTx(ctx context.Context, tx *sql.Tx, productID uint64) (*Photo, error) {
	const q = `SELECT id, product_id, product_photo, approved, created_at, updated_at
			   FROM photos WHERE product_id = ? AND approved = 0 ORDER BY id DESC LIMIT 1`
	var p Photo
	err := tx.QueryRowContext(ctx, q, productID).Scan(
		&p.ID, &p.ProductID, &p.ProductPhoto, &p.Approved, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetApprovedTx writes the photo's resolution flag. Approve passes 1;
// reject passes 0, a no-op relative to the default state.
func (r *PhotoRepo) SetApprovedTx(ctx context.Context, tx *sql.Tx, id uint64, approved int8) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE photos SET approved = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", approved, id)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Role is a named permission label. Authorization decisions compare slugs
// only; the level column is carried for compatibility with the legacy
// schema and never consulted.
type Role struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Level       int    `json:"level"`
}

// ErrRoleNotFound is returned when a role id or slug has no row.
var ErrRoleNotFound = errors.New("role not found")

type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// GetByID fetches a role by its numeric identifier.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (Role, error) {
	var role Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,slug,description,level FROM roles WHERE id=? LIMIT 1",
		id).Scan(&role.ID, &role.Name, &role.Slug, &role.Description, &role.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return Role{}, ErrRoleNotFound
	}
	return role, err
}

// AttachTx links a role to a user inside the caller's transaction.
func (r *RoleRepo) AttachTx(ctx context.Context, tx *sql.Tx, userID, roleID uint64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id) VALUES (?,?)", userID, roleID)
	return err
}

// ListForUser returns all roles assigned to a user ordered by role id.
func (r *RoleRepo) ListForUser(ctx context.Context, userID uint64) ([]Role, error) {
	const q = `SELECT r.id, r.name, r.slug, r.description, r.level
			   FROM roles r JOIN user_roles ur ON ur.role_id = r.id
			   WHERE ur.user_id = ? ORDER BY r.id`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Slug, &role.Description, &role.Level); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

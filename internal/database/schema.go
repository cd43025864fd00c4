package database

import (
	"context"
	"database/sql"
)

// schema holds the CREATE TABLE statements executed at startup.  Statements
// are idempotent so repeated boots are safe.  product_requests and photos
// are correlated only through product_id; an open request is one with
// fulfilled = 0 and an unresolved photo is one with approved = 0.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		firstname VARCHAR(100) NOT NULL,
		lastname VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_active TINYINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS roles (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		slug VARCHAR(100) NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		level INT NOT NULL DEFAULT 1,
		UNIQUE KEY uq_roles_slug (slug)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id BIGINT UNSIGNED NOT NULL,
		role_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (user_id, role_id),
		CONSTRAINT fk_user_roles_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_user_roles_role FOREIGN KEY (role_id) REFERENCES roles (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_products_user (user_id),
		CONSTRAINT fk_products_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS product_requests (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		product_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		fulfilled TINYINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_requests_product_open (product_id, fulfilled),
		CONSTRAINT fk_requests_product FOREIGN KEY (product_id) REFERENCES products (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS photos (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		product_id BIGINT UNSIGNED NOT NULL,
		product_photo VARCHAR(512) NOT NULL,
		approved TINYINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_photos_product_open (product_id, approved),
		CONSTRAINT fk_photos_product FOREIGN KEY (product_id) REFERENCES products (id)
	) ENGINE=InnoDB`,
}

// seeds inserts the two roles the API authorizes against.  INSERT IGNORE
// keeps reruns harmless.  The level column mirrors the legacy role table
// and plays no part in authorization decisions.
var seeds = []string{
	`INSERT IGNORE INTO roles (name, slug, description, level)
	 VALUES ('Product Owner', 'product.owner', 'Product Owner Role', 3)`,
	`INSERT IGNORE INTO roles (name, slug, description, level)
	 VALUES ('Photographer', 'photographer', 'Photographer Role', 4)`,
}

// Migrate creates the tables and seed rows the service needs.  It is run
// once at startup before the HTTP server starts accepting requests.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, stmt := range seeds {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

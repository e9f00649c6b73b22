package database

import (
	"database/sql"
	"fmt"
	"log"

	"crystosjewel-server/models"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

var Database *DB

// Connect establishes a connection to the PostgreSQL database
func Connect(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Database = &DB{db}
	return Database, nil
}

// InitializeTables creates all tables if they don't exist
func (db *DB) InitializeTables() error {
	// Enable pgcrypto extension
	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	// Order matters: later tables reference earlier ones
	tables := []interface{}{
		models.Customer{},
		models.Product{},
		models.Cart{},
		models.CartItem{},
		models.PromoCode{},
		models.Order{},
		models.OrderItem{},
		models.PromoCodeUsage{},
	}

	for _, model := range tables {
		if tableModel, ok := model.(interface {
			TableName() string
			CreateTableSQL() string
		}); ok {
			tableName := tableModel.TableName()
			createSQL := tableModel.CreateTableSQL()

			log.Printf("Creating table: %s", tableName)
			if _, err := db.Exec(createSQL); err != nil {
				return fmt.Errorf("failed to create table %s: %w", tableName, err)
			}
		}
	}

	// Run schema migrations
	if err := db.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("All tables created successfully!")
	return nil
}

// runMigrations handles schema updates for existing tables
func (db *DB) runMigrations() error {
	migrations := []string{
		// Older databases predate the guest checkout columns
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS is_guest BOOLEAN NOT NULL DEFAULT FALSE;`,
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS role TEXT NOT NULL DEFAULT 'customer';`,
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS email_verified BOOLEAN NOT NULL DEFAULT FALSE;`,
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS phone TEXT;`,
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS city TEXT;`,
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS postal_code TEXT;`,
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS country TEXT;`,
		`ALTER TABLE customers ADD COLUMN IF NOT EXISTS updated_at TIMESTAMP WITH TIME ZONE DEFAULT now();`,

		// Customers created before the guest flag existed: no credential means guest
		`UPDATE customers SET is_guest = TRUE WHERE password_hash IS NULL AND is_guest = FALSE AND role = 'customer';`,

		// Order snapshot columns added after the first release
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS customer_phone TEXT;`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shipping_city TEXT;`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shipping_postal_code TEXT;`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS promo_code VARCHAR(50);`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS discount_amount NUMERIC(12,2) NOT NULL DEFAULT 0;`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS shipping_fee NUMERIC(12,2) NOT NULL DEFAULT 0;`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS is_guest_order BOOLEAN NOT NULL DEFAULT FALSE;`,
		`ALTER TABLE orders ADD COLUMN IF NOT EXISTS payment_method VARCHAR(30) NOT NULL DEFAULT 'card';`,

		// Cart item snapshots
		`ALTER TABLE cart_items ADD COLUMN IF NOT EXISTS product_name TEXT NOT NULL DEFAULT '';`,
		`ALTER TABLE cart_items ADD COLUMN IF NOT EXISTS unit_price NUMERIC(12,2) NOT NULL DEFAULT 0;`,
		`ALTER TABLE cart_items ADD COLUMN IF NOT EXISTS size VARCHAR(50);`,

		// Promo bookkeeping
		`ALTER TABLE promo_codes ADD COLUMN IF NOT EXISTS max_discount NUMERIC(10,2);`,
		`ALTER TABLE promo_codes ADD COLUMN IF NOT EXISTS usage_limit INTEGER NOT NULL DEFAULT -1;`,
		`ALTER TABLE promo_codes ADD COLUMN IF NOT EXISTS used_count INTEGER NOT NULL DEFAULT 0;`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			log.Printf("Warning: Migration %d failed: %v", i+1, err)
			// Continue with other migrations even if one fails
		}
	}

	log.Println("Migrations completed!")
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

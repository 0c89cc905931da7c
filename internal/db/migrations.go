package db

import (
	"context"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Listing filters read the derived stage column.
	`CREATE INDEX IF NOT EXISTS idx_lost_items_stage ON lost_items(stage, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_found_items_stage ON found_items(stage, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_lost_items_email ON lost_items(email)`,
	`CREATE INDEX IF NOT EXISTS idx_found_items_email ON found_items(email)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_product ON comments(product_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_abuse_reports_status ON abuse_reports(status, created_at)`,
	// Deleted accounts free their email for reuse.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email_active
	     ON accounts(email) WHERE deleted_at IS NULL`,
}

func migrate(ctx context.Context, d *DB) error {
	for i, m := range migrations {
		if _, err := d.DB.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}

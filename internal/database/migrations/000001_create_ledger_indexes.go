package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func init() {
	migrationsList = append(migrationsList, CreateLedgerIndexes())
}

// CreateLedgerIndexes adds the constraints AutoMigrate cannot express: the
// partial unique index that makes commission distribution idempotent per
// order, and a guard against negative balances at the storage level.
func CreateLedgerIndexes() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_ledger_indexes",
		Migrate: func(tx *gorm.DB) error {
			// One commission entry per (wallet, order): a retried
			// distribution hits this index instead of paying twice.
			if err := tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_commission_once
				ON ledger_entries (wallet_id, reference)
				WHERE type = 'commission' AND deleted_at IS NULL;
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				ALTER TABLE wallets
				ADD CONSTRAINT chk_wallets_non_negative
				CHECK (available >= 0 AND locked >= 0);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec(`DROP INDEX IF EXISTS idx_ledger_commission_once;`).Error; err != nil {
				return err
			}
			return tx.Exec(`ALTER TABLE wallets DROP CONSTRAINT IF EXISTS chk_wallets_non_negative;`).Error
		},
	}
}

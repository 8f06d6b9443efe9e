package cmd

import (
	"fmt"
	"time"

	"github.com/clinicdesk/campaign-gateway/internal/config"
	"github.com/clinicdesk/campaign-gateway/internal/db"
	"github.com/clinicdesk/campaign-gateway/internal/logger"
	"github.com/clinicdesk/campaign-gateway/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo clinics and contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		logger.Log.Info("seeding demo clinics and contacts")

		if err := seedClinics(sqlDB); err != nil {
			return err
		}
		if err := seedContacts(sqlDB); err != nil {
			return err
		}

		logger.Log.Info("seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedClinics inserts deterministic demo clinics (idempotent).
func seedClinics(dbx *sqlx.DB) error {
	clinics := []model.Clinic{
		{
			Name:         "Amman Dental Center",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			Name:         "Shifa Family Clinic",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(50),
		},
		{
			Name:         "Suspended Clinic",
			APIKey:       "33333333333333333333333333333333",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO clinics
    (name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name        = VALUES(name),
    status      = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at  = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, c := range clinics {
		if _, err := tx.Exec(q, c.Name, c.APIKey, c.Status, c.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert clinic %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clinics: %w", err)
	}
	return nil
}

// seedContacts gives the first clinic a small CRM set for selector demos.
func seedContacts(dbx *sqlx.DB) error {
	type row struct {
		name, phone, status, tags string
	}
	contacts := []row{
		{"Ali Hassan", "+962700000001", "active", "vip,followup"},
		{"Sara Khalil", "+962700000002", "active", "followup"},
		{"Omar Darwish", "+962700000003", "lead", "new"},
		{"Lina Haddad", "+962700000004", "inactive", ""},
		{"Yousef Amin", "+962700000005", "active", "vip"},
	}

	const q = `
INSERT INTO contacts (clinic_id, name, phone, crm_status, tags, created_at, updated_at)
SELECT c.id, ?, ?, ?, ?, NOW(), NOW()
FROM clinics c
WHERE c.api_key = '11111111111111111111111111111111'
  AND NOT EXISTS (
    SELECT 1 FROM contacts x WHERE x.clinic_id = c.id AND x.phone = ?
  )
`
	for _, ct := range contacts {
		if _, err := dbx.Exec(q, ct.name, ct.phone, ct.status, ct.tags, ct.phone); err != nil {
			return fmt.Errorf("insert contact %q: %w", ct.name, err)
		}
	}
	return nil
}

func intptr(i int) *int { return &i }

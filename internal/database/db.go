package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// UpsertUserPosition writes the latest position for a user. The row is
// replaced only when the incoming report is not older than the stored one,
// mirroring the in-memory most-recent-wins rule.
func (db *DB) UpsertUserPosition(rec *UserRecord) error {
	query := `
		INSERT INTO user_positions (user_id, ip, lat, lon, accuracy, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET ip = EXCLUDED.ip,
		    lat = EXCLUDED.lat,
		    lon = EXCLUDED.lon,
		    accuracy = EXCLUDED.accuracy,
		    observed_at = EXCLUDED.observed_at,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_positions.observed_at <= EXCLUDED.observed_at
	`
	_, err := db.Exec(query, rec.UserID, rec.IP, rec.Lat, rec.Lon, rec.Accuracy, rec.ObservedAt)
	return err
}

// GetUserPosition retrieves the latest position for a user, nil when unknown
func (db *DB) GetUserPosition(userID string) (*UserRecord, error) {
	query := `
		SELECT user_id, ip, lat, lon, accuracy, observed_at, updated_at
		FROM user_positions
		WHERE user_id = $1
	`

	var rec UserRecord
	err := db.QueryRow(query, userID).Scan(
		&rec.UserID,
		&rec.IP,
		&rec.Lat,
		&rec.Lon,
		&rec.Accuracy,
		&rec.ObservedAt,
		&rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ListUserPositions returns every stored position, used to warm the tracker
// at startup
func (db *DB) ListUserPositions() ([]*UserRecord, error) {
	query := `
		SELECT user_id, ip, lat, lon, accuracy, observed_at, updated_at
		FROM user_positions
		ORDER BY user_id
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*UserRecord
	for rows.Next() {
		var rec UserRecord
		if err := rows.Scan(
			&rec.UserID,
			&rec.IP,
			&rec.Lat,
			&rec.Lon,
			&rec.Accuracy,
			&rec.ObservedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// ListActiveZones reads the administrative zone store. The engine never
// writes this table; zone CRUD belongs to the admin dashboard.
func (db *DB) ListActiveZones() ([]*ZoneRecord, error) {
	query := `
		SELECT id, name, kind, lat, lon, radius_m, is_active, created_at, updated_at
		FROM zones
		WHERE is_active = true
		ORDER BY id
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []*ZoneRecord
	for rows.Next() {
		var z ZoneRecord
		if err := rows.Scan(
			&z.ID,
			&z.Name,
			&z.Kind,
			&z.Lat,
			&z.Lon,
			&z.RadiusMeters,
			&z.IsActive,
			&z.CreatedAt,
			&z.UpdatedAt,
		); err != nil {
			return nil, err
		}
		zones = append(zones, &z)
	}

	return zones, rows.Err()
}

package db

import (
	"database/sql"
	"fmt"

	"counseling-module/config"

	_ "github.com/lib/pq"
)

var DB *sql.DB

func InitDB() error {
	var err error
	connStr := config.GetDBConnString()

	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	err = DB.Ping()
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	// Create tables
	if err := createTables(); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	return nil
}

func createTables() error {
	counselorTable := `
	CREATE TABLE IF NOT EXISTS counselor (
		id SERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'available',
		specialties TEXT[] NOT NULL DEFAULT '{}',
		current_load INTEGER NOT NULL DEFAULT 0,
		max_load INTEGER NOT NULL DEFAULT 5,
		last_active TIMESTAMPTZ NOT NULL DEFAULT NOW(),

		CONSTRAINT load_within_capacity
			CHECK (current_load >= 0 AND current_load <= max_load)
	);`

	requestTable := `
	CREATE TABLE IF NOT EXISTS support_request (
		id SERIAL PRIMARY KEY,
		student_id TEXT NOT NULL,
		student_name TEXT NOT NULL,
		request_type TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'medium',
		tags TEXT[] NOT NULL,
		confidential BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'pending',
		counselor_id INTEGER,
		counselor_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

		CONSTRAINT fk_counselor
			FOREIGN KEY (counselor_id)
			REFERENCES counselor(id)
			ON DELETE SET NULL
	);`

	chatRoomTable := `
	CREATE TABLE IF NOT EXISTS chat_room (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL,
		request_id INTEGER NOT NULL,
		student_id TEXT NOT NULL,
		counselor_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		last_message TEXT NOT NULL DEFAULT '',
		last_message_at TIMESTAMPTZ,
		metadata JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

		CONSTRAINT fk_request
			FOREIGN KEY (request_id)
			REFERENCES support_request(id)
			ON DELETE CASCADE
	);`

	notificationTable := `
	CREATE TABLE IF NOT EXISTS notification (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		request_id INTEGER,
		chat_room_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`

	dlqTable := `
	CREATE TABLE IF NOT EXISTS dlq_messages (
		id SERIAL PRIMARY KEY,
		message_id UUID UNIQUE NOT NULL,
		topic TEXT NOT NULL,
		key TEXT NOT NULL DEFAULT '',
		value JSONB,
		error_message TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		max_retries INTEGER NOT NULL DEFAULT 5,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_retry_at TIMESTAMPTZ,
		resolved_at TIMESTAMPTZ,
		notes TEXT NOT NULL DEFAULT ''
	);`

	// Create counselor first so support_request can reference it
	for _, stmt := range []struct {
		name  string
		query string
	}{
		{"counselor", counselorTable},
		{"support_request", requestTable},
		{"chat_room", chatRoomTable},
		{"notification", notificationTable},
		{"dlq_messages", dlqTable},
	} {
		if _, err := DB.Exec(stmt.query); err != nil {
			return fmt.Errorf("error creating %s table: %w", stmt.name, err)
		}
	}

	return seedCounselors()
}

// seedCounselors inserts a starter pool so a fresh local database can take
// assignments immediately. Guarded by NOT EXISTS so restarts don't duplicate.
func seedCounselors() error {
	seeds := []struct {
		userID      string
		name        string
		specialties string
		maxLoad     int
	}{
		{"counselor-user-1", "Counselor 1", `{"anxiety","stress"}`, 5},
		{"counselor-user-2", "Counselor 2", `{"grief","depression"}`, 5},
	}

	for _, s := range seeds {
		if _, err := DB.Exec(`
			INSERT INTO counselor (user_id, name, specialties, max_load)
			SELECT $1, $2, $3::text[], $4
			WHERE NOT EXISTS (SELECT 1 FROM counselor WHERE user_id = $1)`,
			s.userID, s.name, s.specialties, s.maxLoad); err != nil {
			return fmt.Errorf("error seeding counselor %s: %w", s.name, err)
		}
	}

	return nil
}

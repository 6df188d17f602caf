package database

import (
	"chatcord-backend/internal/models"
	"database/sql"
	"fmt"
)

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func Setup(cfg *models.ConfigFile) (*sql.DB, error) {
	var db *sql.DB
	var err error

	if cfg.SelfContained {
		db, err = sql.Open("sqlite", "./database.db")
		if err != nil {
			return db, err
		}

		// there can be sqlite busy errors if this is not set to 1
		db.SetMaxOpenConns(1)

		err = setPragmaValues(db)
		if err != nil {
			return db, err
		}
	} else {
		db, err = sql.Open("mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s", cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase))
		if err != nil {
			return db, err
		}

		db.SetMaxOpenConns(10)
	}

	err = CreateTables(db)
	if err != nil {
		return db, err
	}

	return db, nil
}

// CreateTables builds the schema. Also used by store tests against an
// in-memory sqlite.
func CreateTables(db *sql.DB) error {
	var err error

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS profiles (
				id BIGINT PRIMARY KEY,
				email VARCHAR(64) NOT NULL UNIQUE,
				username VARCHAR(32) NOT NULL UNIQUE,
				display_name VARCHAR(64) NOT NULL,
				picture TEXT,
				password BINARY(60) NOT NULL
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS servers (
				id BIGINT PRIMARY KEY,
				owner_id BIGINT NOT NULL,
				name VARCHAR(64) NOT NULL,
				picture TEXT,
				invite_code VARCHAR(36) NOT NULL UNIQUE,
				FOREIGN KEY (owner_id) REFERENCES profiles(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS members (
				id BIGINT PRIMARY KEY,
				server_id BIGINT NOT NULL,
				profile_id BIGINT NOT NULL,
				role VARCHAR(16) NOT NULL,
				since TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (server_id, profile_id),
				FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE,
				FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS channels (
				id BIGINT PRIMARY KEY,
				server_id BIGINT NOT NULL,
				name VARCHAR(32) NOT NULL,
				type VARCHAR(8) NOT NULL,
				FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
			);
		`)
	if err != nil {
		return err
	}

	// member_low < member_high, so the unique key covers the unordered pair
	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS conversations (
				id BIGINT PRIMARY KEY,
				member_low BIGINT NOT NULL,
				member_high BIGINT NOT NULL,
				UNIQUE (member_low, member_high)
			);
		`)
	if err != nil {
		return err
	}

	// author_id deliberately has no foreign key: messages outlive their
	// author's membership
	_, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS messages (
				id BIGINT PRIMARY KEY,
				container_id BIGINT NOT NULL,
				container_kind VARCHAR(8) NOT NULL,
				author_id BIGINT NOT NULL,
				seq BIGINT NOT NULL,
				body TEXT NOT NULL,
				attachment TEXT,
				edited_at TIMESTAMP NULL,
				deleted BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE (container_id, seq)
			);
		`)
	if err != nil {
		return err
	}

	return nil
}

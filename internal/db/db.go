// Package db persists recording sessions and detected beat events to sqlite.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/cardio.report/internal/ecg"
)

type DB struct {
	*sql.DB

	// mu guards sessionID. Beats are recorded from the poll loop while
	// sessions are started and ended from HTTP handlers, so the active
	// session must be read and swapped under the lock.
	mu sync.Mutex

	// sessionID identifies the active recording session; beats are attributed
	// to it until the next StartSession.
	sessionID string
}

// NewDB opens (or creates) the sqlite database at path and applies all
// pending schema migrations.
func NewDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps the poller's inserts from blocking API reads.
	if _, err := sqldb.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	db := &DB{DB: sqldb}
	if err := db.MigrateUp(); err != nil {
		sqldb.Close()
		return nil, err
	}

	return db, nil
}

// StartSession opens a new recording session and returns its identifier.
// Any previously active session is marked as ended.
func (db *DB) StartSession(notes string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.startSessionLocked(notes)
}

// startSessionLocked is StartSession's body. Callers must hold db.mu.
func (db *DB) startSessionLocked(notes string) (string, error) {
	if db.sessionID != "" {
		if err := db.endSessionLocked(); err != nil {
			return "", err
		}
	}

	id := uuid.NewString()
	if _, err := db.Exec(
		"INSERT INTO sessions (id, notes) VALUES (?, ?)", id, notes,
	); err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	db.sessionID = id
	return id, nil
}

// EndSession stamps the active session's end time. A no-op when no session
// is active.
func (db *DB) EndSession() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.endSessionLocked()
}

// endSessionLocked is EndSession's body. Callers must hold db.mu.
func (db *DB) endSessionLocked() error {
	if db.sessionID == "" {
		return nil
	}
	if _, err := db.Exec(
		"UPDATE sessions SET ended_at = CURRENT_TIMESTAMP WHERE id = ?", db.sessionID,
	); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	db.sessionID = ""
	return nil
}

// SessionID returns the active session identifier, or "" when none is open.
func (db *DB) SessionID() string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.sessionID
}

// RecordBeat stores one detected beat under the active session. It satisfies
// the poller's BeatRecorder interface. The insert happens under the session
// lock so a concurrent StartSession cannot swap the session out from under a
// beat mid-attribution.
func (db *DB) RecordBeat(b ecg.Beat) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.sessionID == "" {
		if _, err := db.startSessionLocked(""); err != nil {
			return err
		}
	}

	_, err := db.Exec(
		"INSERT INTO beats (session_id, bpm, polarity, at_ms) VALUES (?, ?, ?, ?)",
		db.sessionID, b.BPM, b.Polarity, b.At,
	)
	if err != nil {
		return fmt.Errorf("failed to record beat: %w", err)
	}
	return nil
}

// BeatRow is one persisted beat event.
type BeatRow struct {
	SessionID  string `json:"session_id"`
	BPM        int    `json:"bpm"`
	Polarity   int    `json:"polarity"`
	AtMS       int64  `json:"at_ms"`
	RecordedAt string `json:"recorded_at"`
}

// ListBeats returns the most recent beats for the given session, newest
// first. An empty sessionID lists beats across all sessions.
func (db *DB) ListBeats(sessionID string, limit int) ([]BeatRow, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT session_id, bpm, polarity, at_ms, recorded_at FROM beats`
	args := []interface{}{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY beat_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beats []BeatRow
	for rows.Next() {
		var b BeatRow
		if err := rows.Scan(&b.SessionID, &b.BPM, &b.Polarity, &b.AtMS, &b.RecordedAt); err != nil {
			return nil, err
		}
		beats = append(beats, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return beats, nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://cardio.db", db.DB, &tailsql.DBOptions{
		Label: "Cardio DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}

// Package queue is the field agent's durable local store of accident reports
// captured while offline, plus the sync engine that drains them to the API
// once connectivity returns.
package queue

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Queue entry statuses. An entry leaves pending only after all of its images
// have been attached; permanently_failed entries are never auto-deleted and
// need operator follow-up.
const (
	StatusPending           = "pending"
	StatusSyncing           = "syncing"
	StatusFailed            = "failed"
	StatusPermanentlyFailed = "permanently_failed"
)

// MaxRetries is the retry budget before an entry is parked as permanently failed
const MaxRetries = 5

// Image body encodings. New writes are always raw; base64 rows written by
// older agent builds are decoded on read.
const (
	ImageEncodingRaw    = "raw"
	ImageEncodingBase64 = "base64"
)

var (
	// ErrStorageUnavailable wraps any sqlite failure; the entry stays pending
	// so a later cycle retries it
	ErrStorageUnavailable = errors.New("local queue storage unavailable")
	// ErrInvalidImage rejects attachments whose MIME type is not image/*
	ErrInvalidImage = errors.New("attachment is not an image")
	// ErrNotFound is returned when the queue id does not exist
	ErrNotFound = errors.New("queued report not found")
)

// QueuedReport is a not-yet-synced accident report
type QueuedReport struct {
	ID             string
	QRToken        string
	Latitude       *float64
	Longitude      *float64
	ManualLocation string
	HelperNote     string
	Status         string
	RetryCount     int
	CreatedAt      time.Time
}

// QueuedImage is one locally-held image attached to a queued report
type QueuedImage struct {
	ID       string
	QueueID  string
	Filename string
	MimeType string
	Body     []byte
	Position int
}

// Store is the sqlite-backed persistent queue
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS queued_reports (
	id              TEXT PRIMARY KEY,
	qr_token        TEXT NOT NULL,
	latitude        REAL,
	longitude       REAL,
	manual_location TEXT NOT NULL DEFAULT '',
	helper_note     TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'pending',
	retry_count     INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS queued_images (
	id        TEXT PRIMARY KEY,
	queue_id  TEXT NOT NULL REFERENCES queued_reports(id),
	filename  TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	encoding  TEXT NOT NULL DEFAULT 'raw',
	body      BLOB NOT NULL,
	position  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queued_images_queue ON queued_images(queue_id, position);
CREATE TABLE IF NOT EXISTS sync_lock (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	owner       TEXT NOT NULL,
	acquired_at INTEGER NOT NULL
);
`

// Open opens (creating if needed) the queue database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue stores a new report with status pending and a zero retry count,
// returning the queue id
func (s *Store) Enqueue(r QueuedReport) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO queued_reports (id, qr_token, latitude, longitude, manual_location, helper_note, status, retry_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		id, r.QRToken, r.Latitude, r.Longitude, r.ManualLocation, r.HelperNote, StatusPending, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

// AttachImage stores one image for a queued report. Each call is an
// independent durable write; a failure leaves the queue entry untouched.
func (s *Store) AttachImage(queueID string, body []byte, filename, mimeType string) (string, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return "", ErrInvalidImage
	}

	var position int
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM queued_images WHERE queue_id = ?`, queueID,
	).Scan(&position)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO queued_images (id, queue_id, filename, mime_type, encoding, body, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, queueID, filename, mimeType, ImageEncodingRaw, body, position,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

// Get returns a single queue entry by id
func (s *Store) Get(queueID string) (*QueuedReport, error) {
	row := s.db.QueryRow(
		`SELECT id, qr_token, latitude, longitude, manual_location, helper_note, status, retry_count, created_at
		 FROM queued_reports WHERE id = ?`, queueID,
	)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return r, nil
}

// ListPending returns all entries waiting to be synced, oldest first. Entries
// mid-sync or parked as permanently failed are excluded so a concurrent
// caller cannot double-submit them.
func (s *Store) ListPending() ([]QueuedReport, error) {
	rows, err := s.db.Query(
		`SELECT id, qr_token, latitude, longitude, manual_location, helper_note, status, retry_count, created_at
		 FROM queued_reports WHERE status = ? ORDER BY created_at ASC`, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var reports []QueuedReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return reports, nil
}

// ImagesFor reconstructs a report's stored images in insertion order
func (s *Store) ImagesFor(queueID string) ([]QueuedImage, error) {
	rows, err := s.db.Query(
		`SELECT id, queue_id, filename, mime_type, encoding, body, position
		 FROM queued_images WHERE queue_id = ? ORDER BY position ASC`, queueID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var images []QueuedImage
	for rows.Next() {
		var img QueuedImage
		var encoding string
		if err := rows.Scan(&img.ID, &img.QueueID, &img.Filename, &img.MimeType, &encoding, &img.Body, &img.Position); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if encoding == ImageEncodingBase64 {
			decoded, err := base64.StdEncoding.DecodeString(string(img.Body))
			if err != nil {
				return nil, fmt.Errorf("%w: corrupt base64 image %s: %v", ErrStorageUnavailable, img.ID, err)
			}
			img.Body = decoded
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return images, nil
}

// SetStatus transitions an entry's status. A transition to failed also
// increments the retry count; the new count is returned so the caller can
// park the entry once the budget is spent.
func (s *Store) SetStatus(queueID, status string) (int, error) {
	var res sql.Result
	var err error
	if status == StatusFailed {
		res, err = s.db.Exec(
			`UPDATE queued_reports SET status = ?, retry_count = retry_count + 1 WHERE id = ?`,
			status, queueID,
		)
	} else {
		res, err = s.db.Exec(`UPDATE queued_reports SET status = ? WHERE id = ?`, status, queueID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	var retryCount int
	if err := s.db.QueryRow(`SELECT retry_count FROM queued_reports WHERE id = ?`, queueID).Scan(&retryCount); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return retryCount, nil
}

// Remove deletes an entry and all its images in one transaction, so orphan
// images cannot survive a partial delete
func (s *Store) Remove(queueID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM queued_images WHERE queue_id = ?`, queueID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if _, err := tx.Exec(`DELETE FROM queued_reports WHERE id = ?`, queueID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// AcquireLock attempts to take the durable sync lock in a single atomic
// statement. A lock younger than staleness is respected; an older one is
// treated as abandoned by a crashed process and stolen.
func (s *Store) AcquireLock(owner string, staleness time.Duration) (bool, error) {
	cutoff := time.Now().Add(-staleness).Unix()
	res, err := s.db.Exec(
		`INSERT INTO sync_lock (id, owner, acquired_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET owner = excluded.owner, acquired_at = excluded.acquired_at
		 WHERE sync_lock.acquired_at <= ?`,
		owner, time.Now().Unix(), cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return n > 0, nil
}

// ReleaseLock drops the durable sync lock if this owner still holds it
func (s *Store) ReleaseLock(owner string) error {
	if _, err := s.db.Exec(`DELETE FROM sync_lock WHERE id = 1 AND owner = ?`, owner); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*QueuedReport, error) {
	var r QueuedReport
	var createdAt int64
	err := row.Scan(&r.ID, &r.QRToken, &r.Latitude, &r.Longitude, &r.ManualLocation, &r.HelperNote, &r.Status, &r.RetryCount, &createdAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	return &r, nil
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/timer"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const segmentColumns = `id, serial, segment_type, start_time, end_time, duration_sec, status, reason, remark,
	project_version, project_name, vessel_type,
	employee_version, employee_id, employee_name, station, manpower,
	created_at, last_updated_at`

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Segments ---

func (s *SQLiteStore) OpenTest(ctx context.Context, seg *models.Segment, header *models.VesselHeader) (string, error) {
	if seg.ID == "" {
		seg.ID = newULID()
	}
	now := time.Now().UTC()
	seg.CreatedAt = now
	seg.LastUpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// A serial may carry at most one open TEST. An abandoned test (the
	// session was reset, or the process died before it cleared) is closed
	// here at the new test's start time.
	orphan, err := findOpenSegment(ctx, tx, seg.Serial, models.SegmentTest)
	if err != nil {
		return "", fmt.Errorf("find open test segment: %w", err)
	}
	if orphan != nil {
		if err := closeSegmentAt(ctx, tx, orphan, seg.StartTime, now); err != nil {
			return "", fmt.Errorf("close abandoned test segment: %w", err)
		}
	}

	// Close the most recent open LEAK segment at the new test's start time.
	leak, err := findOpenSegment(ctx, tx, seg.Serial, models.SegmentLeak)
	if err != nil {
		return "", fmt.Errorf("find open leak segment: %w", err)
	}
	if leak != nil {
		if err := closeSegmentAt(ctx, tx, leak, seg.StartTime, now); err != nil {
			return "", fmt.Errorf("close leak segment: %w", err)
		}
	}

	if err := insertSegment(ctx, tx, seg); err != nil {
		return "", fmt.Errorf("create test segment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vessel_headers (serial, project_name, vessel_type, last_updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(serial) DO UPDATE SET
			project_name = excluded.project_name,
			vessel_type = excluded.vessel_type,
			last_updated_at = excluded.last_updated_at`,
		header.Serial, header.ProjectName, string(header.VesselType), now,
	); err != nil {
		return "", fmt.Errorf("upsert vessel header: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return seg.ID, nil
}

func (s *SQLiteStore) CloseTestOpenLeak(ctx context.Context, testID string, end time.Time, durationSec int, reason, remark string, leak *models.Segment) (string, error) {
	if leak.ID == "" {
		leak.ID = newULID()
	}
	now := time.Now().UTC()
	leak.CreatedAt = now
	leak.LastUpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE segments SET end_time=?, duration_sec=?, status=?, reason=?, remark=?, last_updated_at=?
		WHERE id=? AND end_time IS NULL`,
		end, durationSec, string(models.SegmentStatusLeak), reason, remark, now, testID,
	)
	if err != nil {
		return "", fmt.Errorf("close test segment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return "", fmt.Errorf("segment not open: %s", testID)
	}

	if err := insertSegment(ctx, tx, leak); err != nil {
		return "", fmt.Errorf("create leak segment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return leak.ID, nil
}

func (s *SQLiteStore) CloseSegment(ctx context.Context, id string, end time.Time, durationSec int, status models.SegmentStatus, remark string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE segments SET end_time=?, duration_sec=?, status=?, remark=?, last_updated_at=?
		WHERE id=? AND end_time IS NULL`,
		end, durationSec, string(status), remark, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("close segment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("segment not open: %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetSegment(ctx context.Context, id string) (*models.Segment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE id = ?`, id)
	seg, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("segment not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

func (s *SQLiteStore) FindOpenSegment(ctx context.Context, serial string, segType models.SegmentType) (*models.Segment, error) {
	return findOpenSegment(ctx, s.db, serial, segType)
}

func findOpenSegment(ctx context.Context, q querier, serial string, segType models.SegmentType) (*models.Segment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments
		WHERE serial = ? AND segment_type = ? AND end_time IS NULL
		ORDER BY start_time DESC LIMIT 1`,
		serial, string(segType))
	seg, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open segment: %w", err)
	}
	return seg, nil
}

func (s *SQLiteStore) ListSegments(ctx context.Context, serial string, limit int) ([]*models.Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE serial = ? ORDER BY start_time DESC`
	args := []any{serial}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var segments []*models.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

func (s *SQLiteStore) GetVesselHeader(ctx context.Context, serial string) (*models.VesselHeader, error) {
	h := &models.VesselHeader{}
	var vesselType string
	err := s.db.QueryRowContext(ctx,
		`SELECT serial, project_name, vessel_type, last_updated_at FROM vessel_headers WHERE serial = ?`, serial,
	).Scan(&h.Serial, &h.ProjectName, &vesselType, &h.LastUpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("vessel header not found: %s", serial)
	}
	if err != nil {
		return nil, fmt.Errorf("get vessel header: %w", err)
	}
	h.VesselType = models.VesselType(vesselType)
	return h, nil
}

// --- Row helpers ---

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// closeSegmentAt stamps an open segment closed at end, used when a new test
// start supersedes whatever was left open for the serial.
func closeSegmentAt(ctx context.Context, tx execer, seg *models.Segment, end, now time.Time) error {
	dur := timer.DurationSec(seg.StartTime, end)
	_, err := tx.ExecContext(ctx,
		`UPDATE segments SET end_time=?, duration_sec=?, status=?, last_updated_at=? WHERE id=?`,
		end, dur, string(models.SegmentStatusClosed), now, seg.ID,
	)
	return err
}

func insertSegment(ctx context.Context, tx execer, seg *models.Segment) error {
	var endTime any
	if seg.EndTime != nil {
		endTime = *seg.EndTime
	}
	var durationSec any
	if seg.DurationSec != nil {
		durationSec = *seg.DurationSec
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO segments (`+segmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.ID, seg.Serial, string(seg.SegmentType), seg.StartTime, endTime, durationSec,
		string(seg.Status), seg.Reason, seg.Remark,
		seg.Vessel.FormatVersion, seg.Vessel.ProjectName, string(seg.Vessel.VesselType),
		seg.Operator.FormatVersion, seg.Operator.EmployeeID, seg.Operator.EmployeeName,
		seg.Operator.Station, seg.Manpower,
		seg.CreatedAt, seg.LastUpdatedAt,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (*models.Segment, error) {
	seg := &models.Segment{}
	var segType, status, vesselType string
	var endTime sql.NullTime
	var durationSec sql.NullInt64

	if err := row.Scan(&seg.ID, &seg.Serial, &segType, &seg.StartTime, &endTime, &durationSec,
		&status, &seg.Reason, &seg.Remark,
		&seg.Vessel.FormatVersion, &seg.Vessel.ProjectName, &vesselType,
		&seg.Operator.FormatVersion, &seg.Operator.EmployeeID, &seg.Operator.EmployeeName,
		&seg.Operator.Station, &seg.Manpower,
		&seg.CreatedAt, &seg.LastUpdatedAt); err != nil {
		return nil, err
	}

	seg.SegmentType = models.SegmentType(segType)
	seg.Status = models.SegmentStatus(status)
	seg.Vessel.VesselType = models.VesselType(vesselType)
	seg.Vessel.Serial = seg.Serial
	seg.Operator.Manpower = seg.Manpower
	if endTime.Valid {
		seg.EndTime = &endTime.Time
	}
	if durationSec.Valid {
		d := int(durationSec.Int64)
		seg.DurationSec = &d
	}
	return seg, nil
}

// Package backup creates and restores consistent snapshots of the arcana
// ledger database. Snapshots are taken with VACUUM INTO, which produces a
// coherent copy while the database stays live, and each snapshot carries a
// manifest with a checksum so restores can be verified first.
package backup

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	// dirPerms is the permission mode for snapshot directories (owner only)
	dirPerms = 0700
	// filePerms is the permission mode for snapshot files (owner only)
	filePerms = 0600

	// manifestSuffix is appended to the snapshot filename for its manifest.
	manifestSuffix = ".manifest.json"
)

// validPathPattern matches safe path characters (no SQL injection chars)
var validPathPattern = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)

// Manifest describes one snapshot and is written beside it.
type Manifest struct {
	CreatedAt    time.Time `json:"created_at"`
	Snapshot     string    `json:"snapshot"`
	SizeBytes    int64     `json:"size_bytes"`
	SHA256       string    `json:"sha256"`
	Transactions int64     `json:"transactions"`
	AuditEvents  int64     `json:"audit_events"`
}

// Snapshot is the result of a successful backup.
type Snapshot struct {
	Path     string
	Manifest Manifest
}

// validatePathForSQL ensures a path is safe for use in SQL literals.
// VACUUM INTO does not support parameters, so the path is validated instead.
func validatePathForSQL(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute")
	}
	if !validPathPattern.MatchString(path) {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}

// Create takes a snapshot of the database at dbPath into outputDir and
// writes a manifest beside it.
func Create(dbPath, outputDir string) (*Snapshot, error) {
	if err := os.MkdirAll(outputDir, dirPerms); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	name := fmt.Sprintf("arcana-ledger-%s.db", time.Now().UTC().Format("20060102-150405"))
	destPath, err := filepath.Abs(filepath.Join(outputDir, name))
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot path: %w", err)
	}
	if err := validatePathForSQL(destPath); err != nil {
		return nil, fmt.Errorf("invalid snapshot path: %w", err)
	}

	// VACUUM INTO fails if the file already exists
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("source database is not accessible: %w", err)
	}

	// Path is validated above to prevent SQL injection
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	// Non-fatal, the snapshot itself is intact
	if err := os.Chmod(destPath, filePerms); err != nil {
		slog.Warn("failed to set snapshot permissions", "path", destPath, "error", err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot file was not created: %w", err)
	}

	checksum, err := fileSHA256(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum snapshot: %w", err)
	}

	txCount, auditCount, err := snapshotCounts(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot stats: %w", err)
	}

	manifest := Manifest{
		CreatedAt:    time.Now().UTC(),
		Snapshot:     name,
		SizeBytes:    info.Size(),
		SHA256:       checksum,
		Transactions: txCount,
		AuditEvents:  auditCount,
	}

	if err := writeManifest(destPath+manifestSuffix, manifest); err != nil {
		return nil, err
	}

	return &Snapshot{Path: destPath, Manifest: manifest}, nil
}

// Verify checks a snapshot against its manifest and runs an integrity check.
func Verify(snapshotPath string) (*Manifest, error) {
	manifest, err := readManifest(snapshotPath + manifestSuffix)
	if err != nil {
		return nil, err
	}

	checksum, err := fileSHA256(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum snapshot: %w", err)
	}
	if checksum != manifest.SHA256 {
		return nil, fmt.Errorf("snapshot checksum mismatch: manifest %s, file %s", manifest.SHA256, checksum)
	}

	if err := ValidateDatabase(snapshotPath); err != nil {
		return nil, err
	}

	return manifest, nil
}

// Restore copies a verified snapshot over the database at destPath.
// The caller must ensure nothing has the destination open.
func Restore(snapshotPath, destPath string) error {
	if _, err := Verify(snapshotPath); err != nil {
		return fmt.Errorf("snapshot failed verification: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), dirPerms); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Remove the database along with any WAL and SHM sidecars
	for _, suffix := range []string{"", "-wal", "-shm"} {
		path := destPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing file %s: %w", path, err)
		}
	}

	if err := copyFile(snapshotPath, destPath); err != nil {
		return fmt.Errorf("failed to copy database: %w", err)
	}

	if err := ValidateDatabase(destPath); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("restored database is invalid: %w", err)
	}

	return nil
}

// ValidateDatabase checks that a SQLite database opens and passes an
// integrity check.
func ValidateDatabase(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database is not accessible: %w", err)
	}

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database integrity check failed: %s", result)
	}

	return nil
}

// snapshotCounts returns transaction and audit row counts from a snapshot.
func snapshotCounts(dbPath string) (transactions, auditEvents int64, err error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	err = db.QueryRow("SELECT COUNT(*) FROM credit_transactions").Scan(&transactions)
	if err != nil && !isTableNotFound(err) {
		return 0, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&auditEvents)
	if err != nil && !isTableNotFound(err) {
		return 0, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return transactions, auditEvents, nil
}

// isTableNotFound checks if an error indicates a missing table
func isTableNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func writeManifest(path string, manifest Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, filePerms); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &manifest, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	// Sync to ensure data is written to disk
	return destFile.Sync()
}

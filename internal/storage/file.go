package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/models"
)

// errFileNotFound is returned by readJSON for missing keys.
var errFileNotFound = errors.New("file not found")

// FileStore provides file-based JSON storage with optional versioning.
// Ledgers are versioned; cached price series are not.
type FileStore struct {
	basePath string
	versions int
	logger   *common.Logger
}

const (
	ledgersDir = "ledgers"
	pricesDir  = "prices"
)

// subdirectories defines the directory layout under basePath.
var subdirectories = []string{ledgersDir, pricesDir}

// NewFileStore creates a new FileStore and ensures all subdirectories exist.
func NewFileStore(logger *common.Logger, config *common.StorageConfig) (*FileStore, error) {
	versions := config.Versions
	if versions < 0 {
		versions = 0
	}

	fs := &FileStore{
		basePath: config.Path,
		versions: versions,
		logger:   logger,
	}

	// Create all subdirectories
	for _, sub := range subdirectories {
		dir := filepath.Join(fs.basePath, sub)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	logger.Debug().Str("path", config.Path).Int("versions", versions).Msg("FileStore opened")
	return fs, nil
}

// sanitizeKey makes a key safe for use as a filename.
// Replaces /, \, : with _ and collapses ".." to "_" to prevent path traversal.
// Preserves single dots (safe in filenames, common in tickers like BHP.AU).
func (fs *FileStore) sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func (fs *FileStore) dir(sub string) string {
	return filepath.Join(fs.basePath, sub)
}

// filePath returns the full path for a key in a directory.
func (fs *FileStore) filePath(dir, key string) string {
	return filepath.Join(dir, fs.sanitizeKey(key)+".json")
}

// readJSON reads and unmarshals a JSON file.
func (fs *FileStore) readJSON(dir, key string, dest interface{}) error {
	path := fs.filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s': %w", key, errFileNotFound)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON marshals data to indented JSON and writes it atomically.
// If versioned is true and fs.versions > 0, rotates previous versions before overwriting.
func (fs *FileStore) writeJSON(dir, key string, data interface{}, versioned bool) error {
	target := fs.filePath(dir, key)

	// Marshal to indented JSON
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	if versioned && fs.versions > 0 {
		fs.rotateVersions(target)
	}

	// Atomic write: write to temp file in the same directory, then rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// rotateVersions shifts existing versions up and moves current to v1.
// v{N} -> deleted, v{N-1} -> v{N}, ..., v1 -> v2, current -> v1
func (fs *FileStore) rotateVersions(target string) {
	oldest := fmt.Sprintf("%s.v%d", target, fs.versions)
	os.Remove(oldest)

	for i := fs.versions; i > 1; i-- {
		src := fmt.Sprintf("%s.v%d", target, i-1)
		dst := fmt.Sprintf("%s.v%d", target, i)
		os.Rename(src, dst) // Ignore errors (file may not exist yet)
	}

	if _, err := os.Stat(target); err == nil {
		v1 := fmt.Sprintf("%s.v1", target)
		if err := copyFile(target, v1); err != nil {
			fs.logger.Warn().Str("path", target).Err(err).Msg("Failed to keep previous version")
		}
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// deleteJSON removes a file and all its version backups.
func (fs *FileStore) deleteJSON(dir, key string) error {
	target := fs.filePath(dir, key)

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", target, err)
	}

	for i := 1; i <= fs.versions; i++ {
		os.Remove(fmt.Sprintf("%s.v%d", target, i))
	}

	return nil
}

// listKeys returns all keys in a directory (excluding version files and temp files).
func (fs *FileStore) listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		// Only include .json files, not .json.v1 versions or .tmp-* temp files
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys, nil
}

// --- LedgerStore ---

func (fs *FileStore) GetLedger(_ context.Context, portfolio string) (*models.Ledger, error) {
	var l models.Ledger
	if err := fs.readJSON(fs.dir(ledgersDir), portfolio, &l); err != nil {
		if errors.Is(err, errFileNotFound) {
			return nil, models.ErrLedgerNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (fs *FileStore) SaveLedger(_ context.Context, l *models.Ledger) error {
	return fs.writeJSON(fs.dir(ledgersDir), l.Portfolio, l, true)
}

func (fs *FileStore) DeleteLedger(_ context.Context, portfolio string) error {
	return fs.deleteJSON(fs.dir(ledgersDir), portfolio)
}

// ListPortfolios reads the portfolio name from each stored ledger, since
// file names are sanitized.
func (fs *FileStore) ListPortfolios(_ context.Context) ([]string, error) {
	dir := fs.dir(ledgersDir)
	keys, err := fs.listKeys(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		var l models.Ledger
		if err := fs.readJSON(dir, key, &l); err != nil {
			fs.logger.Warn().Str("key", key).Err(err).Msg("Skipping unreadable ledger")
			continue
		}
		names = append(names, l.Portfolio)
	}
	sort.Strings(names)
	return names, nil
}

// --- PriceCache ---

func (fs *FileStore) GetSeries(_ context.Context, symbol string) (*models.PriceSeries, error) {
	var s models.PriceSeries
	if err := fs.readJSON(fs.dir(pricesDir), symbol, &s); err != nil {
		if errors.Is(err, errFileNotFound) {
			return nil, models.ErrSeriesNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (fs *FileStore) SaveSeries(_ context.Context, s *models.PriceSeries) error {
	return fs.writeJSON(fs.dir(pricesDir), s.Symbol, s, false)
}

// Compile-time interface checks
var (
	_ interfaces.LedgerStore = (*FileStore)(nil)
	_ interfaces.PriceCache  = (*FileStore)(nil)
)

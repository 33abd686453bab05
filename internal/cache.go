package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// CacheVersion is bumped whenever the cached report layout changes
const CacheVersion = "2"

// zstd encoders and decoders are safe for concurrent use, so one of each is
// shared by every CacheManager.
var (
	reportEncoder *zstd.Encoder
	reportDecoder *zstd.Decoder
)

func init() {
	var err error
	reportEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}
	reportDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

// CacheManager stores replayed session reports keyed by the fingerprint of
// the events they were folded from
type CacheManager struct {
	cacheDir string
	mu       sync.Mutex
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	DatabasePath string    `json:"database_path" yaml:"database_path"`
	CacheVersion string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// SessionIndexEntry represents a cached session in the index
type SessionIndexEntry struct {
	SessionID    string    `yaml:"session_id"`
	RowCount     int       `yaml:"row_count"`
	Fingerprint  string    `yaml:"fingerprint"`
	Epoch        int       `yaml:"epoch"`
	MessageCount int       `yaml:"message_count"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// SessionIndex represents the YAML index of all cached sessions
type SessionIndex struct {
	Sessions []SessionIndexEntry `yaml:"sessions"`
	Metadata CacheMetadata       `yaml:"metadata"`
}

// Find returns the index entry for sessionID
func (idx *SessionIndex) Find(sessionID string) (SessionIndexEntry, bool) {
	for _, entry := range idx.Sessions {
		if entry.SessionID == sessionID {
			return entry, true
		}
	}
	return SessionIndexEntry{}, false
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the session index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "sessions.yaml")
}

// GetSessionPath returns the path to a session's compressed report
func (cm *CacheManager) GetSessionPath(sessionID string) string {
	return filepath.Join(cm.cacheDir, SessionFileStem(sessionID)+".json.zst")
}

// LoadIndex loads the session index
func (cm *CacheManager) LoadIndex() (*SessionIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index SessionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &CacheError{Op: "index", Err: fmt.Errorf("failed to unmarshal index: %w", err)}
	}
	return &index, nil
}

// SaveIndex saves the session index
func (cm *CacheManager) SaveIndex(index *SessionIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return &CacheError{Op: "index", Err: err}
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return &CacheError{Op: "index", Err: fmt.Errorf("failed to marshal index: %w", err)}
	}
	if err := os.WriteFile(cm.GetIndexPath(), data, 0644); err != nil {
		return &CacheError{Op: "index", Err: err}
	}
	return nil
}

// IsCacheValid reports whether the cached report for sessionID was built
// from events with the given fingerprint
func (cm *CacheManager) IsCacheValid(sessionID, fingerprint string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.isCacheValid(sessionID, fingerprint)
}

func (cm *CacheManager) isCacheValid(sessionID, fingerprint string) bool {
	index, err := cm.LoadIndex()
	if err != nil {
		return false
	}
	if index.Metadata.CacheVersion != CacheVersion {
		return false
	}
	entry, ok := index.Find(sessionID)
	if !ok || entry.Fingerprint != fingerprint {
		return false
	}
	_, err = os.Stat(cm.GetSessionPath(sessionID))
	return err == nil
}

// SaveReport writes the report and records it in the index under fingerprint
func (cm *CacheManager) SaveReport(report *SessionReport, fingerprint, dbPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := cm.EnsureCacheDir(); err != nil {
		return &CacheError{SessionID: report.SessionID, Op: "save", Err: err}
	}

	data, err := json.Marshal(report)
	if err != nil {
		return &CacheError{SessionID: report.SessionID, Op: "save", Err: fmt.Errorf("failed to marshal report: %w", err)}
	}
	compressed := reportEncoder.EncodeAll(data, nil)
	if err := os.WriteFile(cm.GetSessionPath(report.SessionID), compressed, 0644); err != nil {
		return &CacheError{SessionID: report.SessionID, Op: "save", Err: err}
	}

	now := time.Now().UTC()
	index, err := cm.LoadIndex()
	if err != nil || index.Metadata.CacheVersion != CacheVersion || index.Metadata.DatabasePath != dbPath {
		index = &SessionIndex{
			Sessions: make([]SessionIndexEntry, 0, 1),
			Metadata: CacheMetadata{
				DatabasePath: dbPath,
				CacheVersion: CacheVersion,
				CreatedAt:    now,
			},
		}
	}
	index.Metadata.UpdatedAt = now

	entry := SessionIndexEntry{
		SessionID:    report.SessionID,
		RowCount:     report.RowsIn,
		Fingerprint:  fingerprint,
		MessageCount: len(report.Flat.Messages),
		Epoch:        report.Flat.Epoch,
		UpdatedAt:    now,
	}

	found := false
	for i := range index.Sessions {
		if index.Sessions[i].SessionID == report.SessionID {
			index.Sessions[i] = entry
			found = true
			break
		}
	}
	if !found {
		index.Sessions = append(index.Sessions, entry)
	}

	return cm.SaveIndex(index)
}

// LoadReport returns the cached report for sessionID. The boolean is false
// on a miss: no entry, a stale fingerprint or a missing report file.
func (cm *CacheManager) LoadReport(sessionID, fingerprint string) (*SessionReport, bool, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.isCacheValid(sessionID, fingerprint) {
		return nil, false, nil
	}

	compressed, err := os.ReadFile(cm.GetSessionPath(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, &CacheError{SessionID: sessionID, Op: "load", Err: err}
	}
	data, err := reportDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, &CacheError{SessionID: sessionID, Op: "load", Err: fmt.Errorf("zstd decompress: %w", err)}
	}

	var report SessionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, false, &CacheError{SessionID: sessionID, Op: "load", Err: fmt.Errorf("failed to unmarshal report: %w", err)}
	}
	if report.SessionID != sessionID {
		LogDebug("Cached report for %s belongs to %s", sessionID, report.SessionID)
		return nil, false, nil
	}
	return &report, true, nil
}

// ClearCache removes every cached report and the index
func (cm *CacheManager) ClearCache() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	index, err := cm.LoadIndex()
	if err == nil {
		for _, entry := range index.Sessions {
			_ = os.Remove(cm.GetSessionPath(entry.SessionID))
		}
	}

	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return &CacheError{Op: "index", Err: err}
	}
	return nil
}

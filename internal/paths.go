package internal

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
)

const appDirName = ".harness-session"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SessionFileStem returns a file name stem for sessionID. Ids that had to be
// sanitized carry a short hash of the raw id, so "a/b" and "a_b" never
// share a file.
func SessionFileStem(sessionID string) string {
	safe := unsafeFileChars.ReplaceAllString(sessionID, "_")
	if safe == sessionID && safe != "" {
		return "session_" + safe
	}
	sum := blake3.Sum256([]byte(sessionID))
	return fmt.Sprintf("session_%s-%s", safe, hex.EncodeToString(sum[:8]))
}

// AppDir returns ~/.harness-session
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, appDirName), nil
}

// DefaultDatabasePath is the sqlite event store used when none is configured
func DefaultDatabasePath() string {
	dir, err := AppDir()
	if err != nil {
		return "events.db"
	}
	return filepath.Join(dir, "events.db")
}

// DefaultCacheDir is where cached session reports live
func DefaultCacheDir() string {
	dir, err := AppDir()
	if err != nil {
		return ".harness-session-cache"
	}
	return filepath.Join(dir, "cache")
}

// DefaultConfigPath is the optional JSONC config file
func DefaultConfigPath() string {
	dir, err := AppDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.jsonc")
}

// CopyDatabase copies a sqlite event store, with its -wal and -shm files, to
// a temporary directory so reads never contend with the writer's locks. The
// returned cleanup removes the copy. Postgres URLs and missing files are
// returned unchanged with a no-op cleanup.
func CopyDatabase(url string) (string, func() error, error) {
	noop := func() error { return nil }
	if DetectDialect(url) != DialectSQLite {
		return url, noop, nil
	}
	path := strings.TrimPrefix(url, "sqlite://")
	if _, err := os.Stat(path); err != nil {
		return url, noop, nil
	}

	tmpDir, err := os.MkdirTemp("", "harness-session-db-*")
	if err != nil {
		return "", noop, &StorageError{Path: url, Op: "copy", Err: err}
	}
	cleanup := func() error { return os.RemoveAll(tmpDir) }

	dst := filepath.Join(tmpDir, filepath.Base(path))
	for _, suffix := range []string{"", "-wal", "-shm"} {
		src := path + suffix
		if _, err := os.Stat(src); err != nil {
			if suffix == "" {
				_ = cleanup()
				return "", noop, &StorageError{Path: src, Op: "copy", Err: err}
			}
			continue
		}
		if err := copyFile(src, dst+suffix); err != nil {
			_ = cleanup()
			return "", noop, &StorageError{Path: src, Op: "copy", Err: err}
		}
	}

	LogDebug("Copied database %s to %s", url, dst)
	return dst, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

package internal

import "fmt"

// StorageError represents errors reading or writing the event store
type StorageError struct {
	Path string
	Op   string // "open", "query", "scan", "insert", "migrate"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors decoding rows, payloads or config
type ParseError struct {
	Source string // "jsonl", "payload", "digest"
	Key    string // row id, line number or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError represents errors loading configuration
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CacheError represents errors reading or writing cached session reports
type CacheError struct {
	SessionID string
	Op        string // "load", "save", "index"
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error [%s] %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

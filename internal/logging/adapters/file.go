package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/demyz/dou-jobs-feed/internal/logging/types"
)

// FileAdapter implements the LogAdapter interface for file output
type FileAdapter struct {
	name        string
	config      FileConfig
	file        *os.File
	mu          sync.Mutex
}

// FileConfig represents configuration for the file adapter
type FileConfig struct {
	FilePath    string `yaml:"file_path"`
	Format      string `yaml:"format"` // json or text
	CreateDirs  bool   `yaml:"create_dirs"`
	SyncOnWrite bool   `yaml:"sync_on_write"`
}

// NewFileAdapter creates a new file adapter and opens the target file
func NewFileAdapter(name string, config FileConfig) (*FileAdapter, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("file_path is required for file adapter")
	}

	if config.CreateDirs {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", config.FilePath, err)
	}

	return &FileAdapter{
		name:   name,
		config: config,
		file:   file,
	}, nil
}

// Write writes a log entry to the file
func (a *FileAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return fmt.Errorf("file adapter %s is closed", a.name)
	}

	var output string
	var err error

	switch strings.ToLower(a.config.Format) {
	case "text":
		output = formatText(entry)
	default:
		output, err = formatJSON(entry)
	}

	if err != nil {
		return fmt.Errorf("failed to format log entry: %w", err)
	}

	if _, err := fmt.Fprintln(a.file, output); err != nil {
		return err
	}

	if a.config.SyncOnWrite {
		return a.file.Sync()
	}

	return nil
}

// Close flushes and closes the underlying file
func (a *FileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}

	err := a.file.Close()
	a.file = nil
	return err
}

// Name returns the name of the adapter
func (a *FileAdapter) Name() string {
	return a.name
}

package logging

import (
	"fmt"

	"github.com/demyz/dou-jobs-feed/internal/logging/adapters"
	"github.com/demyz/dou-jobs-feed/internal/logging/types"
)

// Manager manages the logging system initialization and configuration
type Manager struct {
	factory *AdapterFactory
	logger  *MultiLogger
}

// Config holds the logging configuration consumed by the manager.
// It mirrors the logging section of the application config without
// importing it, so the config package can depend on nothing.
type Config struct {
	Level    string                `yaml:"level"`
	Format   string                `yaml:"format"`
	Adapters []types.AdapterConfig `yaml:"adapters"`
}

// NewManager creates a new logging manager
func NewManager() *Manager {
	return &Manager{
		factory: NewAdapterFactory(),
		logger:  NewMultiLogger(),
	}
}

// Initialize initializes the logging system from configuration
func (m *Manager) Initialize(cfg Config) error {
	m.logger.SetLevel(ParseLogLevel(cfg.Level))

	if len(cfg.Adapters) == 0 {
		// No adapters configured, fall back to plain stdout
		adapter := adapters.NewStdoutAdapter("stdout", adapters.StdoutConfig{Format: cfg.Format})
		return m.logger.AddAdapter(adapter)
	}

	for _, adapterConfig := range cfg.Adapters {
		if !adapterConfig.Enabled {
			continue
		}

		adapter, err := m.factory.CreateAdapter(adapterConfig)
		if err != nil {
			return fmt.Errorf("failed to create adapter %s: %w", adapterConfig.Name, err)
		}

		if err := m.logger.AddAdapter(adapter); err != nil {
			return fmt.Errorf("failed to add adapter %s: %w", adapterConfig.Name, err)
		}
	}

	return nil
}

// GetLogger returns the initialized logger
func (m *Manager) GetLogger() Logger {
	return m.logger
}

// Close closes the logging system
func (m *Manager) Close() error {
	if m.logger != nil {
		return m.logger.Close()
	}
	return nil
}

// Global manager instance
var globalManager *Manager

// InitializeLogging initializes the global logging system
func InitializeLogging(cfg Config) error {
	globalManager = NewManager()
	return globalManager.Initialize(cfg)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	if globalManager == nil {
		// Fallback to a basic logger if not initialized
		manager := NewManager()
		adapter := adapters.NewStdoutAdapter("fallback_stdout", adapters.StdoutConfig{Format: "json"})
		manager.logger.AddAdapter(adapter)
		globalManager = manager
	}
	return globalManager.GetLogger()
}

// CloseLogging closes the global logging system
func CloseLogging() error {
	if globalManager != nil {
		return globalManager.Close()
	}
	return nil
}

// LogWithRequestID creates a logger scoped to a single request
func LogWithRequestID(requestID string) Logger {
	return GetGlobalLogger().WithField("request_id", requestID)
}

package backend

import (
	"fmt"
	"strings"

	"bilancio/internal/config"
)

// BackendType names one of the supported stores.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

// IsValid reports whether bt names a known store.
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	}
	return false
}

// typeNames lists the accepted DATA_BACKEND values for error messages.
func typeNames() string {
	return strings.Join([]string{
		string(SQLiteBackend), string(SheetsBackend), string(MemoryBackend),
	}, ", ")
}

// Config carries everything any of the stores might need. Only the fields
// for the selected Type are consulted.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	DataDirectory string
}

// FromAppConfig maps the application config onto a backend Config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := BackendType(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %s)",
			appConfig.DataBackend, typeNames())
	}
	return Config{
		Type:                     t,
		SQLiteDBPath:             appConfig.SQLiteDBPath,
		AMQPURL:                  appConfig.AMQPURL,
		AMQPExchange:             appConfig.AMQPExchange,
		AMQPQueue:                appConfig.AMQPQueue,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		DataDirectory:            appConfig.DataDir,
	}, nil
}

// Validate checks the fields the selected store needs.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		// Credentials may also come from GOOGLE_APPLICATION_CREDENTIALS, so
		// their absence here is not an error. The client reports it on startup.
	case MemoryBackend:
		// The seed directory defaults later, nothing to check.
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

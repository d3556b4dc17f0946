package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bachat/internal/calendar"
	"bachat/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Calendar
	CalendarTableFile string
	FiscalYears       []core.FiscalYear

	// Report worker
	ReportDir       string
	RefreshInterval time.Duration

	// Google Sheets mirror (optional)
	SheetsSpreadsheetID string
	SheetsSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8082"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bachat.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bachat"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_reports"),

		CalendarTableFile: getEnv("CALENDAR_TABLE_FILE", ""),
		FiscalYears:       parseFiscalYears(getEnv("FISCAL_YEARS", "")),

		ReportDir:       getEnv("REPORT_DIR", "./reports"),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 6*time.Hour),

		SheetsSpreadsheetID: getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsSheetName:     getEnv("SHEETS_SHEET_NAME", "Reports"),
	}

	return cfg
}

// DefaultFiscalYears is the enumeration used when FISCAL_YEARS is unset,
// matching the bundled calendar table's range.
func DefaultFiscalYears() []core.FiscalYear {
	return []core.FiscalYear{
		"2081/2082", "2082/2083", "2083/2084", "2084/2085", "2085/2086",
		"2086/2087", "2087/2088", "2088/2089", "2089/2090", "2090/2091",
		"2091/2092",
	}
}

func parseFiscalYears(s string) []core.FiscalYear {
	if strings.TrimSpace(s) == "" {
		return DefaultFiscalYears()
	}
	var out []core.FiscalYear
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, core.FiscalYear(part))
	}
	if len(out) == 0 {
		return DefaultFiscalYears()
	}
	return out
}

// CalendarTable loads the month-length table: the bundled default, or a
// JSON file of {"year": [12 month lengths]} when CALENDAR_TABLE_FILE is
// set. File entries override the bundled years.
func (c *Config) CalendarTable() (calendar.Table, error) {
	table := calendar.DefaultTable()
	if c.CalendarTableFile == "" {
		return table, nil
	}
	data, err := os.ReadFile(c.CalendarTableFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar table file: %w", err)
	}
	var override map[int][12]int
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse calendar table file %s: %w", c.CalendarTableFile, err)
	}
	for year, months := range override {
		table[year] = months
	}
	return table, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	for _, fy := range c.FiscalYears {
		if !fy.WellFormed() {
			errors = append(errors, fmt.Sprintf("invalid fiscal year '%s': must match YYYY/YYYY", fy))
		}
	}

	if c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 minute", c.RefreshInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

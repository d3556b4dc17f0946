package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bachat/internal/core"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8082" {
		t.Errorf("default port = %s, want 8082", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("default backend = %s, want memory", cfg.DataBackend)
	}
	if cfg.AMQPExchange != "bachat" {
		t.Errorf("default exchange = %s, want bachat", cfg.AMQPExchange)
	}
	if cfg.RefreshInterval != 6*time.Hour {
		t.Errorf("default refresh interval = %v, want 6h", cfg.RefreshInterval)
	}
	if len(cfg.FiscalYears) == 0 {
		t.Error("default fiscal-year list is empty")
	}
}

func TestLoadFiscalYearsFromEnv(t *testing.T) {
	t.Setenv("FISCAL_YEARS", "2081/2082, 2082/2083 ,")

	cfg := Load()

	want := []core.FiscalYear{"2081/2082", "2082/2083"}
	if len(cfg.FiscalYears) != len(want) {
		t.Fatalf("fiscal years = %v, want %v", cfg.FiscalYears, want)
	}
	for i := range want {
		if cfg.FiscalYears[i] != want[i] {
			t.Fatalf("fiscal years = %v, want %v", cfg.FiscalYears, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "abc" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"bad backend", func(c *Config) { c.DataBackend = "postgres" }, "invalid data backend"},
		{"bad AMQP scheme", func(c *Config) { c.AMQPURL = "http://localhost" }, "invalid AMQP URL scheme"},
		{"AMQP without queue", func(c *Config) { c.AMQPURL = "amqp://localhost"; c.AMQPQueue = "" }, "queue name cannot be empty"},
		{"bad fiscal year", func(c *Config) { c.FiscalYears = []core.FiscalYear{"2081"} }, "invalid fiscal year"},
		{"refresh too short", func(c *Config) { c.RefreshInterval = time.Second }, "invalid refresh interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Load()
	cfg.Port = "abc"
	cfg.DataBackend = "postgres"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid port") || !strings.Contains(err.Error(), "invalid data backend") {
		t.Fatalf("error should report every failure, got: %v", err)
	}
}

func TestCalendarTableDefault(t *testing.T) {
	cfg := Load()

	table, err := cfg.CalendarTable()
	if err != nil {
		t.Fatalf("CalendarTable() error: %v", err)
	}
	if got := table.DaysInMonth(2081, 2); got != 32 {
		t.Fatalf("DaysInMonth(2081, 2) = %d, want 32 from bundled table", got)
	}
}

func TestCalendarTableOverrideFile(t *testing.T) {
	override := map[int][12]int{
		2081: {30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30, 30},
		2095: {31, 31, 31, 31, 31, 31, 30, 30, 30, 30, 30, 29},
	}
	raw, err := json.Marshal(override)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "table.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	cfg.CalendarTableFile = path

	table, err := cfg.CalendarTable()
	if err != nil {
		t.Fatalf("CalendarTable() error: %v", err)
	}
	if got := table.DaysInMonth(2081, 2); got != 30 {
		t.Fatalf("override year: DaysInMonth(2081, 2) = %d, want 30", got)
	}
	if got := table.DaysInMonth(2095, 12); got != 29 {
		t.Fatalf("new year: DaysInMonth(2095, 12) = %d, want 29", got)
	}
	if got := table.DaysInMonth(2082, 3); got != 32 {
		t.Fatalf("bundled year must survive override: DaysInMonth(2082, 3) = %d, want 32", got)
	}
}

func TestCalendarTableBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	cfg.CalendarTableFile = path

	if _, err := cfg.CalendarTable(); err == nil {
		t.Fatal("expected error for malformed table file")
	}
}

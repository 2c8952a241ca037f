package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "providers", map[string]bool{"providers": true}},
		{"multiple", "providers,quota", map[string]bool{"providers": true, "quota": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " providers , quota ", map[string]bool{"providers": true, "quota": true}},
		{"uppercase normalized", "PROVIDERS,Quota", map[string]bool{"providers": true, "quota": true}},
		{"empty segments", "providers,,quota", map[string]bool{"providers": true, "quota": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("providers,quota")

	if !Enabled("providers") {
		t.Error("providers should be enabled")
	}
	if !Enabled("quota") {
		t.Error("quota should be enabled")
	}
	if Enabled("auth") {
		t.Error("auth should not be enabled")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	if !Enabled("providers") || !Enabled("storage") {
		t.Error("every category should be enabled via 'all'")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInit_EnvOverridesOptions(t *testing.T) {
	orig := categories
	origLogger := slog.Default()
	defer func() {
		categories = orig
		slog.SetDefault(origLogger)
	}()

	t.Setenv(envCategories, "storage")
	t.Setenv(envLevel, "")
	t.Setenv(envFormat, "")

	var buf bytes.Buffer
	Init(Options{Categories: "providers", Level: "DEBUG", Output: &buf})

	if Enabled("providers") {
		t.Error("config categories should be overridden by the environment")
	}
	if !Enabled("storage") {
		t.Error("storage should be enabled from the environment")
	}

	Log("storage", "upsert", "tenant", "t1")
	if !strings.Contains(buf.String(), "debug=storage") {
		t.Errorf("expected debug line in output, got %q", buf.String())
	}
}

func TestInit_JSONFormatAndTrace(t *testing.T) {
	orig := categories
	origLogger := slog.Default()
	defer func() {
		categories = orig
		slog.SetDefault(origLogger)
	}()

	t.Setenv(envCategories, "")
	t.Setenv(envLevel, "")
	t.Setenv(envFormat, "")

	var buf bytes.Buffer
	Init(Options{Categories: "providers", Level: "TRACE", Format: "json", Output: &buf})

	Trace("providers", "request body", "body", "{}")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "TRACE" {
		t.Errorf("expected level TRACE, got %v", entry["level"])
	}
	if entry["debug"] != "providers" {
		t.Errorf("expected debug=providers, got %v", entry["debug"])
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	orig := categories
	origLogger := slog.Default()
	defer func() {
		categories = orig
		slog.SetDefault(origLogger)
	}()

	var buf bytes.Buffer
	slog.SetDefault(slog.New(NewHandler(&buf, "text", LevelTrace)))
	categories = parseCategories("")

	Log("providers", "test message", "key", "value")
	Trace("providers", "trace message", "key", "value")

	if buf.Len() != 0 {
		t.Errorf("expected no output for disabled category, got %q", buf.String())
	}
}

func TestCategoriesSorted(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("quota,auth,providers")
	got := strings.Join(Categories(), ",")
	if got != "auth,providers,quota" {
		t.Errorf("Categories() = %q, want %q", got, "auth,providers,quota")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("this is a long string", 10); got != "this is a ..." {
		t.Errorf("Truncate long = %q", got)
	}
}

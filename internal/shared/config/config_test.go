package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"submerge/internal/shared/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadIniMissingFileKeepsDefaults(t *testing.T) {
	cfg := types.NewDefaultConfig()

	if err := LoadIni(cfg, filepath.Join(t.TempDir(), "absent.ini")); err != nil {
		t.Fatalf("LoadIni returned an error for a missing file: %v", err)
	}
	if cfg.FilterConf.MinRemainGB != 5.0 {
		t.Errorf("Expected the default threshold to survive, but got %v", cfg.FilterConf.MinRemainGB)
	}
	if cfg.OutputConf.File != "sub.txt" {
		t.Errorf("Expected the default output file to survive, but got %q", cfg.OutputConf.File)
	}
}

func TestLoadIniOverridesDefaults(t *testing.T) {
	path := writeFile(t, "submerge.ini", `
[source]
listing_url = https://example.com/nodes.html
max_pages = 3

[fetch]
retries = 2

[filter]
min_remain_gb = 1.5

[probe]
kind = http
max_workers = 12

[output]
file = out/nodes.txt
report_file = out/report.txt

[log]
level = debug
`)

	cfg := types.NewDefaultConfig()
	if err := LoadIni(cfg, path); err != nil {
		t.Fatalf("LoadIni returned an error: %v", err)
	}

	if cfg.SourceConf.ListingURL != "https://example.com/nodes.html" {
		t.Errorf("Unexpected listing_url: %q", cfg.SourceConf.ListingURL)
	}
	if cfg.SourceConf.MaxPages != 3 {
		t.Errorf("Unexpected max_pages: %d", cfg.SourceConf.MaxPages)
	}
	if cfg.FetchConf.Retries != 2 {
		t.Errorf("Unexpected retries: %d", cfg.FetchConf.Retries)
	}
	if cfg.FilterConf.MinRemainGB != 1.5 {
		t.Errorf("Unexpected min_remain_gb: %v", cfg.FilterConf.MinRemainGB)
	}
	if cfg.ProbeConf.Kind != "http" || cfg.ProbeConf.MaxWorkers != 12 {
		t.Errorf("Unexpected probe config: %+v", cfg.ProbeConf)
	}
	if cfg.OutputConf.ReportFile != "out/report.txt" {
		t.Errorf("Unexpected report_file: %q", cfg.OutputConf.ReportFile)
	}
	if cfg.LogConf.Level != "debug" {
		t.Errorf("Unexpected log level: %q", cfg.LogConf.Level)
	}
	// Keys the file does not mention keep their defaults.
	if cfg.FetchConf.UserAgent != "Mozilla/5.0 (GitHub Actions)" {
		t.Errorf("Expected the default user agent to survive, but got %q", cfg.FetchConf.UserAgent)
	}
}

func TestLoadIniEnvOverridesWin(t *testing.T) {
	path := writeFile(t, "submerge.ini", `
[source]
listing_url = https://from-file.example/
[filter]
min_remain_gb = 2.0
`)

	t.Setenv("SUBMERGE_LISTING_URL", "https://from-env.example/")
	t.Setenv("SUBMERGE_MIN_REMAIN_GB", "7.5")
	t.Setenv("SUBMERGE_OUTPUT_FILE", "env.txt")

	cfg := types.NewDefaultConfig()
	if err := LoadIni(cfg, path); err != nil {
		t.Fatalf("LoadIni returned an error: %v", err)
	}

	if cfg.SourceConf.ListingURL != "https://from-env.example/" {
		t.Errorf("Expected the env listing URL to win, but got %q", cfg.SourceConf.ListingURL)
	}
	if cfg.FilterConf.MinRemainGB != 7.5 {
		t.Errorf("Expected the env threshold to win, but got %v", cfg.FilterConf.MinRemainGB)
	}
	if cfg.OutputConf.File != "env.txt" {
		t.Errorf("Expected the env output file to win, but got %q", cfg.OutputConf.File)
	}
}

func TestLoadSubListYAMLArray(t *testing.T) {
	path := writeFile(t, "subs.yaml", `
- https://a.example/sub
- https://b.example/sub
`)

	urls, err := LoadSubList(path)
	if err != nil {
		t.Fatalf("LoadSubList returned an error: %v", err)
	}
	want := []string{"https://a.example/sub", "https://b.example/sub"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Expected %v, but got %v", want, urls)
	}
}

func TestLoadSubListYAMLObject(t *testing.T) {
	path := writeFile(t, "subs.yaml", `
sub-urls:
  - https://a.example/sub
  - https://b.example/sub
`)

	urls, err := LoadSubList(path)
	if err != nil {
		t.Fatalf("LoadSubList returned an error: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.example/sub" {
		t.Errorf("Unexpected urls: %v", urls)
	}
}

func TestLoadSubListPlainLines(t *testing.T) {
	path := writeFile(t, "subs.txt", `
# hand-maintained fallbacks
https://a.example/sub

https://b.example/sub
`)

	urls, err := LoadSubList(path)
	if err != nil {
		t.Fatalf("LoadSubList returned an error: %v", err)
	}
	want := []string{"https://a.example/sub", "https://b.example/sub"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Expected comments and blanks to be skipped, but got %v", urls)
	}
}

func TestLoadSubListMissingFile(t *testing.T) {
	urls, err := LoadSubList(filepath.Join(t.TempDir(), "absent.txt"))
	if err != nil {
		t.Fatalf("Expected a missing file to be tolerated, but got %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("Expected an empty list, but got %v", urls)
	}
}

package storage

import (
	"os"
	"path/filepath"
	"submerge/nodepool/model"
	"testing"
	"time"
)

func TestFileWriterSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.txt")
	w := NewFileWriter(path)

	nodes := []*model.Node{
		{URI: "vmess://aGVsbG8="},
		{URI: "trojan://u@h:443#r"},
	}

	if err := w.Save(nodes); err != nil {
		t.Fatalf("Save returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	want := "vmess://aGVsbG8=\ntrojan://u@h:443#r\n"
	if string(data) != want {
		t.Errorf("Expected %q, but got %q", want, string(data))
	}
}

func TestFileWriterOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.txt")
	if err := os.WriteFile(path, []byte("stale content\nfrom a previous run\n"), 0644); err != nil {
		t.Fatalf("Failed to seed the output file: %v", err)
	}

	w := NewFileWriter(path)
	if err := w.Save([]*model.Node{{URI: "vmess://aGVsbG8="}}); err != nil {
		t.Fatalf("Save returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	if string(data) != "vmess://aGVsbG8=\n" {
		t.Errorf("Expected the file to be overwritten, but got %q", string(data))
	}
}

func TestReportWriterSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	w := NewReportWriter(path)

	nodes := []*model.Node{{
		URI:         "trojan://u@h:443#x",
		Scheme:      model.SchemeTrojan,
		Host:        "h",
		Port:        443,
		Remark:      "plan|a", // delimiter inside the remark must not break the line
		RemainBytes: 123,
		Latency:     250 * time.Millisecond,
		Reachable:   true,
	}}

	if err := w.Save(nodes); err != nil {
		t.Fatalf("Save returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report file: %v", err)
	}
	want := "250|123|trojan|h|443|plan a|trojan://u@h:443#x\n"
	if string(data) != want {
		t.Errorf("Expected %q, but got %q", want, string(data))
	}
}

func TestReportWriterUnknownQuota(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	w := NewReportWriter(path)

	nodes := []*model.Node{{
		URI:         "hysteria2://h:8443#x",
		Scheme:      model.SchemeHysteria2,
		Host:        "h",
		Port:        8443,
		RemainBytes: model.RemainUnknown,
		Latency:     90 * time.Millisecond,
	}}

	if err := w.Save(nodes); err != nil {
		t.Fatalf("Save returned an error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report file: %v", err)
	}
	want := "90|-1|hysteria2|h|8443||hysteria2://h:8443#x\n"
	if string(data) != want {
		t.Errorf("Expected %q, but got %q", want, string(data))
	}
}

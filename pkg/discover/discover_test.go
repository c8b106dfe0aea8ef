package discover

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"**/*.log", []string{"**/*.log"}},
		{"a/*.log;b/*.jtl", []string{"a/*.log", "b/*.jtl"}},
		{"x.log, y.log : z.log", []string{"x.log", "y.log", "z.log"}},
		{" ; ,", nil},
		{"", nil},
	}

	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMatcher(t *testing.T) {
	m, err := Compile([]string{"**/*.log", "reports/summary-?.txt"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"a.log", true},
		{"x/y/a.log", true},
		{"a.jtl", false},
		{"reports/summary-1.txt", true},
		{"reports/summary-10.txt", false},
		{"other/summary-1.txt", false},
	}

	for _, tt := range tests {
		if got := m.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if _, err := Compile([]string{"[unclosed"}); err == nil {
		t.Error("Compile should reject a malformed glob")
	}
}

func TestFind(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "perftrend-discover-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	files := []string{
		"summary.log",
		"nested/deeper/jmeter.log",
		"nested/results.jtl",
		".git/logs/HEAD.log",
	}
	for _, f := range files {
		path := filepath.Join(tempDir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}

	got, err := Find(tempDir, "")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	want := []string{
		filepath.Join(tempDir, "nested/deeper/jmeter.log"),
		filepath.Join(tempDir, "summary.log"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Find = %v, want %v", got, want)
	}

	got, err = Find(tempDir, "**/*.jtl")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "results.jtl" {
		t.Errorf("Find jtl = %v", got)
	}

	if _, err := Find(filepath.Join(tempDir, "missing"), ""); err == nil {
		t.Error("Find on a missing directory should fail")
	}
}

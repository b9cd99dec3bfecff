package util

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestInitLoggerWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := InitLogger(LogConfig{Level: "debug", Directory: dir}); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}

	name := "craftlure_" + time.Now().Format("2006-01-02") + ".log"
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("log file not created: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestInitLoggerUnknownLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := InitLogger(LogConfig{Level: "chatty"}); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", zerolog.GlobalLevel())
	}
}

func TestCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"craftlure_2024-01-01.log",
		"craftlure_2024-01-02.log",
		"craftlure_2024-01-03.log",
		"craftlure_2024-01-04.log",
		"notes.txt",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	cleanOldLogs(dir, 2)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	sort.Strings(got)

	want := []string{"craftlure_2024-01-03.log", "craftlure_2024-01-04.log", "notes.txt"}
	if len(got) != len(want) {
		t.Fatalf("remaining = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("remaining[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetSystemInfo(t *testing.T) {
	info := GetSystemInfo()
	if info.Platform == "" || info.Architecture == "" {
		t.Errorf("system info = %+v", info)
	}
	if info.CPUCores < 1 {
		t.Errorf("cpu cores = %d", info.CPUCores)
	}
}

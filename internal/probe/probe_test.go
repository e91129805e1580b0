package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStatic_Query(t *testing.T) {
	s := Static{QueryDriverVersion: "551.86"}

	out, err := s.Query(context.Background(), QueryDriverVersion)
	if err != nil || out != "551.86" {
		t.Fatalf("Query() = %q, %v", out, err)
	}

	_, err = s.Query(context.Background(), QueryCPUName)
	if !errors.Is(err, ErrUnsupportedQuery) {
		t.Errorf("expected ErrUnsupportedQuery, got %v", err)
	}
}

func TestChain_FirstNonEmptyAnswerWins(t *testing.T) {
	failing := Func(func(context.Context, Query) (string, error) {
		return "", errors.New("nvml not loaded")
	})
	empty := Static{QueryDriverVersion: "  \n"}
	answer := Static{QueryDriverVersion: "535.104.05"}

	out, err := Chain(failing, nil, empty, answer).Query(context.Background(), QueryDriverVersion)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if out != "535.104.05" {
		t.Errorf("Query() = %q, want 535.104.05", out)
	}
}

func TestChain_AllFail(t *testing.T) {
	boom := errors.New("boom")
	failing := Func(func(context.Context, Query) (string, error) { return "", boom })

	_, err := Chain(Static{}, failing).Query(context.Background(), QueryOSVersion)
	if !errors.Is(err, boom) {
		t.Errorf("expected last error, got %v", err)
	}

	_, err = Chain().Query(context.Background(), QueryOSVersion)
	if !errors.Is(err, ErrUnsupportedQuery) {
		t.Errorf("empty chain should report unsupported, got %v", err)
	}
}

func TestLoadStatic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	fixture := `adapters: |
  Node,AdapterRAM,Name
  HOST,1073741824,Intel(R) UHD Graphics 630
  HOST,4293918720,NVIDIA GeForce RTX 3080
cuda_version: "12.4"
`
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("LoadStatic() error = %v", err)
	}
	if !strings.Contains(s[QueryAdapters], "RTX 3080") {
		t.Errorf("adapters = %q", s[QueryAdapters])
	}
	if s[QueryCUDAVersion] != "12.4" {
		t.Errorf("cuda_version = %q", s[QueryCUDAVersion])
	}
}

func TestLoadStatic_UnknownQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte("gpu_temperature: \"70\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadStatic(path); err == nil {
		t.Error("expected error for unknown query key")
	}
}

func TestFormatCUDAVersion(t *testing.T) {
	tests := map[int]string{
		12020: "12.2",
		11080: "11.8",
		12000: "12.0",
		10010: "10.1",
	}
	for in, want := range tests {
		if got := FormatCUDAVersion(in); got != want {
			t.Errorf("FormatCUDAVersion(%d) = %s, want %s", in, got, want)
		}
	}
}

func TestCommandTables(t *testing.T) {
	win := WindowsCommands()
	for _, q := range AllQueries {
		if _, ok := win[q]; !ok {
			t.Errorf("windows table missing %s", q)
		}
	}

	unix := UnixCommands()
	if _, ok := unix[QueryAdapters]; ok {
		t.Error("unix table should not claim adapter listing")
	}
	if unix[QueryCUDABanner].Name != "nvidia-smi" {
		t.Errorf("banner command = %+v", unix[QueryCUDABanner])
	}

	def := DefaultCommands()
	if runtime.GOOS == "windows" {
		if _, ok := def[QueryAdapters]; !ok {
			t.Error("default windows table should list adapters")
		}
	}
}

func TestCommandProbe_UnsupportedQuery(t *testing.T) {
	p := NewCommandProbe(CommandTable{})
	_, err := p.Query(context.Background(), QueryAdapters)
	if !errors.Is(err, ErrUnsupportedQuery) {
		t.Errorf("expected ErrUnsupportedQuery, got %v", err)
	}
}

func TestCommandProbe_MissingBinary(t *testing.T) {
	p := NewCommandProbe(CommandTable{
		QueryOSVersion: {Name: "gpuguard-definitely-not-installed"},
	})
	if _, err := p.Query(context.Background(), QueryOSVersion); err == nil {
		t.Error("expected error for missing binary")
	}
}

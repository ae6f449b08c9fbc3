package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusprap/mcp-berita-acara/internal/config"
	"github.com/markusprap/mcp-berita-acara/internal/mcp"
	"github.com/markusprap/mcp-berita-acara/internal/pdf"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = original }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() { version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit }()

	version = "1.2.3"
	buildTime = "2025-12-25T10:00:00Z"
	gitCommit = "abc123"

	output := captureStdout(t, printVersion)

	for _, want := range []string{
		"MCP Berita Acara",
		"Version: 1.2.3",
		"Build Time: 2025-12-25T10:00:00Z",
		"Git Commit: abc123",
		"Built with: " + runtime.Version(),
	} {
		assert.Contains(t, output, want)
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	tests := []struct {
		name       string
		cfg        *config.Config
		wantWriter io.Writer
	}{
		{"stdio debug", &config.Config{Mode: config.ModeStdio, LogLevel: "debug"}, os.Stderr},
		{"stdio quiet", &config.Config{Mode: config.ModeStdio, LogLevel: "info"}, io.Discard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogging(tt.cfg)
			assert.Equal(t, tt.wantWriter, log.Writer())
		})
	}

	t.Run("server mode", func(t *testing.T) {
		setupLogging(&config.Config{Mode: config.ModeServer, LogLevel: "info"})
		assert.Equal(t, log.LstdFlags|log.Lshortfile, log.Flags())
	})

	t.Run("nil config panics", func(t *testing.T) {
		assert.Panics(t, func() { setupLogging(nil) })
	})
}

func TestSetupProcs(t *testing.T) {
	before := runtime.GOMAXPROCS(0)
	defer runtime.GOMAXPROCS(before)

	assert.NotPanics(t, func() { setupProcs(&config.Config{LogLevel: "info"}) })
	assert.GreaterOrEqual(t, runtime.GOMAXPROCS(0), 1)
}

func TestLoadRoster(t *testing.T) {
	r, err := loadRoster("")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())

	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("employees:\n  - nik: \"2010001\"\n    name: Budi Santoso\n    role: AS\n"), 0o600))
	r, err = loadRoster(path)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	_, err = loadRoster(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunServerMode_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	cfg.WorkDir = dir
	cfg.OutputDir = dir

	svc, err := pdf.NewService(cfg.MaxFileSize, dir, dir)
	require.NoError(t, err)
	server, err := mcp.NewServer(cfg, svc)
	require.NoError(t, err)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Error(t, runServerMode(ctx, cancel, server))
}

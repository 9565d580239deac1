package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

func TestLogLevels(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{level: "error", expected: []string{"ERROR"}, excluded: []string{"WARN", "INFO", "DEBUG"}},
		{level: "warn", expected: []string{"ERROR", "WARN"}, excluded: []string{"INFO", "DEBUG"}},
		{level: "info", expected: []string{"ERROR", "WARN", "INFO"}, excluded: []string{"DEBUG"}},
		{level: "debug", expected: []string{"ERROR", "WARN", "INFO", "DEBUG"}},
		{level: "bogus", expected: []string{"ERROR", "WARN", "INFO"}, excluded: []string{"DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(tempDir, tt.level+".log")

			cfg := FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}
			if err := InitWithFileConfig(tt.level, cfg, false); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			logContent := string(content)

			for _, exp := range tt.expected {
				if !strings.Contains(logContent, exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(logContent, exc) {
					t.Errorf("unexpected %s in log output for level %s", exc, tt.level)
				}
			}
		})
	}
}

func TestNamed(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "named.log")
	if err := InitWithFileConfig("info", FileConfig{Path: logFile, MaxSizeMB: 1}, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	Named("shadow").Info("split updated")
	Sync()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "shadow") {
		t.Errorf("expected logger name in output, got %q", content)
	}
}

func TestMathFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	m := math.Translate(1, 2, 3)
	log.Info("light",
		Vec3("dir", math.Vec3{X: 0, Y: -1, Z: 0.5}),
		Mat4("view", m),
		Box("scene", math.Box{Min: math.Vec3{X: -1, Y: -2, Z: -3}, Max: math.Vec3{X: 1, Y: 2, Z: 3}}),
		Box("nothing", math.EmptyBox()),
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()

	dir, ok := ctx["dir"].([]interface{})
	if !ok || len(dir) != 3 || dir[1] != float32(-1) {
		t.Errorf("unexpected dir field %v", ctx["dir"])
	}

	view, ok := ctx["view"].([]interface{})
	if !ok || len(view) != 16 {
		t.Fatalf("unexpected view field %v", ctx["view"])
	}
	if view[12] != float32(1) || view[14] != float32(3) {
		t.Errorf("expected column-major translation, got %v", view)
	}

	scene, ok := ctx["scene"].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected scene field %v", ctx["scene"])
	}
	if max, ok := scene["max"].([]interface{}); !ok || max[2] != float32(3) {
		t.Errorf("unexpected scene max %v", scene["max"])
	}

	nothing, ok := ctx["nothing"].(map[string]interface{})
	if !ok || nothing["empty"] != true {
		t.Errorf("expected empty marker, got %v", ctx["nothing"])
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/test.log")

	if cfg.Path != "/tmp/test.log" {
		t.Errorf("expected path /tmp/test.log, got %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 20 {
		t.Errorf("expected MaxSizeMB 20, got %d", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups != 3 {
		t.Errorf("expected MaxBackups 3, got %d", cfg.MaxBackups)
	}
	if !cfg.Compress {
		t.Error("expected Compress to be true")
	}
}

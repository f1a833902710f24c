package scaffold

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/recipebook/internal/config"
	"github.com/loykin/recipebook/internal/recipe"
	"github.com/loykin/recipebook/internal/timing"
	rbtls "github.com/loykin/recipebook/internal/tls"
)

func TestGenerator_Generate(t *testing.T) {
	tests := []struct {
		name   string
		format Format
	}{
		{"toml", FormatTOML},
		{"yaml", FormatYAML},
		{"default", ""},
		{"upper", "YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "book")
			g := NewGenerator()
			paths, err := g.Generate(Options{Dir: dir, Format: tt.format})
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if len(paths) != 3 {
				t.Fatalf("expected 3 files, got %v", paths)
			}

			cfg, err := config.LoadConfig(paths[0])
			if err != nil {
				t.Fatalf("generated config does not load: %v", err)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("generated config invalid: %v", err)
			}
			if cfg.History.Retention != 720*time.Hour || cfg.Metrics.ProcessInterval != 15*time.Second {
				t.Fatalf("durations not decoded: retention=%s interval=%s", cfg.History.Retention, cfg.Metrics.ProcessInterval)
			}
			if cfg.Data.Recipes != filepath.Join(dir, RecipesFile) {
				t.Fatalf("recipes path = %q", cfg.Data.Recipes)
			}

			rs, err := recipe.Open(cfg.Data.Recipes)
			if err != nil {
				t.Fatalf("generated recipes do not load: %v", err)
			}
			if rs.Len() != len(g.SampleRecipes()) {
				t.Fatalf("recipes = %d", rs.Len())
			}

			tc, err := timing.Load(cfg.Data.Timings)
			if err != nil {
				t.Fatalf("generated timings do not load: %v", err)
			}
			if tc.CurrentEnd() != "18:00" {
				t.Fatalf("end = %s", tc.CurrentEnd())
			}
			sched := tc.Schedule()
			if sched[0].Time != "14:30" || sched[len(sched)-1].Time != "18:00" {
				t.Fatalf("unexpected schedule: %+v", sched)
			}
		})
	}
}

func TestGenerator_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator()
	if _, err := g.Generate(Options{Dir: dir}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, RecipesFile), []byte("[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := g.Generate(Options{Dir: dir})
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, RecipesFile))
	if string(b) != "[]\n" {
		t.Fatalf("existing file was modified: %q", b)
	}

	if _, err := g.Generate(Options{Dir: dir, Force: true}); err != nil {
		t.Fatalf("force: %v", err)
	}
	rs, err := recipe.Open(filepath.Join(dir, RecipesFile))
	if err != nil || rs.Len() == 0 {
		t.Fatalf("force did not rewrite recipes: %v", err)
	}
}

func TestGenerator_SelfSigned(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewGenerator().Generate(Options{Dir: dir, SelfSigned: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(paths) != 5 {
		t.Fatalf("expected 5 files, got %v", paths)
	}
	cfg, err := config.LoadConfig(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Server.TLS.Enabled || cfg.Server.TLS.CertFile != filepath.Join(dir, rbtls.CertFileName) {
		t.Fatalf("tls not configured: %+v", cfg.Server.TLS)
	}
	if _, err := rbtls.SetupTLS(cfg.Server.TLS); err != nil {
		t.Fatalf("generated certificate unusable: %v", err)
	}
}

func TestGenerator_UnknownFormat(t *testing.T) {
	if _, err := NewGenerator().Generate(Options{Dir: t.TempDir(), Format: "ini"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestGetSupportedFormats(t *testing.T) {
	got := NewGenerator().GetSupportedFormats()
	if len(got) != 2 || got[0] != "toml" || got[1] != "yaml" {
		t.Fatalf("unexpected formats: %v", got)
	}
}

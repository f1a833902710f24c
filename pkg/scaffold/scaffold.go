package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/recipebook/internal/recipe"
	"github.com/loykin/recipebook/internal/timing"
	rbtls "github.com/loykin/recipebook/internal/tls"
)

// Format selects the config file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

const (
	RecipesFile = "recipes.yaml"
	TimingsFile = "timings.yaml"
)

// Options controls what Generate writes.
type Options struct {
	Dir        string
	Format     Format
	Force      bool // overwrite existing files
	SelfSigned bool // also write a development certificate and enable TLS
}

// ErrExists is returned when a target file exists and Force is not set.
var ErrExists = errors.New("file already exists")

// Generator writes a starter recipe book: config, recipes and timings.
type Generator struct{}

// NewGenerator creates a new scaffold generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GetSupportedFormats returns the config formats Generate accepts.
func (g *Generator) GetSupportedFormats() []string {
	return []string{string(FormatTOML), string(FormatYAML)}
}

// ConfigFileName returns the config file name for a format.
func ConfigFileName(f Format) string {
	return "config." + string(f)
}

// SampleRecipes returns the starter recipes.
func (g *Generator) SampleRecipes() []recipe.Recipe {
	return []recipe.Recipe{
		recipe.New("Roast Potatoes",
			[]string{"1kg floury potatoes", "4 tbsp goose fat", "salt"},
			"Parboil for 8 minutes.\nShake in the colander to rough the edges.\nRoast in hot fat for an hour, turning once."),
		recipe.New("Bread Sauce",
			[]string{"500ml milk", "1 onion", "6 cloves", "100g white breadcrumbs"},
			"Stud the onion with cloves and infuse in the milk.\nRemove the onion, stir in the crumbs and season."),
	}
}

// SampleTimings returns a starter roast schedule ending at 18:00.
func (g *Generator) SampleTimings() timing.File {
	return timing.File{
		End: timing.At(18, 0),
		Steps: []timing.Step{
			{Step: "Turkey in", Offset: -210},
			{Step: "Potatoes in", Offset: -70},
			{Step: "Turkey out to rest", Offset: -40},
			{Step: "Make gravy", Offset: -20},
			{Step: "Serve", Offset: 0},
		},
	}
}

// ConfigSettings returns the config keys written for opts, as dotted viper keys.
func (g *Generator) ConfigSettings(opts Options) map[string]any {
	s := map[string]any{
		"server.listen":            ":8080",
		"server.base_path":         "",
		"data.recipes":             RecipesFile,
		"data.timings":             TimingsFile,
		"log.level":                "info",
		"log.format":               "text",
		"log.file":                 "",
		"metrics.enabled":          true,
		"metrics.path":             "/metrics",
		"metrics.process_interval": "15s",
		"history.enabled":          false,
		"history.dsn":              "sqlite://history.db",
		"history.retention":        "720h",
		"history.prune_schedule":   "@daily",
		"server.tls.enabled":       false,
	}
	if opts.SelfSigned {
		s["server.tls.enabled"] = true
		s["server.tls.cert_file"] = rbtls.CertFileName
		s["server.tls.key_file"] = rbtls.KeyFileName
		s["server.tls.min_version"] = "1.2"
	}
	return s
}

// Generate writes the starter files into opts.Dir, creating it if needed,
// and returns the written paths.
func (g *Generator) Generate(opts Options) ([]string, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Format == "" {
		opts.Format = FormatTOML
	}
	opts.Format = Format(strings.ToLower(string(opts.Format)))
	if opts.Format != FormatTOML && opts.Format != FormatYAML {
		return nil, fmt.Errorf("unknown config format: %s (supported: %s)", opts.Format, strings.Join(g.GetSupportedFormats(), ", "))
	}

	cfgPath := filepath.Join(opts.Dir, ConfigFileName(opts.Format))
	recipesPath := filepath.Join(opts.Dir, RecipesFile)
	timingsPath := filepath.Join(opts.Dir, TimingsFile)
	targets := []string{cfgPath, recipesPath, timingsPath}
	if !opts.Force {
		for _, p := range targets {
			if _, err := os.Stat(p); err == nil {
				return nil, fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, p)
			}
		}
	}

	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	rb, err := recipe.Encode(g.SampleRecipes())
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(recipesPath, rb, 0o644); err != nil {
		return nil, fmt.Errorf("write recipes: %w", err)
	}

	tb, err := timing.Encode(g.SampleTimings())
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(timingsPath, tb, 0o644); err != nil {
		return nil, fmt.Errorf("write timings: %w", err)
	}

	v := viper.New()
	for k, val := range g.ConfigSettings(opts) {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(cfgPath); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	if opts.SelfSigned {
		cc := rbtls.DevCertConfig(opts.Dir)
		cc.Overwrite = opts.Force
		if err := rbtls.GenerateSelfSignedCert(cc); err != nil {
			return nil, err
		}
		targets = append(targets, cc.CertPath, cc.KeyPath)
	}
	return targets, nil
}

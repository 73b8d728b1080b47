// Package config loads and validates bookforge site configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a bookforge site.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Literate LiterateConfig `yaml:"literate"`
	Styles   StylesConfig   `yaml:"styles"`
	EPUB     EPUBConfig     `yaml:"epub"`
	Serve    ServeConfig    `yaml:"serve"`
	State    StateConfig    `yaml:"state"`
}

// SiteConfig describes the site-wide metadata exposed to templates.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Description string `yaml:"description"`
	BaseURL     string `yaml:"base_url"`
	TOCDepth    int    `yaml:"toc_depth"`
}

// SourceConfig describes where documents come from.
type SourceConfig struct {
	Root    string   `yaml:"root"`
	Courses []string `yaml:"courses"` // extra course directories built as standalone chapters
}

// OutputConfig describes where rendered documents go.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // clean output directory before build
}

// LiterateConfig configures the external literate compiler.
type LiterateConfig struct {
	Bin          string    `yaml:"bin"`
	LibraryRoots []string  `yaml:"library_roots"`
	IncludeDirs  []string  `yaml:"include_dirs"`
	Links        []LinkMap `yaml:"links"`
}

// LinkMap maps a local library path prefix to the public base URL its
// generated cross-references should point at.
type LinkMap struct {
	Local  string `yaml:"local"`
	Public string `yaml:"public"`
}

// StylesConfig configures the external stylesheet compiler.
type StylesConfig struct {
	Bin          string   `yaml:"bin"`
	IncludePaths []string `yaml:"include_paths"`
}

// EPUBConfig configures standalone book output.
type EPUBConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Output     string   `yaml:"output"`
	Fonts      []string `yaml:"fonts"`
	ChapterKey string   `yaml:"chapter_key"` // metadata field used to order chapters
}

// ServeConfig configures the preview server used by watch mode.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// StateConfig configures incremental build state.
type StateConfig struct {
	Path string `yaml:"path"` // sqlite database path, empty disables state tracking
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Untitled Book"
	}
	if c.Site.TOCDepth <= 0 {
		c.Site.TOCDepth = 2
	}
	if c.Source.Root == "" {
		c.Source.Root = "."
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "_site"
	}
	if c.Literate.Bin == "" {
		c.Literate.Bin = "agda"
	}
	if c.Styles.Bin == "" {
		c.Styles.Bin = "sass"
	}
	if c.EPUB.Output == "" {
		c.EPUB.Output = filepath.Join(c.Output.Directory, "book.epub")
	}
	if c.EPUB.ChapterKey == "" {
		c.EPUB.ChapterKey = "chapter"
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = ":8000"
	}
}

func (c *Config) validate() error {
	if c.Output.Directory == c.Source.Root {
		return fmt.Errorf("output directory must differ from source root: %s", c.Output.Directory)
	}
	for _, root := range c.Literate.LibraryRoots {
		if root == "" {
			return fmt.Errorf("literate library_roots entries must not be empty")
		}
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Site: SiteConfig{
			Title:       "My Book",
			Author:      "Jane Author",
			Description: "A literate programming book",
			BaseURL:     "https://example.com",
			TOCDepth:    2,
		},
		Source: SourceConfig{
			Root:    ".",
			Courses: []string{"courses"},
		},
		Output: OutputConfig{
			Directory: "_site",
			Clean:     true,
		},
		Literate: LiterateConfig{
			Bin:          "agda",
			LibraryRoots: []string{"standard-library"},
		},
		Styles: StylesConfig{
			Bin:          "sass",
			IncludePaths: []string{"css"},
		},
		EPUB: EPUBConfig{
			Enabled:    true,
			Output:     "_site/book.epub",
			ChapterKey: "chapter",
		},
		Serve: ServeConfig{
			Addr: ":8000",
		},
		State: StateConfig{
			Path: ".bookforge/state.db",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// loadEnvFile loads environment variables from a .env file in the
// current directory, if present.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return err
	}
	return godotenv.Load()
}

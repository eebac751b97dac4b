// Package config loads a project's casm.toml: the ruledef/source files
// to assemble, driver symbol overrides, and default output settings.
// Grounded on lookbusy1344-arm_emulator's config package (same
// BurntSushi/toml decode-into-struct shape).
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is a casm.toml project file.
type Config struct {
	Project struct {
		RuledefFiles []string `toml:"ruledefs"`
		SourceFile   string   `toml:"source"`
		Bits         int      `toml:"bits"`
	} `toml:"project"`

	Output struct {
		Format  string `toml:"format"` // binary, hexstr, intelhex, mif, logisim, ...
		File    string `toml:"file"`
		SymFile string `toml:"symbol_file"`
		Gzip    bool   `toml:"gzip"`
	} `toml:"output"`

	Driver struct {
		MaxIterations int               `toml:"max_iterations"`
		SymbolDefs    map[string]string `toml:"symbol_defs"`
	} `toml:"driver"`
}

// DefaultConfig matches resolver.DefaultOptions' bits/iteration defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Project.Bits = 8
	cfg.Output.Format = "binary"
	cfg.Driver.MaxIterations = 10
	return cfg
}

// Load reads and decodes a casm.toml file at path, starting from
// DefaultConfig so fields the file omits keep sensible values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg back out as TOML, used by `casm init` to scaffold a
// starting project file.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create project file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultSessionPrefix marks BeginStrings whose application dictionary is
// chosen separately through ApplVerID(1128).
const DefaultSessionPrefix = "FIXT."

// DictionaryCatalog maps FIX versions found in messages to dictionary files.
type DictionaryCatalog struct {
	// Directory that relative dictionary file names are resolved against.
	Directory string `yaml:"directory" toml:"directory" json:"directory"`
	// SessionPrefix selects BeginStrings that also need an ApplVerID lookup.
	SessionPrefix string `yaml:"session_prefix" toml:"session_prefix" json:"sessionPrefix"`
	// BeginStrings maps BeginString(8) values to base dictionaries.
	BeginStrings map[string]string `yaml:"begin_strings" toml:"begin_strings" json:"beginStrings"`
	// ApplVerIDs maps ApplVerID(1128) values to application dictionaries.
	ApplVerIDs map[string]string `yaml:"appl_ver_ids" toml:"appl_ver_ids" json:"applVerIds"`
}

// DefaultCatalog returns the standard QuickFIX dictionary file names.
func DefaultCatalog(dir string) *DictionaryCatalog {
	return &DictionaryCatalog{
		Directory:     dir,
		SessionPrefix: DefaultSessionPrefix,
		BeginStrings: map[string]string{
			"FIX.4.0":  "FIX40.xml",
			"FIX.4.1":  "FIX41.xml",
			"FIX.4.2":  "FIX42.xml",
			"FIX.4.3":  "FIX43.xml",
			"FIX.4.4":  "FIX44.xml",
			"FIXT.1.1": "FIXT11.xml",
		},
		ApplVerIDs: map[string]string{
			"7": "FIX50.xml",
			"8": "FIX50SP1.xml",
			"9": "FIX50SP2.xml",
		},
	}
}

// LoadCatalog reads a catalog from a YAML (.yaml, .yml) or TOML (.toml) file.
// A relative Directory is resolved against the catalog file's directory, and
// an empty one defaults to it.
func LoadCatalog(path string) (*DictionaryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary catalog: %w", err)
	}

	catalog := &DictionaryCatalog{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, catalog)
	case ".toml":
		err = toml.Unmarshal(data, catalog)
	default:
		return nil, fmt.Errorf("unsupported dictionary catalog format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary catalog %s: %w", path, err)
	}

	base := filepath.Dir(path)
	switch {
	case catalog.Directory == "":
		catalog.Directory = base
	case !filepath.IsAbs(catalog.Directory):
		catalog.Directory = filepath.Join(base, catalog.Directory)
	}
	if catalog.SessionPrefix == "" {
		catalog.SessionPrefix = DefaultSessionPrefix
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Validate checks that the catalog can resolve at least one version.
func (c *DictionaryCatalog) Validate() error {
	if len(c.BeginStrings) == 0 {
		return fmt.Errorf("dictionary catalog has no begin_strings")
	}
	for version, file := range c.BeginStrings {
		if strings.TrimSpace(file) == "" {
			return fmt.Errorf("dictionary catalog: begin_strings[%s] is empty", version)
		}
	}
	for id, file := range c.ApplVerIDs {
		if strings.TrimSpace(file) == "" {
			return fmt.Errorf("dictionary catalog: appl_ver_ids[%s] is empty", id)
		}
	}
	return nil
}

// BaseDictionary returns the dictionary path for a BeginString.
func (c *DictionaryCatalog) BaseDictionary(beginString string) (string, bool) {
	file, ok := c.BeginStrings[beginString]
	if !ok {
		return "", false
	}
	return c.resolve(file), true
}

// AppDictionary returns the dictionary path for an ApplVerID.
func (c *DictionaryCatalog) AppDictionary(applVerID string) (string, bool) {
	file, ok := c.ApplVerIDs[applVerID]
	if !ok {
		return "", false
	}
	return c.resolve(file), true
}

// IsSessionVersion reports whether beginString separates session and
// application dictionaries.
func (c *DictionaryCatalog) IsSessionVersion(beginString string) bool {
	prefix := c.SessionPrefix
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	return strings.HasPrefix(beginString, prefix)
}

// Combinations lists every dictionary file list the catalog can produce:
// each non-session BeginString alone, and each session BeginString alone and
// paired with every ApplVerID.
func (c *DictionaryCatalog) Combinations() [][]string {
	versions := sortedKeys(c.BeginStrings)
	applIDs := sortedKeys(c.ApplVerIDs)

	var out [][]string
	for _, v := range versions {
		base, _ := c.BaseDictionary(v)
		out = append(out, []string{base})
		if !c.IsSessionVersion(v) {
			continue
		}
		for _, id := range applIDs {
			app, _ := c.AppDictionary(id)
			out = append(out, []string{base, app})
		}
	}
	return out
}

func (c *DictionaryCatalog) resolve(file string) string {
	if filepath.IsAbs(file) || c.Directory == "" {
		return file
	}
	return filepath.Join(c.Directory, file)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package languages holds the catalog of target languages offered to users.
package languages

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const defaultFlag = "🌐"

// Language is one selectable target language.
type Language struct {
	Code        string `yaml:"code" json:"code"`
	Name        string `yaml:"name" json:"name"`
	DisplayName string `yaml:"display_name" json:"displayName"`
	Flag        string `yaml:"flag" json:"flag"`

	// Aliases are stored codes that resolve to this entry, e.g. the base
	// code a regional variant is translated into.
	Aliases []string `yaml:"aliases" json:"-"`
}

// Catalog is an ordered list of languages with lookup by code.
type Catalog struct {
	Languages []Language `yaml:"languages"`
	byCode    map[string]Language
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML catalog and rejects empty or duplicate codes.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode language catalog: %w", err)
	}
	c.byCode = make(map[string]Language, len(c.Languages))
	for _, lang := range c.Languages {
		if lang.Code == "" {
			return nil, fmt.Errorf("language catalog entry %q has no code", lang.Name)
		}
		if _, dup := c.byCode[lang.Code]; dup {
			return nil, fmt.Errorf("language catalog has duplicate code %q", lang.Code)
		}
		c.byCode[lang.Code] = lang
	}
	for _, lang := range c.Languages {
		for _, alias := range lang.Aliases {
			if _, taken := c.byCode[alias]; !taken {
				c.byCode[alias] = lang
			}
		}
	}
	return &c, nil
}

// DisplayName falls back to the code itself for unlisted languages.
func (c *Catalog) DisplayName(code string) string {
	if lang, ok := c.byCode[code]; ok {
		return lang.DisplayName
	}
	return code
}

// Flag falls back to a globe for unlisted languages.
func (c *Catalog) Flag(code string) string {
	if lang, ok := c.byCode[code]; ok && lang.Flag != "" {
		return lang.Flag
	}
	return defaultFlag
}

// Contains reports whether code is listed.
func (c *Catalog) Contains(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

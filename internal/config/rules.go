package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules is the optional rules file: extra classifier keywords, ATS
// domains, and extraction templates layered on top of the built-ins.
type Rules struct {
	ATSDomains       []string       `yaml:"ats_domains"`
	PositiveKeywords []string       `yaml:"positive_keywords"`
	NegativeKeywords []string       `yaml:"negative_keywords"`
	Templates        []TemplateRule `yaml:"templates"`
}

// TemplateRule declares a deterministic extraction template for one
// sender domain. Company and Position are regex alternatives; the first
// capture group of the first matching pattern wins.
type TemplateRule struct {
	Domain   string   `yaml:"domain"`
	Name     string   `yaml:"name"`
	Company  []string `yaml:"company"`
	Position []string `yaml:"position"`
}

// LoadRules reads a rules yaml file. A missing path returns empty rules.
func LoadRules(path string) (Rules, error) {
	var r Rules
	if path == "" {
		return r, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return r, eris.Wrap(err, "config: read rules file")
	}
	if err := yaml.Unmarshal(b, &r); err != nil {
		return r, eris.Wrap(err, "config: parse rules file")
	}
	return r, nil
}

package dify

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed steps.yaml
var stepsYAML []byte

// StepLabel maps one upstream node title to the human-readable label and
// emoji pair shown while that step runs.
type StepLabel struct {
	Match string   `yaml:"match"`
	Label string   `yaml:"label"`
	Emoji []string `yaml:"emoji"`
}

type labelDomain struct {
	Steps []StepLabel `yaml:"steps"`
}

type labelConfig struct {
	DefaultEmoji []string               `yaml:"default_emoji"`
	Domains      map[string]labelDomain `yaml:"domains"`
}

// LabelTable resolves upstream step titles for one domain. Unmapped titles
// pass through verbatim with the default emoji pair.
type LabelTable struct {
	defaultEmoji [2]string
	byMatch      map[string]StepLabel
}

func (t *LabelTable) Resolve(rawStepName string) (string, [2]string) {
	name := strings.TrimSpace(rawStepName)
	if t != nil {
		if sl, ok := t.byMatch[name]; ok {
			emoji := t.defaultEmoji
			if len(sl.Emoji) >= 2 {
				emoji = [2]string{sl.Emoji[0], sl.Emoji[1]}
			}
			return sl.Label, emoji
		}
	}
	if name == "" {
		name = "Working"
	}
	if t == nil {
		return name, fallbackEmoji
	}
	return name, t.defaultEmoji
}

var fallbackEmoji = [2]string{"✨", "💫"}

var (
	labelsOnce   sync.Once
	labelTables  map[string]*LabelTable
	labelLoadErr error
)

// Labels returns the label table for a domain, or an empty pass-through table
// for unknown domains.
func Labels(domain string) *LabelTable {
	labelsOnce.Do(loadLabelTables)
	if labelLoadErr != nil {
		// Embedded config is validated by tests; degrade to pass-through.
		return emptyLabelTable()
	}
	if t, ok := labelTables[domain]; ok {
		return t
	}
	return emptyLabelTable()
}

func loadLabelTables() {
	var cfg labelConfig
	if err := yaml.Unmarshal(stepsYAML, &cfg); err != nil {
		labelLoadErr = fmt.Errorf("parse steps.yaml: %w", err)
		return
	}
	def := fallbackEmoji
	if len(cfg.DefaultEmoji) >= 2 {
		def = [2]string{cfg.DefaultEmoji[0], cfg.DefaultEmoji[1]}
	}
	labelTables = make(map[string]*LabelTable, len(cfg.Domains))
	for name, dom := range cfg.Domains {
		table := &LabelTable{
			defaultEmoji: def,
			byMatch:      make(map[string]StepLabel, len(dom.Steps)),
		}
		for _, sl := range dom.Steps {
			table.byMatch[strings.TrimSpace(sl.Match)] = sl
		}
		labelTables[name] = table
	}
}

func emptyLabelTable() *LabelTable {
	return &LabelTable{defaultEmoji: fallbackEmoji, byMatch: map[string]StepLabel{}}
}

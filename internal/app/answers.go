package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnswerFile is the on-disk form of a scripted respondent. YAML and JSON
// are both accepted.
//
//	agent:
//	  name: Ada
//	scenario:
//	  skip_intro: true
//	answers:
//	  likes_pizza: "no"
//	  age: 30
type AnswerFile struct {
	Agent    map[string]any `yaml:"agent"`
	Scenario map[string]any `yaml:"scenario"`
	Answers  map[string]any `yaml:"answers"`
}

// LoadAnswerFile reads and decodes an answers file. An empty path yields an
// empty file.
func LoadAnswerFile(path string) (*AnswerFile, error) {
	af := &AnswerFile{}
	if path == "" {
		return af, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers file: %w", err)
	}
	if err := yaml.Unmarshal(data, af); err != nil {
		return nil, fmt.Errorf("failed to decode answers file %s: %w", path, err)
	}
	return af, nil
}

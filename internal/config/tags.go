package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TagSeed is one catalog entry from the seed file. A non-empty Client makes the
// tag client-scoped.
type TagSeed struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Client      string   `yaml:"client"`
	Keywords    []string `yaml:"keywords"`
	MatchMethod string   `yaml:"match_method"`
	Color       string   `yaml:"color"`
}

// LoadTagSeeds reads the tag seed file.
func LoadTagSeeds(path string) ([]TagSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag seeds: %w", err)
	}
	var file struct {
		Tags []TagSeed `yaml:"tags"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse tag seeds %s: %w", path, err)
	}
	return file.Tags, nil
}

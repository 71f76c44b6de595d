package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/altafino/upload-storage/internal/types"
	yaml "gopkg.in/yaml.v3"
)

// Templates holds named destination templates
type Templates map[string]*types.DestinationConfig

// LoadTemplates loads all template files from the templates directory
func LoadTemplates(templatesDir string) (Templates, error) {
	templates := make(Templates)

	entries, err := os.ReadDir(templatesDir)
	if err != nil {
		return templates, fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		templatePath := filepath.Join(templatesDir, entry.Name())
		template, err := loadTemplate(templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load template %s: %w", entry.Name(), err)
		}

		templateName := strings.TrimSuffix(entry.Name(), ".yaml")
		templates[templateName] = template
	}

	return templates, nil
}

func loadTemplate(path string) (*types.DestinationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	template := &types.DestinationConfig{}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), template); err != nil {
		return nil, err
	}

	return template, nil
}

// Apply merges a template under a destination; values set on the destination win
func (t Templates) Apply(dest *types.DestinationConfig, templateName string) error {
	template, exists := t[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	// Create a copy of the template
	base := &types.DestinationConfig{}
	if err := mergo.Merge(base, template); err != nil {
		return fmt.Errorf("failed to copy template: %w", err)
	}

	// Merge destination over template
	if err := mergo.Merge(base, dest, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge destination with template: %w", err)
	}

	*dest = *base
	return nil
}

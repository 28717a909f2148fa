package service

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mockprep/coach-gateway/internal/model"
)

//go:embed resources.yaml
var defaultCatalog []byte

type catalog struct {
	Practice []model.ResourceGroup `yaml:"practice"`
	Concepts []model.Resource      `yaml:"concepts"`
}

// ResourceService serves the static study material catalog.
type ResourceService struct {
	catalog catalog
}

// NewResourceService parses the embedded catalog.
func NewResourceService() (*ResourceService, error) {
	return NewResourceServiceFromYAML(defaultCatalog)
}

// NewResourceServiceFromYAML parses a catalog document.
func NewResourceServiceFromYAML(doc []byte) (*ResourceService, error) {
	var c catalog
	if err := yaml.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("parse resource catalog: %w", err)
	}
	for _, g := range c.Practice {
		for _, r := range g.Resources {
			if r.Title == "" || r.Link == "" {
				return nil, fmt.Errorf("resource catalog: %q has an entry without title or link", g.Name)
			}
		}
	}
	for _, r := range c.Concepts {
		if r.Title == "" || r.Link == "" {
			return nil, fmt.Errorf("resource catalog: concept without title or link")
		}
	}
	return &ResourceService{catalog: c}, nil
}

// Practice returns the practice platforms grouped by section.
func (s *ResourceService) Practice() []model.ResourceGroup {
	return s.catalog.Practice
}

// Concepts returns the concepts whose title or description contains query,
// ignoring case. An empty query returns every concept.
func (s *ResourceService) Concepts(query string) []model.Resource {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Resource, 0, len(s.catalog.Concepts))
	for _, r := range s.catalog.Concepts {
		if q == "" ||
			strings.Contains(strings.ToLower(r.Title), q) ||
			strings.Contains(strings.ToLower(r.Description), q) {
			out = append(out, r)
		}
	}
	return out
}

package model

// Resource is an external study link shown on the practice and concept pages.
type Resource struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Link        string `json:"link" yaml:"link"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

// ResourceGroup is a titled section of resources.
type ResourceGroup struct {
	Name      string     `json:"name" yaml:"name"`
	Resources []Resource `json:"resources" yaml:"resources"`
}

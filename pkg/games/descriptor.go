package games

import "path/filepath"

// Descriptor is the static catalog metadata of one installed game.
// Descriptors are read from YAML manifests and immutable at runtime.
type Descriptor struct {
	// Type groups games and shows up in the {type}/{id} URL slug.
	Type string `yaml:"type" json:"type"`
	// Id is the unique identifier of the game within its type.
	Id          string            `yaml:"id" json:"id"`
	Title       string            `yaml:"title" json:"title,omitempty"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Tags        []string          `yaml:"tags" json:"tags,omitempty"`
	Author      string            `yaml:"author" json:"author,omitempty"`
	BuildDate   string            `yaml:"build_date" json:"build_date,omitempty"`
	RepoLink    string            `yaml:"repo_link" json:"repo_link,omitempty"`
	Buttons     map[string]string `yaml:"buttons" json:"buttons,omitempty"`

	// Engine selects the model factory for this game.
	Engine string `yaml:"engine" json:"-"`
	// Weights is the model weights path relative to the manifest.
	Weights string `yaml:"weights" json:"-"`
	// UISchema is an optional rendering hint blob for the params form,
	// passed to the client untouched.
	UISchema map[string]any `yaml:"ui_schema" json:"-"`
	// Thumbnails is the thumbnail directory relative to the manifest.
	Thumbnails string `yaml:"thumbnails" json:"-"`

	// the directory of the manifest file
	dir string
}

func (d Descriptor) WeightsPath() string {
	if d.Weights == "" {
		return ""
	}
	return filepath.Join(d.dir, d.Weights)
}

func (d Descriptor) ThumbDir() string {
	if d.Thumbnails == "" {
		return d.dir
	}
	return filepath.Join(d.dir, d.Thumbnails)
}

func (d Descriptor) Slug() string { return d.Type + "/" + d.Id }

// SetDir anchors the manifest-relative paths of the descriptor.
func (d *Descriptor) SetDir(dir string) { d.dir = dir }

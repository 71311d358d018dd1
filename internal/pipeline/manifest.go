package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest records one pipeline run.
type Manifest struct {
	RunID           string         `yaml:"run_id"`
	Started         string         `yaml:"started"`
	Finished        string         `yaml:"finished"`
	DurationSeconds float64        `yaml:"duration_seconds"`
	Inputs          ManifestInputs `yaml:"inputs"`
	Steps           []StepRecord   `yaml:"steps"`
	Atlas           string         `yaml:"atlas"`
	TwoROIs         bool           `yaml:"two_rois"`
	Nodes           string         `yaml:"nodes"`
	Extracted       []string       `yaml:"extracted,omitempty"`
	StreamlineCount *int           `yaml:"streamline_count,omitempty"`
	Warnings        []string       `yaml:"warnings,omitempty"`
	Path            string         `yaml:"-"`
}

type ManifestInputs struct {
	Tractography   string   `yaml:"tractography"`
	ROIs           []string `yaml:"rois"`
	Anat           string   `yaml:"anat,omitempty"`
	FreeSurferDir  string   `yaml:"freesurfer_dir,omitempty"`
	Hemisphere     string   `yaml:"hemisphere,omitempty"`
	OutpathBase    string   `yaml:"outpath_base"`
	SearchDistance float64  `yaml:"search_distance"`
}

// StepRecord lists the artifacts one step produced.
type StepRecord struct {
	Name    string   `yaml:"name"`
	Outputs []string `yaml:"outputs"`
}

func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("pipeline: encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: write manifest: %w", err)
	}
	return nil
}

func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("pipeline: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("pipeline: parse manifest: %w", err)
	}
	m.Path = path
	return m, nil
}

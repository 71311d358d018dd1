package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidJob = errors.New("pipeline: invalid job")

// Job describes one extraction. OutpathBase is used verbatim as the artifact
// prefix and must be unique across concurrent jobs.
type Job struct {
	Tractography   string
	ROIs           []string
	Anat           string
	FreeSurferDir  string
	Hemisphere     string
	OutpathBase    string
	SearchDistance float64
	// TwoROIs forces the node selection for a single supplied atlas. Nil
	// infers it from the atlas labels.
	TwoROIs       *bool
	Dilate        bool
	GMWMI         bool
	WriteManifest bool
}

func (j Job) Validate() error {
	if strings.TrimSpace(j.Tractography) == "" {
		return fmt.Errorf("%w: tractography is required", ErrInvalidJob)
	}
	if len(j.ROIs) == 0 || len(j.ROIs) > 2 {
		return fmt.Errorf("%w: expected 1 or 2 rois, got %d", ErrInvalidJob, len(j.ROIs))
	}
	for i, roi := range j.ROIs {
		if strings.TrimSpace(roi) == "" {
			return fmt.Errorf("%w: roi[%d] is empty", ErrInvalidJob, i)
		}
	}
	if strings.TrimSpace(j.OutpathBase) == "" {
		return fmt.Errorf("%w: outpath_base is required", ErrInvalidJob)
	}
	if j.SearchDistance < 0 || math.IsNaN(j.SearchDistance) || math.IsInf(j.SearchDistance, 0) {
		return fmt.Errorf("%w: search_distance must be a finite non-negative number", ErrInvalidJob)
	}
	if len(j.ROIs) == 2 && j.TwoROIs != nil && !*j.TwoROIs {
		return fmt.Errorf("%w: two rois supplied with two_rois=false", ErrInvalidJob)
	}
	if j.Dilate {
		if strings.TrimSpace(j.FreeSurferDir) == "" {
			return fmt.Errorf("%w: dilate requires freesurfer_dir", ErrInvalidJob)
		}
		if strings.TrimSpace(j.Hemisphere) == "" {
			return fmt.Errorf("%w: dilate requires hemisphere", ErrInvalidJob)
		}
	}
	if j.GMWMI && strings.TrimSpace(j.Anat) == "" && strings.TrimSpace(j.FreeSurferDir) == "" {
		return fmt.Errorf("%w: gmwmi requires anat or freesurfer_dir", ErrInvalidJob)
	}
	return nil
}

// anatSource prefers an explicit anatomical input over the FreeSurfer
// directory.
func (j Job) anatSource() string {
	if anat := strings.TrimSpace(j.Anat); anat != "" {
		return anat
	}
	return strings.TrimSpace(j.FreeSurferDir)
}

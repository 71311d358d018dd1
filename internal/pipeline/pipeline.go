package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/fsubctl/internal/extract"
	"github.com/danmuck/fsubctl/internal/roi"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunnerConfig wires a Runner. Zero fields take local defaults.
type RunnerConfig struct {
	Tools    *extract.Toolset
	Inspect  func(path string) (roi.Labels, error)
	Now      func() time.Time
	NewRunID func() string
}

// Runner executes jobs one at a time; it holds no per-job state.
type Runner struct {
	tools    *extract.Toolset
	inspect  func(path string) (roi.Labels, error)
	now      func() time.Time
	newRunID func() string
}

func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		tools:    cfg.Tools,
		inspect:  cfg.Inspect,
		now:      cfg.Now,
		newRunID: cfg.NewRunID,
	}
	if r.tools == nil {
		r.tools = extract.NewToolset(nil, nil)
	}
	if r.inspect == nil {
		r.inspect = roi.Inspect
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newRunID == nil {
		r.newRunID = uuid.NewString
	}
	return r
}

// Run validates the job and runs its steps in order, stopping at the first
// failure.
func (r *Runner) Run(job Job) (Manifest, error) {
	if err := job.Validate(); err != nil {
		return Manifest{}, err
	}

	started := r.now()
	m := Manifest{
		RunID:   r.newRunID(),
		Started: started.UTC().Format(time.RFC3339),
		Inputs:  inputsFor(job),
	}
	logger := log.With().Str("run_id", m.RunID).Logger()
	logger.Info().
		Str("outpath_base", job.OutpathBase).
		Int("rois", len(job.ROIs)).
		Bool("dilate", job.Dilate).
		Bool("gmwmi", job.GMWMI).
		Msg("pipeline start")

	rois := append([]string(nil), job.ROIs...)
	if job.Dilate {
		for i, in := range rois {
			name := fmt.Sprintf("dilate_roi%d", i+1)
			res, err := r.tools.DilateROI(in, job.FreeSurferDir, job.Hemisphere, fmt.Sprintf("%sroi%d_", job.OutpathBase, i+1))
			if err != nil {
				return Manifest{}, stepError(name, err)
			}
			outputs := []string{res.DilatedROI}
			if res.Volumetric {
				outputs = []string{res.SurfaceROI, res.DilatedROI}
			}
			m.Steps = append(m.Steps, StepRecord{Name: name, Outputs: outputs})
			rois[i] = res.DilatedROI
		}
	}

	atlas := rois[0]
	twoROIs := false
	if len(rois) == 2 {
		for _, path := range rois {
			if warning := r.checkBinary(path); warning != "" {
				m.Warnings = append(m.Warnings, warning)
			}
		}
		merged, err := r.tools.MergeROIs(rois[0], rois[1], job.OutpathBase)
		if err != nil {
			return Manifest{}, stepError("merge", err)
		}
		m.Steps = append(m.Steps, StepRecord{Name: "merge", Outputs: []string{extract.LabelledPath(rois[1]), merged}})
		atlas = merged
		twoROIs = true
	} else {
		var warning string
		twoROIs, warning = r.resolveTwoROIs(job, atlas)
		if warning != "" {
			m.Warnings = append(m.Warnings, warning)
		}
	}

	if job.GMWMI {
		res, err := r.tools.AnatToGMWMI(job.anatSource(), job.OutpathBase)
		if err != nil {
			return Manifest{}, stepError("gmwmi", err)
		}
		m.Steps = append(m.Steps, StepRecord{Name: "gmwmi", Outputs: []string{res.FiveTT, res.GMWMI}})

		intersect, err := r.tools.IntersectGMWMI(atlas, res.GMWMI, job.OutpathBase)
		if err != nil {
			return Manifest{}, stepError("intersect", err)
		}
		m.Steps = append(m.Steps, StepRecord{Name: "intersect", Outputs: []string{intersect}})
		atlas = intersect
	}

	res, err := r.tools.ExtractStreamlines(job.Tractography, atlas, job.OutpathBase, job.SearchDistance, twoROIs)
	if err != nil {
		return Manifest{}, stepError("extract", err)
	}
	m.Steps = append(m.Steps, StepRecord{Name: "extract", Outputs: []string{res.Connectome, res.Assignments, res.Extracted}})
	m.Atlas = atlas
	m.TwoROIs = twoROIs
	m.Nodes = res.Nodes

	if files, err := res.ExtractedFiles(); err != nil {
		logger.Warn().Err(err).Msg("pipeline could not list extracted files")
	} else {
		m.Extracted = files
	}
	if count, err := extract.CountAssignments(res.Assignments, extract.NodeIndices(twoROIs), true); err != nil {
		logger.Warn().Err(err).Str("assignments", res.Assignments).Msg("pipeline could not count assigned streamlines")
	} else {
		m.StreamlineCount = &count
	}

	finished := r.now()
	m.Finished = finished.UTC().Format(time.RFC3339)
	m.DurationSeconds = finished.Sub(started).Seconds()

	if job.WriteManifest {
		path := extract.ArtifactPath(job.OutpathBase, extract.SuffixManifest)
		if err := WriteManifest(path, m); err != nil {
			return Manifest{}, stepError("manifest", err)
		}
		m.Path = path
	}

	logger.Info().
		Str("atlas", atlas).
		Str("nodes", m.Nodes).
		Strs("extracted", m.Extracted).
		Float64("duration_seconds", m.DurationSeconds).
		Msg("pipeline complete")
	return m, nil
}

// resolveTwoROIs honours an explicit choice, otherwise counts the labels of
// a single supplied atlas. The returned warning is empty when the atlas fits
// the selected nodes.
func (r *Runner) resolveTwoROIs(job Job, atlas string) (bool, string) {
	if job.TwoROIs != nil {
		return *job.TwoROIs, ""
	}
	labels, err := r.inspect(atlas)
	if err != nil {
		log.Debug().Err(err).Str("atlas", atlas).Msg("pipeline label inspection skipped; assuming one roi")
		return false, ""
	}
	var warning string
	switch {
	case labels.Count() > 2:
		warning = fmt.Sprintf("atlas %s has labels %s; only nodes 1,2 are extracted", atlas, labels)
	case labels.Count() == 1 && labels[0] != 1:
		warning = fmt.Sprintf("atlas %s has the single label %s; nodes 0,1 expect label 1 and will extract nothing", atlas, labels)
	case labels.Count() == 0:
		warning = fmt.Sprintf("atlas %s has no nonzero voxels", atlas)
	}
	if warning != "" {
		log.Warn().Str("atlas", atlas).Str("labels", labels.String()).Str("warning", warning).Msg("pipeline atlas labels do not fit node selection")
	}
	return labels.Count() >= 2, warning
}

// checkBinary reports masks that break the merge assumption; it never fails
// the job.
func (r *Runner) checkBinary(path string) string {
	labels, err := r.inspect(path)
	switch {
	case errors.Is(err, roi.ErrUnsupportedFormat):
		log.Debug().Str("roi", path).Msg("pipeline label inspection skipped")
	case err != nil:
		log.Warn().Err(err).Str("roi", path).Msg("pipeline label inspection failed")
	case !labels.IsBinary():
		log.Warn().Str("roi", path).Str("labels", labels.String()).Msg("pipeline merge input is not a binary mask")
		return fmt.Sprintf("merge input %s is not a binary mask: labels %s", path, labels)
	}
	return ""
}

func stepError(step string, err error) error {
	return fmt.Errorf("pipeline step %s: %w", step, err)
}

func inputsFor(job Job) ManifestInputs {
	return ManifestInputs{
		Tractography:   job.Tractography,
		ROIs:           append([]string(nil), job.ROIs...),
		Anat:           job.Anat,
		FreeSurferDir:  job.FreeSurferDir,
		Hemisphere:     job.Hemisphere,
		OutpathBase:    job.OutpathBase,
		SearchDistance: job.SearchDistance,
	}
}

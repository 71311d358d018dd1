package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidHemisphere = errors.New("extract: hemisphere must be lh or rh")
	ErrInvalidSubjectDir = errors.New("extract: invalid FreeSurfer subject directory")
)

// Sampling windows handed to the FreeSurfer projection tools as
// start, stop, delta.
var (
	vol2SurfProjFrac = []any{"-.5", "1", ".1"}
	surf2VolFillFrac = []any{"-2", "0", "0.05"}
)

type DilateResult struct {
	Subject    string
	SurfaceROI string
	Volumetric bool
	DilatedROI string
}

// IsSurfaceROI reports whether roi is already surface-valued (.label/.mgz).
func IsSurfaceROI(roi string) bool {
	base := filepath.Base(roi)
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return false
	}
	switch base[idx+1:] {
	case "label", "mgz":
		return true
	default:
		return false
	}
}

// SubjectID is the last path component of a FreeSurfer subject directory.
func SubjectID(fsDir string) string {
	cleaned := filepath.Clean(strings.TrimSpace(fsDir))
	if cleaned == "." || cleaned == string(filepath.Separator) {
		return ""
	}
	return filepath.Base(cleaned)
}

// DilateROI projects roiIn onto the cortical surface and back into the
// subject's volume space. Volumetric ROIs go through mri_vol2surf first. The
// input file is left untouched; the dilated ROI is written to
// outpathBase + dilated_roi.nii.gz.
func (t *Toolset) DilateROI(roiIn, fsDir, hemi, outpathBase string) (DilateResult, error) {
	hemi = strings.ToLower(strings.TrimSpace(hemi))
	if hemi != "lh" && hemi != "rh" {
		return DilateResult{}, fmt.Errorf("%w: %q", ErrInvalidHemisphere, hemi)
	}
	subject := SubjectID(fsDir)
	if subject == "" {
		return DilateResult{}, fmt.Errorf("%w: %q", ErrInvalidSubjectDir, fsDir)
	}
	subjectsDir := filepath.Dir(filepath.Clean(fsDir))
	env := []string{"SUBJECTS_DIR=" + subjectsDir}

	res := DilateResult{
		Subject:    subject,
		SurfaceROI: roiIn,
		Volumetric: !IsSurfaceROI(roiIn),
		DilatedROI: ArtifactPath(outpathBase, SuffixDilatedROI),
	}

	if res.Volumetric {
		log.Info().Str("roi", roiIn).Msg("extract dilate using volumetric ROI pipeline")
		res.SurfaceROI = ArtifactPath(outpathBase, SuffixSurfaceROI)
		args := []any{"--src", roiIn, "--projfrac-max"}
		args = append(args, vol2SurfProjFrac...)
		args = append(args, "--out", res.SurfaceROI, "--regheader", subject, "--hemi", hemi)
		if err := t.runEnv(env, ProgramVol2Surf, args...); err != nil {
			return DilateResult{}, err
		}
	} else {
		log.Info().Str("roi", roiIn).Msg("extract dilate starting with surface ROI")
	}

	args := []any{"--surfval", res.SurfaceROI, "--o", res.DilatedROI, "--subject", subject, "--fill-projfrac"}
	args = append(args, surf2VolFillFrac...)
	args = append(args,
		"--hemi", hemi,
		"--template", filepath.Join(fsDir, "mri", "aseg.mgz"),
		"--identity", subject,
	)
	if err := t.runEnv(env, ProgramSurf2Vol, args...); err != nil {
		return DilateResult{}, err
	}
	return res, nil
}

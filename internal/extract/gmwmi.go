package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrUnrecognizedAnat = errors.New("extract: neither T1 image nor FreeSurfer directory")

type AnatKind int

const (
	AnatVolume AnatKind = iota + 1
	AnatFreeSurfer
)

// Algorithm is the 5ttgen algorithm for the input kind.
func (k AnatKind) Algorithm() string {
	switch k {
	case AnatFreeSurfer:
		return "hsvs"
	case AnatVolume:
		return "fsl"
	default:
		return ""
	}
}

func (k AnatKind) String() string {
	switch k {
	case AnatFreeSurfer:
		return "freesurfer"
	case AnatVolume:
		return "volume"
	default:
		return "unknown"
	}
}

var volumeExtensions = []string{".nii.gz", ".nii", ".mif"}

// ClassifyAnat inspects anat on the local filesystem without running
// anything. A directory holding a surf/ subdirectory is FreeSurfer output; a
// .nii, .nii.gz or .mif path is a volume.
func ClassifyAnat(anat string) (AnatKind, error) {
	return classifyAnat(anat, localDir)
}

func classifyAnat(anat string, isDir DirChecker) (AnatKind, error) {
	if strings.TrimSpace(anat) == "" {
		return 0, fmt.Errorf("%w: empty path", ErrUnrecognizedAnat)
	}
	freesurfer, err := isDir(filepath.Join(anat, "surf"))
	if err != nil {
		return 0, fmt.Errorf("extract: classify anat %q: %w", anat, err)
	}
	if freesurfer {
		return AnatFreeSurfer, nil
	}
	for _, ext := range volumeExtensions {
		if strings.HasSuffix(anat, ext) {
			return AnatVolume, nil
		}
	}
	return 0, fmt.Errorf("%w: %q; unable to create GMWMI", ErrUnrecognizedAnat, anat)
}

type GMWMIResult struct {
	Kind      AnatKind
	FiveTT    string
	GMWMI     string
	Algorithm string
}

// AnatToGMWMI runs 5ttgen (auto-crop disabled) and 5tt2gmwmi.
func (t *Toolset) AnatToGMWMI(anat, outpathBase string) (GMWMIResult, error) {
	kind, err := classifyAnat(anat, t.isDir)
	if err != nil {
		return GMWMIResult{}, err
	}
	res := GMWMIResult{
		Kind:      kind,
		FiveTT:    ArtifactPath(outpathBase, Suffix5TT),
		GMWMI:     ArtifactPath(outpathBase, SuffixGMWMI),
		Algorithm: kind.Algorithm(),
	}
	log.Info().Str("anat", anat).Str("kind", kind.String()).Str("algorithm", res.Algorithm).Msg("extract gmwmi input detected")

	if err := t.run(Program5TTGen, res.Algorithm, anat, res.FiveTT, "-nocrop"); err != nil {
		return GMWMIResult{}, err
	}
	if err := t.run(Program5TT2GMWMI, res.FiveTT, res.GMWMI); err != nil {
		return GMWMIResult{}, err
	}
	log.Info().Str("gmwmi", res.GMWMI).Msg("extract gmwmi complete")
	return res, nil
}

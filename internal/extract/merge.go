package extract

import "strings"

// MergeROIs combines two binary masks into one atlas: background 0, roi1 1,
// roi2 2. The relabelled roi2 is written next to roi2. Overlapping or
// non-binary masks are not checked here.
func (t *Toolset) MergeROIs(roi1, roi2, outpathBase string) (string, error) {
	labelled := LabelledPath(roi2)
	atlas := ArtifactPath(outpathBase, SuffixAtlas)

	if err := t.run(ProgramMRCalc, roi2, 2, "-mult", labelled); err != nil {
		return "", err
	}
	if err := t.run(ProgramMRCalc, roi1, labelled, "-add", atlas); err != nil {
		return "", err
	}
	return atlas, nil
}

// LabelledPath is roi with a trailing .nii.gz replaced by _labelled.nii.gz.
func LabelledPath(roi string) string {
	return strings.TrimSuffix(roi, ".nii.gz") + "_labelled.nii.gz"
}

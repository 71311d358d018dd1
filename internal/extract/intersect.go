package extract

// IntersectGMWMI restricts an ROI or atlas to the GMWMI by voxel-wise
// multiplication.
func (t *Toolset) IntersectGMWMI(rois, gmwmi, outpathBase string) (string, error) {
	out := ArtifactPath(outpathBase, SuffixIntersect)
	if err := t.run(ProgramMRCalc, rois, gmwmi, "-mult", out); err != nil {
		return "", err
	}
	return out, nil
}

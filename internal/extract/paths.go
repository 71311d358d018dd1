package extract

const (
	Suffix5TT         = "5tt.nii.gz"
	SuffixGMWMI       = "gmwmi.nii.gz"
	SuffixConnectome  = "connectome.txt"
	SuffixAssignments = "assignments.txt"
	SuffixExtracted   = "extracted"
	SuffixIntersect   = "gmwmi_roi_intersect.nii.gz"
	SuffixAtlas       = "connectome_atlas.nii.gz"
	SuffixSurfaceROI  = "roi_surf.mgz"
	SuffixDilatedROI  = "dilated_roi.nii.gz"
	SuffixManifest    = "manifest.yaml"
)

// ArtifactPath joins an output prefix and suffix verbatim.
func ArtifactPath(outpathBase, suffix string) string {
	return outpathBase + suffix
}

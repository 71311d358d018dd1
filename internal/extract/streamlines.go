package extract

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type ExtractResult struct {
	Connectome  string
	Assignments string
	Extracted   string
	Nodes       string
}

// NodeSet is the connectome2tck node list: both labelled regions, or the one
// region and background.
func NodeSet(twoROIs bool) string {
	if twoROIs {
		return "1,2"
	}
	return "0,1"
}

// NodeIndices is NodeSet as integers.
func NodeIndices(twoROIs bool) []int {
	if twoROIs {
		return []int{1, 2}
	}
	return []int{0, 1}
}

// ExtractStreamlines assigns streamlines to atlas nodes, then exports those
// connecting exactly the requested nodes into a single file.
func (t *Toolset) ExtractStreamlines(tck, atlas, outpathBase string, searchDist float64, twoROIs bool) (ExtractResult, error) {
	res := ExtractResult{
		Connectome:  ArtifactPath(outpathBase, SuffixConnectome),
		Assignments: ArtifactPath(outpathBase, SuffixAssignments),
		Extracted:   ArtifactPath(outpathBase, SuffixExtracted),
		Nodes:       NodeSet(twoROIs),
	}

	if err := t.run(ProgramTck2Connectome,
		tck,
		atlas,
		res.Connectome,
		"-assignment_forward_search",
		searchDist,
		"-out_assignments",
		res.Assignments,
		"-force",
	); err != nil {
		return ExtractResult{}, err
	}

	if err := t.run(ProgramConnectome2Tck,
		tck,
		res.Assignments,
		res.Extracted,
		"-nodes",
		res.Nodes,
		"-exclusive",
		"-files",
		"single",
	); err != nil {
		return ExtractResult{}, err
	}
	return res, nil
}

// ExtractedFiles lists files on disk named by the extracted prefix; the
// extension is chosen by connectome2tck.
func (r ExtractResult) ExtractedFiles() ([]string, error) {
	dir, prefix := filepath.Split(r.Extracted)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}

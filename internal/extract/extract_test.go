package extract

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/fsubctl/internal/testutil/testlog"
	"github.com/danmuck/fsubctl/internal/tools"
)

type nameLocator struct {
	missing map[string]bool
	lookups []string
}

func (l *nameLocator) Find(program string) (string, error) {
	l.lookups = append(l.lookups, program)
	if l.missing[program] {
		return "", &tools.ConfigError{Program: program, Err: tools.ErrProgramNotFound}
	}
	return program, nil
}

type fakeRunner struct {
	commands []string
	envs     [][]string
	env      []string
	failOn   string
}

func (r *fakeRunner) RunStreaming(name string, args []string, _, _ io.Writer) (int32, error) {
	r.commands = append(r.commands, strings.Join(append([]string{name}, args...), " "))
	r.envs = append(r.envs, r.env)
	if r.failOn != "" && name == r.failOn {
		return 1, errors.New("exit status 1")
	}
	return 0, nil
}

func (r *fakeRunner) WithEnv(env ...string) tools.StreamRunner {
	return &envView{parent: r, env: env}
}

type envView struct {
	parent *fakeRunner
	env    []string
}

func (v *envView) RunStreaming(name string, args []string, stdout, stderr io.Writer) (int32, error) {
	v.parent.env = v.env
	defer func() { v.parent.env = nil }()
	return v.parent.RunStreaming(name, args, stdout, stderr)
}

func newTestToolset(t *testing.T) (*Toolset, *nameLocator, *fakeRunner) {
	t.Helper()
	testlog.Start(t)
	loc := &nameLocator{missing: map[string]bool{}}
	runner := &fakeRunner{}
	return NewToolset(loc, runner), loc, runner
}

func assertCommands(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("unexpected command count %d\nwant: %q\ngot:  %q", len(got), want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d mismatch\nwant: %s\ngot:  %s", i, want[i], got[i])
		}
	}
}

func TestExtractStreamlinesSingleROI(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	res, err := ts.ExtractStreamlines("T.tck", "R.nii.gz", "out_", 2.0, false)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	assertCommands(t, runner.commands,
		"tck2connectome T.tck R.nii.gz out_connectome.txt -assignment_forward_search 2.0 -out_assignments out_assignments.txt -force",
		"connectome2tck T.tck out_assignments.txt out_extracted -nodes 0,1 -exclusive -files single",
	)
	if res.Connectome != "out_connectome.txt" || res.Assignments != "out_assignments.txt" || res.Extracted != "out_extracted" {
		t.Fatalf("unexpected result paths: %+v", res)
	}
}

func TestExtractStreamlinesTwoROIs(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	res, err := ts.ExtractStreamlines("T.tck", "atlas.nii.gz", "sub-01/", 1.5, true)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Nodes != "1,2" {
		t.Fatalf("unexpected nodes: %q", res.Nodes)
	}
	if !strings.Contains(runner.commands[1], "-nodes 1,2 -exclusive") {
		t.Fatalf("unexpected connectome2tck call: %s", runner.commands[1])
	}
	if !strings.Contains(runner.commands[0], "-assignment_forward_search 1.5 ") {
		t.Fatalf("unexpected tck2connectome call: %s", runner.commands[0])
	}
}

func TestExtractStreamlinesStopsOnFailure(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	runner.failOn = ProgramTck2Connectome
	_, err := ts.ExtractStreamlines("T.tck", "R.nii.gz", "out_", 2.0, false)
	var invErr *tools.InvocationError
	if !errors.As(err, &invErr) || invErr.Program != ProgramTck2Connectome {
		t.Fatalf("expected tck2connectome invocation error, got %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected later steps to be skipped, got %q", runner.commands)
	}
}

func TestNodeSet(t *testing.T) {
	if NodeSet(true) != "1,2" || NodeSet(false) != "0,1" {
		t.Fatalf("unexpected node sets: %q %q", NodeSet(true), NodeSet(false))
	}
	if got := NodeIndices(true); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected node indices: %v", got)
	}
}

func TestMergeROIs(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	atlas, err := ts.MergeROIs("R1.nii.gz", "R2.nii.gz", "out_")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if atlas != "out_connectome_atlas.nii.gz" {
		t.Fatalf("unexpected atlas path: %q", atlas)
	}
	assertCommands(t, runner.commands,
		"mrcalc R2.nii.gz 2 -mult R2_labelled.nii.gz",
		"mrcalc R1.nii.gz R2_labelled.nii.gz -add out_connectome_atlas.nii.gz",
	)
}

func TestMergeROIsRepeatable(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	for i := 0; i < 2; i++ {
		if _, err := ts.MergeROIs("R1.nii.gz", "R2.mif", "out_"); err != nil {
			t.Fatalf("merge %d: %v", i, err)
		}
	}
	if runner.commands[0] != runner.commands[2] || runner.commands[1] != runner.commands[3] {
		t.Fatalf("merge calls differ between runs: %q", runner.commands)
	}
	if runner.commands[0] != "mrcalc R2.mif 2 -mult R2.mif_labelled.nii.gz" {
		t.Fatalf("unexpected labelled path for non-gz input: %s", runner.commands[0])
	}
}

func TestMergeROIsMissingTool(t *testing.T) {
	ts, loc, runner := newTestToolset(t)
	loc.missing[ProgramMRCalc] = true
	_, err := ts.MergeROIs("R1.nii.gz", "R2.nii.gz", "out_")
	if !errors.Is(err, tools.ErrProgramNotFound) {
		t.Fatalf("expected ErrProgramNotFound, got %v", err)
	}
	if len(runner.commands) != 0 {
		t.Fatalf("expected no commands, got %q", runner.commands)
	}
}

func TestIntersectGMWMI(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	out, err := ts.IntersectGMWMI("atlas.nii.gz", "out_gmwmi.nii.gz", "out_")
	if err != nil {
		t.Fatalf("intersect: %v", err)
	}
	if out != "out_gmwmi_roi_intersect.nii.gz" {
		t.Fatalf("unexpected output: %q", out)
	}
	assertCommands(t, runner.commands, "mrcalc atlas.nii.gz out_gmwmi.nii.gz -mult out_gmwmi_roi_intersect.nii.gz")
}

func TestClassifyAnat(t *testing.T) {
	fsDir := filepath.Join(t.TempDir(), "sub-01")
	if err := os.MkdirAll(filepath.Join(fsDir, "surf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	volume := filepath.Join(t.TempDir(), "T1w.nii.gz")
	if err := os.WriteFile(volume, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cases := map[string]AnatKind{
		fsDir:             AnatFreeSurfer,
		volume:            AnatVolume,
		"T1w.nii.gz":      AnatVolume,
		"T1w.nii":         AnatVolume,
		"/data/T1w.mif":   AnatVolume,
		"sub-01/anat.nii": AnatVolume,
	}
	for in, want := range cases {
		got, err := ClassifyAnat(in)
		if err != nil {
			t.Fatalf("classify %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("classify %q = %v; want %v", in, got, want)
		}
	}
	if AnatFreeSurfer.Algorithm() != "hsvs" || AnatVolume.Algorithm() != "fsl" {
		t.Fatalf("unexpected algorithms")
	}

	for _, bad := range []string{"", "T1w.mgz", t.TempDir()} {
		if _, err := ClassifyAnat(bad); !errors.Is(err, ErrUnrecognizedAnat) {
			t.Fatalf("expected ErrUnrecognizedAnat for %q, got %v", bad, err)
		}
	}
}

func TestAnatToGMWMIVolume(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	res, err := ts.AnatToGMWMI("T1w.nii.gz", "out_")
	if err != nil {
		t.Fatalf("anat to gmwmi: %v", err)
	}
	if res.Kind != AnatVolume || res.FiveTT != "out_5tt.nii.gz" || res.GMWMI != "out_gmwmi.nii.gz" {
		t.Fatalf("unexpected result: %+v", res)
	}
	assertCommands(t, runner.commands,
		"5ttgen fsl T1w.nii.gz out_5tt.nii.gz -nocrop",
		"5tt2gmwmi out_5tt.nii.gz out_gmwmi.nii.gz",
	)
}

func TestAnatToGMWMIFreeSurfer(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	fsDir := filepath.Join(t.TempDir(), "sub-02")
	if err := os.MkdirAll(filepath.Join(fsDir, "surf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := ts.AnatToGMWMI(fsDir, "out_"); err != nil {
		t.Fatalf("anat to gmwmi: %v", err)
	}
	if runner.commands[0] != "5ttgen hsvs "+fsDir+" out_5tt.nii.gz -nocrop" {
		t.Fatalf("unexpected 5ttgen call: %s", runner.commands[0])
	}
}

type dirRunner struct {
	dirs  map[string]bool
	calls []string
	fail  bool
}

func (r *dirRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	if r.fail {
		return nil, []byte("connection refused"), 255, errors.New("dial tcp: connection refused")
	}
	if r.dirs[args[len(args)-1]] {
		return nil, nil, 0, nil
	}
	return nil, nil, 1, errors.New("exit status 1")
}

func TestAnatToGMWMIChecksDirOnToolHost(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	checker := &dirRunner{dirs: map[string]bool{"/cluster/fs/sub-03/surf": true}}
	remote := ts.WithDirChecker(RemoteDirChecker(checker))

	res, err := remote.AnatToGMWMI("/cluster/fs/sub-03", "out_")
	if err != nil {
		t.Fatalf("anat to gmwmi: %v", err)
	}
	if res.Kind != AnatFreeSurfer || runner.commands[0] != "5ttgen hsvs /cluster/fs/sub-03 out_5tt.nii.gz -nocrop" {
		t.Fatalf("expected remote freesurfer classification, got %+v %q", res, runner.commands)
	}
	if len(checker.calls) != 1 || checker.calls[0] != "test -d /cluster/fs/sub-03/surf" {
		t.Fatalf("unexpected check calls: %q", checker.calls)
	}

	if _, err := remote.AnatToGMWMI("/cluster/anat/T1w.nii.gz", "out_"); err != nil {
		t.Fatalf("volume anat: %v", err)
	}
	if _, err := ClassifyAnat("/cluster/fs/sub-03"); !errors.Is(err, ErrUnrecognizedAnat) {
		t.Fatalf("local classification should not see the remote dir: %v", err)
	}
}

func TestAnatToGMWMIDirCheckFailure(t *testing.T) {
	ts, loc, runner := newTestToolset(t)
	remote := ts.WithDirChecker(RemoteDirChecker(&dirRunner{fail: true}))

	_, err := remote.AnatToGMWMI("/cluster/fs/sub-03", "out_")
	if err == nil || errors.Is(err, ErrUnrecognizedAnat) || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected transport error from directory check, got %v", err)
	}
	if len(loc.lookups) != 0 || len(runner.commands) != 0 {
		t.Fatalf("expected no tool activity, lookups=%q commands=%q", loc.lookups, runner.commands)
	}
}

func TestAnatToGMWMIRejectsBeforeLookup(t *testing.T) {
	ts, loc, runner := newTestToolset(t)
	if _, err := ts.AnatToGMWMI("T1w.txt", "out_"); !errors.Is(err, ErrUnrecognizedAnat) {
		t.Fatalf("expected ErrUnrecognizedAnat, got %v", err)
	}
	if len(loc.lookups) != 0 || len(runner.commands) != 0 {
		t.Fatalf("expected no tool activity, lookups=%q commands=%q", loc.lookups, runner.commands)
	}
}

func TestDilateVolumetricROI(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	res, err := ts.DilateROI("roi.nii.gz", "/data/subjects/sub-01/", "lh", "out_")
	if err != nil {
		t.Fatalf("dilate: %v", err)
	}
	if res.Subject != "sub-01" || !res.Volumetric {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.DilatedROI != "out_dilated_roi.nii.gz" || res.SurfaceROI != "out_roi_surf.mgz" {
		t.Fatalf("unexpected paths: %+v", res)
	}
	assertCommands(t, runner.commands,
		"mri_vol2surf --src roi.nii.gz --projfrac-max -.5 1 .1 --out out_roi_surf.mgz --regheader sub-01 --hemi lh",
		"mri_surf2vol --surfval out_roi_surf.mgz --o out_dilated_roi.nii.gz --subject sub-01 --fill-projfrac -2 0 0.05 --hemi lh --template "+
			filepath.Join("/data/subjects/sub-01/", "mri", "aseg.mgz")+" --identity sub-01",
	)
	for i, env := range runner.envs {
		if len(env) != 1 || env[0] != "SUBJECTS_DIR=/data/subjects" {
			t.Fatalf("command %d unexpected env: %v", i, env)
		}
	}
}

func TestDilateSurfaceROI(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	res, err := ts.DilateROI("lh.roi.label", "/data/subjects/sub-01", "RH", "out_")
	if err != nil {
		t.Fatalf("dilate: %v", err)
	}
	if res.Volumetric || res.SurfaceROI != "lh.roi.label" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(runner.commands) != 1 || !strings.HasPrefix(runner.commands[0], "mri_surf2vol --surfval lh.roi.label --o out_dilated_roi.nii.gz") {
		t.Fatalf("unexpected commands: %q", runner.commands)
	}
	if !strings.Contains(runner.commands[0], "--hemi rh") {
		t.Fatalf("hemisphere not normalized: %s", runner.commands[0])
	}
}

func TestDilateValidation(t *testing.T) {
	ts, _, runner := newTestToolset(t)
	if _, err := ts.DilateROI("roi.nii.gz", "/data/sub-01", "both", "out_"); !errors.Is(err, ErrInvalidHemisphere) {
		t.Fatalf("expected ErrInvalidHemisphere, got %v", err)
	}
	if _, err := ts.DilateROI("roi.nii.gz", "", "lh", "out_"); !errors.Is(err, ErrInvalidSubjectDir) {
		t.Fatalf("expected ErrInvalidSubjectDir, got %v", err)
	}
	if len(runner.commands) != 0 {
		t.Fatalf("expected no commands, got %q", runner.commands)
	}
}

func TestIsSurfaceROI(t *testing.T) {
	cases := map[string]bool{
		"lh.roi.label":       true,
		"roi.mgz":            true,
		"roi.nii.gz":         false,
		"roi":                false,
		"/data/v1.label/roi": false,
	}
	for in, want := range cases {
		if got := IsSurfaceROI(in); got != want {
			t.Fatalf("IsSurfaceROI(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestCheckResolvesEveryProgram(t *testing.T) {
	ts, loc, _ := newTestToolset(t)
	if err := ts.Check(Programs...); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(loc.lookups) != len(Programs) {
		t.Fatalf("unexpected lookups: %q", loc.lookups)
	}
	loc.missing[ProgramSurf2Vol] = true
	if err := ts.Check(Programs...); !errors.Is(err, tools.ErrProgramNotFound) {
		t.Fatalf("expected ErrProgramNotFound, got %v", err)
	}
}

func TestExtractedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out_extracted.tck", "out_connectome.txt", "other_extracted.tck"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	res := ExtractResult{Extracted: filepath.Join(dir, "out_extracted")}
	files, err := res.ExtractedFiles()
	if err != nil {
		t.Fatalf("extracted files: %v", err)
	}
	if len(files) != 1 || files[0] != filepath.Join(dir, "out_extracted.tck") {
		t.Fatalf("unexpected files: %q", files)
	}
}

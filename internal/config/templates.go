package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = `# fsubctl job configuration
#
# Artifacts are written as outpath_base + suffix with no separator, so end
# outpath_base with "_" or "/" as needed. Concurrent jobs need distinct
# outpath_base values.
#
# With [remote] set, tools run on the remote host over SSH. Input
# classification happens there too, but the manifest, assignment counts and
# extracted-file listing are read locally: every path must resolve to the same
# files on both hosts (a shared filesystem).

`

func templateConfig() fileConfig {
	return fileConfig{
		Tractography:   "sub-01/dwi/sub-01_tractography.tck",
		ROIs:           []string{"sub-01/rois/roi1.nii.gz", "sub-01/rois/roi2.nii.gz"},
		FreeSurferDir:  "freesurfer/sub-01",
		Hemisphere:     "lh",
		OutpathBase:    "out/sub-01_",
		SearchDistance: DefaultSearchDistance,
		Dilate:         false,
		GMWMI:          true,
		Manifest:       true,
		Tools: &fileTools{
			Paths: map[string]string{},
		},
	}
}

// Template renders the example job file.
func Template() (string, error) {
	data, err := toml.Marshal(templateConfig())
	if err != nil {
		return "", fmt.Errorf("config template render failed: %w", err)
	}
	return templateHeader + string(data), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

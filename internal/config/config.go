package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultSearchDistance = 4.0

var ErrInvalidConfig = errors.New("config: invalid job config")

// Config is one extraction job plus the tool environment it runs in.
type Config struct {
	Tractography   string
	ROIs           []string
	Anat           string
	FreeSurferDir  string
	Hemisphere     string
	OutpathBase    string
	SearchDistance float64
	TwoROIs        *bool
	Dilate         bool
	GMWMI          bool
	Manifest       bool
	Tools          ToolsConfig
	Remote         RemoteConfig
}

type ToolsConfig struct {
	SearchPath string
	Paths      map[string]string
}

// RemoteConfig selects SSH execution when Host is set.
type RemoteConfig struct {
	Host                string
	Port                string
	User                string
	KeyPath             string
	PassphraseEnv       string
	KnownHostsPath      string
	InsecureSkipHostKey bool
	Timeout             time.Duration
}

type fileConfig struct {
	Tractography   string      `toml:"tractography"`
	ROIs           []string    `toml:"rois"`
	Anat           string      `toml:"anat,omitempty"`
	FreeSurferDir  string      `toml:"freesurfer_dir,omitempty"`
	Hemisphere     string      `toml:"hemisphere,omitempty"`
	OutpathBase    string      `toml:"outpath_base"`
	SearchDistance float64     `toml:"search_distance"`
	TwoROIs        *bool       `toml:"two_rois,omitempty"`
	Dilate         bool        `toml:"dilate"`
	GMWMI          bool        `toml:"gmwmi"`
	Manifest       bool        `toml:"manifest"`
	Tools          *fileTools  `toml:"tools,omitempty"`
	Remote         *fileRemote `toml:"remote,omitempty"`
}

type fileTools struct {
	SearchPath string            `toml:"search_path,omitempty"`
	Paths      map[string]string `toml:"paths,omitempty"`
}

type fileRemote struct {
	Host                string `toml:"host"`
	Port                string `toml:"port,omitempty"`
	User                string `toml:"user"`
	KeyPath             string `toml:"key_path"`
	PassphraseEnv       string `toml:"passphrase_env,omitempty"`
	KnownHosts          string `toml:"known_hosts,omitempty"`
	InsecureSkipHostKey bool   `toml:"insecure_skip_host_key,omitempty"`
	Timeout             string `toml:"timeout,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		SearchDistance: DefaultSearchDistance,
		Manifest:       true,
	}
}

// Load decodes a TOML job file over DefaultConfig and validates it.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
	}

	cfg.Tractography = strings.TrimSpace(raw.Tractography)
	cfg.ROIs = normalizeList(raw.ROIs)
	cfg.Anat = strings.TrimSpace(raw.Anat)
	cfg.FreeSurferDir = strings.TrimSpace(raw.FreeSurferDir)
	cfg.Hemisphere = strings.ToLower(strings.TrimSpace(raw.Hemisphere))
	cfg.OutpathBase = raw.OutpathBase
	cfg.Dilate = raw.Dilate
	cfg.GMWMI = raw.GMWMI

	if meta.IsDefined("search_distance") {
		cfg.SearchDistance = raw.SearchDistance
	}
	if meta.IsDefined("two_rois") {
		cfg.TwoROIs = raw.TwoROIs
	}
	if meta.IsDefined("manifest") {
		cfg.Manifest = raw.Manifest
	}

	if raw.Tools != nil {
		cfg.Tools.SearchPath = strings.TrimSpace(raw.Tools.SearchPath)
		cfg.Tools.Paths = normalizePaths(raw.Tools.Paths)
	}

	if raw.Remote != nil {
		remote, err := parseRemote(*raw.Remote)
		if err != nil {
			return Config{}, err
		}
		cfg.Remote = remote
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseRemote(raw fileRemote) (RemoteConfig, error) {
	remote := RemoteConfig{
		Host:                strings.TrimSpace(raw.Host),
		Port:                strings.TrimSpace(raw.Port),
		User:                strings.TrimSpace(raw.User),
		KeyPath:             strings.TrimSpace(raw.KeyPath),
		PassphraseEnv:       strings.TrimSpace(raw.PassphraseEnv),
		KnownHostsPath:      strings.TrimSpace(raw.KnownHosts),
		InsecureSkipHostKey: raw.InsecureSkipHostKey,
	}
	if timeout := strings.TrimSpace(raw.Timeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return RemoteConfig{}, fmt.Errorf("parse remote.timeout: %w", err)
		}
		remote.Timeout = d
	}
	return remote, nil
}

func Validate(cfg Config) error {
	if cfg.Tractography == "" {
		return fmt.Errorf("%w: tractography is required", ErrInvalidConfig)
	}
	if len(cfg.ROIs) == 0 || len(cfg.ROIs) > 2 {
		return fmt.Errorf("%w: rois must list 1 or 2 files, got %d", ErrInvalidConfig, len(cfg.ROIs))
	}
	if strings.TrimSpace(cfg.OutpathBase) == "" {
		return fmt.Errorf("%w: outpath_base is required", ErrInvalidConfig)
	}
	if cfg.SearchDistance < 0 {
		return fmt.Errorf("%w: search_distance must not be negative", ErrInvalidConfig)
	}
	switch cfg.Hemisphere {
	case "", "lh", "rh":
	default:
		return fmt.Errorf("%w: hemisphere must be lh or rh, got %q", ErrInvalidConfig, cfg.Hemisphere)
	}
	if cfg.Remote.Host != "" {
		if cfg.Remote.User == "" {
			return fmt.Errorf("%w: remote.user is required when remote.host is set", ErrInvalidConfig)
		}
		if cfg.Remote.KeyPath == "" {
			return fmt.Errorf("%w: remote.key_path is required when remote.host is set", ErrInvalidConfig)
		}
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func normalizePaths(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for name, path := range in {
		name = strings.TrimSpace(name)
		path = strings.TrimSpace(path)
		if name == "" || path == "" {
			continue
		}
		out[name] = path
	}
	return out
}

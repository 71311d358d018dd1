package config

import (
	"os"

	"github.com/danmuck/fsubctl/internal/extract"
	"github.com/danmuck/fsubctl/internal/pipeline"
	"github.com/danmuck/fsubctl/internal/tools"
)

func (c Config) Job() pipeline.Job {
	job := pipeline.Job{
		Tractography:   c.Tractography,
		ROIs:           append([]string(nil), c.ROIs...),
		Anat:           c.Anat,
		FreeSurferDir:  c.FreeSurferDir,
		Hemisphere:     c.Hemisphere,
		OutpathBase:    c.OutpathBase,
		SearchDistance: c.SearchDistance,
		Dilate:         c.Dilate,
		GMWMI:          c.GMWMI,
		WriteManifest:  c.Manifest,
	}
	if c.TwoROIs != nil {
		v := *c.TwoROIs
		job.TwoROIs = &v
	}
	return job
}

// Toolset resolves programs on the local search path, or on the remote host
// when one is configured. Pinned [tools.paths] entries win over both. Remote
// mode classifies inputs on the remote host; every other file the pipeline
// reads or writes must be visible at the same path on both hosts.
func (c Config) Toolset() *extract.Toolset {
	var locator tools.Locator
	var runner tools.StreamRunner
	var dirCheck extract.DirChecker

	remote := c.Remote.Host != ""
	if remote {
		ssh := c.SSHRunner()
		locator = tools.RemoteLocator{Runner: ssh}
		runner = ssh
		dirCheck = extract.RemoteDirChecker(ssh)
	} else {
		searchPath := c.Tools.SearchPath
		if searchPath == "" {
			searchPath = os.Getenv("PATH")
		}
		locator = tools.PathLocator{SearchPath: searchPath}
		runner = tools.ExecRunner{}
	}

	if len(c.Tools.Paths) > 0 {
		locator = tools.StaticLocator{Paths: c.Tools.Paths, Fallback: locator, Unchecked: remote}
	}
	return extract.NewToolset(locator, runner).WithDirChecker(dirCheck)
}

func (c Config) SSHRunner() tools.SSHRunner {
	r := tools.SSHRunner{
		Host:                        c.Remote.Host,
		Port:                        c.Remote.Port,
		User:                        c.Remote.User,
		KeyPath:                     c.Remote.KeyPath,
		KnownHostsPath:              c.Remote.KnownHostsPath,
		InsecureSkipHostKeyChecking: c.Remote.InsecureSkipHostKey,
		Timeout:                     c.Remote.Timeout,
	}
	if c.Remote.PassphraseEnv != "" {
		if pass := os.Getenv(c.Remote.PassphraseEnv); pass != "" {
			r.Passphrase = []byte(pass)
		}
	}
	return r
}

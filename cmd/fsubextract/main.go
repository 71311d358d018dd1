package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/fsubctl/internal/config"
	"github.com/danmuck/fsubctl/internal/extract"
	"github.com/danmuck/fsubctl/internal/logging"
	"github.com/danmuck/fsubctl/internal/pipeline"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "fsub.toml", "job config path")
	check := flag.Bool("check", false, "resolve every external tool and exit")
	flag.Parse()

	logging.ConfigureRuntime()
	if err := run(*configPath, *check); err != nil {
		fmt.Fprintf(os.Stderr, "fsubextract: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, check bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	toolset := cfg.Toolset()

	if check {
		if err := toolset.Check(extract.Programs...); err != nil {
			return err
		}
		log.Info().Strs("programs", extract.Programs).Msg("all tools resolved")
		return nil
	}

	m, err := pipeline.NewRunner(pipeline.RunnerConfig{Tools: toolset}).Run(cfg.Job())
	if err != nil {
		return err
	}
	for _, path := range m.Extracted {
		fmt.Println(path)
	}
	return nil
}

package main

import (
	"flag"
	"log"

	"github.com/danmuck/fsubctl/internal/config"
)

func main() {
	output := flag.String("output", "fsub.toml", "output path for job config template")
	validate := flag.Bool("validate", false, "validate an existing job config")
	input := flag.String("input", "", "config path for validation (defaults to -output)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = *output
		}
		if _, err := config.Load(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated job config at %s", path)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote job config template to %s", *output)
}

package main

import (
	"flag"
	"os"

	"github.com/louisbranch/classroom.space/internal/platform/config"
	"github.com/louisbranch/classroom.space/internal/tools/devtoken"
)

func main() {
	cfg, err := devtoken.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := devtoken.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("mint token: %v", err)
	}
}

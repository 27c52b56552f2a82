package main

import (
	"os"
)

func main() {
	args := parseArgs(os.Args[1:])
	if args.mode == versionMode {
		printVersion(os.Stdout)
		return
	}

	cfg, err := LoadConfigOrDefault(args.ConfigPath)
	checkf(err, "failed to load configuration")

	switch args.mode {
	case sendMode:
		checkf(sendMain(args.Send, cfg), "transmission failed")
	case simMode:
		checkf(simMain(args.Sim, cfg, os.Stdout), "simulation failed")
	case clockMode:
		checkf(clockMain(args.Clock, cfg, os.Stdout), "clock")
	case configMode:
		checkf(configMain(args.Config, args.ConfigPath, cfg, os.Stdout), "config")
	case checkMode:
		checkf(checkMain(args.Check, cfg, os.Stdout), "trace check failed")
	}
}

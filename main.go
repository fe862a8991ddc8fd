package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/tuxx/dotlock/internal"
)

var version = "1.0"

func main() {
	// Parse command-line flags
	configPath := flag.StringP("config", "c", "", "Path to configuration file")
	idle := flag.BoolP("idle", "i", false, "Lock whenever the session goes idle instead of locking now")
	debugMode := flag.Bool("log", false, "Enable debug logging")
	showVersion := flag.BoolP("version", "v", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: dotlock [-c config] [-i] [--log] [-v] [cmd [arg ...]]\n")
		flag.PrintDefaults()
	}

	// Everything after the first non-flag argument is the while-locked command
	flag.CommandLine.SetInterspersed(false)
	flag.Parse()

	if *showVersion {
		fmt.Fprintf(os.Stderr, "dotlock-%s\n", version)
		os.Exit(0)
	}

	// Initialize the logger
	if *debugMode {
		internal.InitLogger(internal.LevelDebug, true)
		internal.Debug("Debug logging enabled")
	} else {
		internal.InitLogger(internal.LevelError, false)
	}

	// Load default configuration
	config := internal.DefaultConfig()

	// Try to find and load config file
	if *configPath == "" {
		*configPath = internal.DefaultConfigPath()
	}
	if *configPath != "" {
		internal.Info("Using config file: %s", *configPath)
		if err := internal.LoadConfig(*configPath, &config); err != nil {
			internal.Fatal("loading config: %v", err)
		}
	}

	displayServer := internal.DetectDisplayServer()
	internal.Info("Detected display server: %s", displayServer)
	if displayServer == "wayland" {
		internal.Fatal("Wayland support not yet implemented")
	}

	opts := internal.Options{
		Idle:          *idle,
		LockedCommand: flag.Args(),
	}
	if err := internal.Run(config, opts); err != nil {
		internal.Fatal("%v", err)
	}
}

package main

import (
	"flag"
	"fmt"
	"os"

	"mtad/internal/di"
	"mtad/internal/structures"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	debug := flag.Bool("debug", false, "force debug log level")
	flag.Parse()

	_, err := di.InitApp(&structures.CliFlags{
		ConfigPath: *configPath,
		DebugMode:  *debug,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mtad: %s\n", err)
		os.Exit(1)
	}
}

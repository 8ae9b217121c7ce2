// Command tagcache demonstrates and load-tests the tagged cache.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krisalay/tagged-cache/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "tagcache",
		Short:        "Tagged in-memory cache: demo and load benchmark",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	load := func() (config.Config, error) {
		if configPath == "" {
			return config.Default(), nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return cfg, fmt.Errorf("loading %s: %w", configPath, err)
		}
		return cfg, nil
	}

	root.AddCommand(newDemoCommand(load), newBenchCommand(load))
	return root
}

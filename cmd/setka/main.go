// Command setka runs the social-wall carousel engine of spec.md: scanning
// regional VK communities on a self-tuning schedule, filtering and
// fingerprinting posts, and assembling category-balanced digests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valstan/setka/internal/core"
)

var configPath string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "setka",
	Short: "Carousel engine for regional social-wall monitoring",
	Long: `setka scans community walls, filters and fingerprints posts, scores
engagement, and assembles digests for a roster of regions and credentials
described by its config file.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default ~/.setka/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolvedConfigPath returns --config if set, else the default path.
func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return defaultConfigPath()
}

// newLogger returns the verbose or standard Logger per the --verbose flag.
func newLogger() core.Logger {
	if verbose {
		return core.NewVerboseLogger()
	}
	return core.NewLogger()
}

// loadRuntime resolves the config path, loads it, and builds a runtime,
// the common first step of every subcommand below.
func loadRuntime() (*runtime, error) {
	path, err := resolvedConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return newRuntime(cfg, newLogger())
}

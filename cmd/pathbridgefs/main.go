// Command pathbridgefs mounts the content-transforming passthrough
// filesystem (spec section 4.3). It recognizes source=, pathmap=, and
// dirmap= among its positional mount options. Of the remaining options
// only "debug" has an effect; the others are not passed to the FUSE
// mount.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pathbridge/pathbridge/internal/config"
	"github.com/pathbridge/pathbridge/internal/fuse"
	"github.com/pathbridge/pathbridge/internal/logging"
	"github.com/pathbridge/pathbridge/internal/metrics"
	"github.com/pathbridge/pathbridge/internal/pathmap"
	"github.com/pathbridge/pathbridge/internal/transform"
)

var rootCommand = &cobra.Command{
	Use:          "pathbridgefs <mountpoint> [options...]",
	Short:        "Mount the pathbridge content-transforming passthrough filesystem",
	Args:         cobra.MinimumNArgs(1),
	RunE:         rootMain,
	SilenceUsage: true,
}

var rootFlags struct {
	debug      bool
	allowOther bool
}

func init() {
	cobra.EnableCommandSorting = false
	rootCommand.Flags().SetInterspersed(false)

	rootCommand.Flags().BoolVar(&rootFlags.debug, "debug", false, "log every FUSE request")
	rootCommand.Flags().BoolVar(&rootFlags.allowOther, "allow-other", false, "advertise allow_other (requires root)")
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pathbridgefs:", err)
		os.Exit(1)
	}
}

// rootMain parses mount options out of args[1:], builds the
// configuration, and mounts the filesystem in the foreground.
func rootMain(cmd *cobra.Command, args []string) error {
	mountPoint := args[0]
	opts, passthrough := parseMountOptions(args[1:])

	cfg := config.Default()
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	if v, ok := opts["source"]; ok {
		cfg.SourceDir = v
		if trimmed := strings.TrimRight(v, "/"); trimmed != "" {
			cfg.SourceDir = trimmed
		}
	}
	if v, ok := opts["pathmap"]; ok {
		mappings, err := config.ParsePathMap(v)
		if err != nil {
			return err
		}
		cfg.PathMappings = mappings
	}
	if v, ok := opts["dirmap"]; ok {
		mappings, err := config.ParseDirMap(v)
		if err != nil {
			return err
		}
		cfg.DirMappings = mappings
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Trace, cfg.LogPath)
	if err != nil {
		return err
	}
	log.WithField("mappings", cfg.SortedPathMappingSummary()).Info("starting pathbridgefs")

	collector, err := metrics.NewCollector(metrics.Config{
		Enabled: cfg.MetricsPort != 0,
		Port:    cfg.MetricsPort,
	})
	if err != nil {
		return err
	}
	if cfg.MetricsPort != 0 {
		ctx := context.Background()
		if err := collector.Start(ctx); err != nil {
			return err
		}
		defer collector.Stop(ctx)
	}

	dirs, err := pathmap.NewDirTranslator(cfg.DirMappings)
	if err != nil {
		return err
	}
	xform := transform.NewEngine(cfg.PathMappings, cfg.DirMappings)

	core := fuse.NewCore(cfg.SourceDir, dirs, xform, cfg.Extensions, collector, log)

	manager := fuse.NewMountManager(core, fuse.MountConfig{
		MountPoint: mountPoint,
		FSName:     "pathbridgefs",
		Debug:      rootFlags.debug || len(passthrough) > 0 && hasOption(passthrough, "debug"),
		AllowOther: rootFlags.allowOther,
	})
	if err := manager.Mount(); err != nil {
		return err
	}
	log.WithField("mountpoint", mountPoint).Info("mounted")

	manager.Wait()
	return nil
}

// parseMountOptions splits "-o a=b,c=d"-style and bare "a=b" positional
// arguments into the recognized option map plus a list of whatever it
// doesn't understand. rootMain checks that list only for "debug".
func parseMountOptions(args []string) (recognized map[string]string, passthrough []string) {
	recognized = make(map[string]string)
	recognize := func(token string) bool {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			return false
		}
		switch key {
		case "source", "pathmap", "dirmap":
			recognized[key] = value
			return true
		default:
			return false
		}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-o" && i+1 < len(args) {
			i++
			for _, token := range strings.Split(args[i], ",") {
				if !recognize(token) {
					passthrough = append(passthrough, token)
				}
			}
			continue
		}
		if recognize(arg) {
			continue
		}
		passthrough = append(passthrough, arg)
	}
	return recognized, passthrough
}

func hasOption(tokens []string, name string) bool {
	for _, t := range tokens {
		if t == name {
			return true
		}
	}
	return false
}

// Command mesocosm runs a headless simulation from one or more YAML config
// files and writes its outputs under the configured directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mesocosm/mesocosm/internal/config"
	"github.com/mesocosm/mesocosm/internal/grid"
	"github.com/mesocosm/mesocosm/internal/logging"
	"github.com/mesocosm/mesocosm/internal/model"
	"github.com/mesocosm/mesocosm/internal/models"
	"github.com/mesocosm/mesocosm/internal/schema"
	"github.com/mesocosm/mesocosm/internal/sim"
)

// pathList collects a repeatable -config flag.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(value string) error {
	*p = append(*p, value)
	return nil
}

func main() {
	var configs pathList
	flag.Var(&configs, "config", "YAML config file (repeatable, merged in order)")
	outDir := flag.String("out", "", "override the output directory")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	geojson := flag.String("geojson", "", "write the grid as GeoJSON to this path and exit")
	flag.Parse()

	if len(configs) == 0 {
		die(errors.New("at least one -config file is required"))
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		die(err)
	}
	logger := logging.New(os.Stderr, level)

	registry := model.NewRegistry()
	models.RegisterBuiltins(registry)

	fragments := append(config.Fragments(), registry.Fragments()...)
	sch, err := schema.Merge(fragments...)
	if err != nil {
		die(err)
	}

	cfg, err := config.Load(sch, configs...)
	if err != nil {
		die(err)
	}
	if *outDir != "" {
		out := cfg.Output()
		out.Dir = *outDir
		cfg.SetOutput(out)
	}

	if *geojson != "" {
		if err := writeGrid(cfg, *geojson); err != nil {
			die(err)
		}
		return
	}

	controller, err := sim.New(cfg, registry, sim.WithLogger(logger))
	if err != nil {
		die(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := controller.Run(ctx); err != nil {
		die(err)
	}
}

func writeGrid(cfg *config.ValidatedConfig, path string) error {
	g, err := grid.New(cfg.Grid())
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.WriteGeoJSON(f)
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "mesocosm: %v\n", err)
	os.Exit(1)
}

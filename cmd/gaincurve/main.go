// Command gaincurve plots requested against realised analogue gain for
// registered sensor models.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/banshee-data/camctl/internal/config"
	"github.com/banshee-data/camctl/internal/plots"
	"github.com/banshee-data/camctl/internal/security"
	"github.com/banshee-data/camctl/internal/sensor"
	_ "github.com/banshee-data/camctl/internal/sensor/models"
	"github.com/banshee-data/camctl/internal/version"
)

var (
	sensors     = flag.String("sensors", "", "Comma-separated sensor identifiers; all registered when empty")
	tuningPath  = flag.String("tuning", "", "Tuning file whose tabulated sensors are registered first")
	out         = flag.String("out", "gain_curves.png", "Output image (.png, .svg, .pdf)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// selectModels resolves ids in reg; an empty list selects every model.
func selectModels(reg *sensor.Registry, list string) ([]plots.NamedModel, error) {
	ids := reg.Names()
	if strings.TrimSpace(list) != "" {
		ids = nil
		for _, id := range strings.Split(list, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	var named []plots.NamedModel
	for _, id := range ids {
		m, err := reg.Create(id)
		if err != nil {
			return nil, err
		}
		named = append(named, plots.NamedModel{ID: id, Model: m})
	}
	return named, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("gaincurve"))
		return
	}

	if *tuningPath != "" {
		cfg, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning: %v", err)
		}
		if err := cfg.RegisterSensors(sensor.Default()); err != nil {
			log.Fatalf("failed to register tuned sensors: %v", err)
		}
	}

	named, err := selectModels(sensor.Default(), *sensors)
	if err != nil {
		log.Fatal(err)
	}
	if err := security.ValidateExportPath(*out); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}
	if err := plots.GainCurves(named, *out); err != nil {
		log.Fatal(err)
	}
	log.Printf("plotted %d sensor models to %s", len(named), *out)
}

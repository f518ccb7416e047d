// Command ipasim runs the camera control loop against a simulated sensor
// and ISP, optionally recording the trace to SQLite and an HTML timeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/camctl/internal/config"
	"github.com/banshee-data/camctl/internal/ipa"
	"github.com/banshee-data/camctl/internal/ipa/algorithms"
	"github.com/banshee-data/camctl/internal/monitoring"
	"github.com/banshee-data/camctl/internal/plots"
	"github.com/banshee-data/camctl/internal/security"
	"github.com/banshee-data/camctl/internal/sensor"
	_ "github.com/banshee-data/camctl/internal/sensor/models"
	"github.com/banshee-data/camctl/internal/sim"
	"github.com/banshee-data/camctl/internal/timeutil"
	"github.com/banshee-data/camctl/internal/tracedb"
	"github.com/banshee-data/camctl/internal/units"
	"github.com/banshee-data/camctl/internal/version"
)

var (
	tuningPath  = flag.String("tuning", "", "Tuning file (.json, .yaml); defaults are used when empty")
	sensorID    = flag.String("sensor", "", "Sensor identifier, overrides the tuning file")
	ispRevision = flag.String("isp", "", "ISP revision v10..v13, overrides the tuning file")
	width       = flag.Uint("width", 1920, "Output width in pixels")
	height      = flag.Uint("height", 1080, "Output height in lines")
	binning     = flag.Uint("binning", 1, "Horizontal and vertical binning factor")
	scale       = flag.Float64("scale", 1, "Horizontal and vertical scaling factor")
	lineLength  = flag.Duration("line", 15*time.Microsecond, "Line duration including horizontal blanking")
	frames      = flag.Uint("frames", 300, "Number of frames to stream")
	fps         = flag.Float64("fps", 30, "Frame rate for pacing; 0 runs as fast as possible")
	scene       = flag.String("scene", "0.05", "Scene luminance at 10ms, e.g. 0.05 or 0.05:0.4@150 for a step")
	extraDelay  = flag.Uint("extra-delay", 0, "Frames the simulated sensor latches later than declared")
	whiteBal    = flag.Bool("wb", true, "ISP has white balance gains")
	lensShading = flag.Bool("lsc", false, "ISP has lens shading correction")
	traceDB     = flag.String("trace-db", "", "SQLite file to record the trace to")
	timeline    = flag.String("timeline", "", "HTML file to render the trace timeline to")
	logFile     = flag.String("log-file", "", "Write diagnostics to this file instead of stderr")
	expUnits    = flag.String("exposure-units", units.Milliseconds, "Units for the reported exposure: "+units.GetValidUnitsString())
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// buildMode describes a sensor mode from the command line geometry.
func buildMode(w, h, bin uint32, scale float64, line time.Duration) sensor.Mode {
	return sensor.Mode{
		Width: w, Height: h, BitDepth: 10,
		BinX: bin, BinY: bin, ScaleX: scale, ScaleY: scale,
		LineLength:      line,
		HBlank:          uint32(float64(w) * 0.15),
		MinFrameLength:  h + 20,
		MaxFrameLength:  0xffff,
		MinShutter:      2 * line,
		MaxShutter:      time.Second,
		MinAnalogueGain: 1,
		MaxAnalogueGain: 16,
	}
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// summary describes a finished run, with the final applied exposure in
// the requested units.
func summary(res sim.Result, line time.Duration, exposureUnits string) string {
	var exposure float64
	if n := len(res.Trace); n > 0 {
		exposure = units.ConvertExposure(res.Trace[n-1].AppliedExposure, line, exposureUnits)
	}
	return fmt.Sprintf("session %s: %d frames, final luma %.3f, exposure %.2f %s, awb gains r=%.2f b=%.2f, %d delay mismatches",
		res.SessionID, len(res.Trace), res.FinalLuma(), exposure, exposureUnits,
		res.AwbGains.Red, res.AwbGains.Blue, res.Mismatches)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("ipasim"))
		return
	}
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if !units.IsValid(*expUnits) {
		return fmt.Errorf("invalid exposure units %q, want one of: %s", *expUnits, units.GetValidUnitsString())
	}

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		monitoring.SetLogger(monitoring.WriterLogger(f, "[ipasim] "))
	}

	tuning, err := loadTuning(*tuningPath)
	if err != nil {
		return fmt.Errorf("failed to load tuning: %w", err)
	}
	if err := tuning.RegisterSensors(sensor.Default()); err != nil {
		return fmt.Errorf("failed to register tuned sensors: %w", err)
	}

	id := tuning.GetSensor()
	if *sensorID != "" {
		id = *sensorID
	}
	revName := tuning.GetISPRevision()
	if *ispRevision != "" {
		revName = *ispRevision
	}
	rev, err := ipa.ParseHwRevision(revName)
	if err != nil {
		return err
	}

	sceneFn, err := sim.ParseScene(*scene)
	if err != nil {
		return err
	}

	var interval time.Duration
	if *fps > 0 {
		if interval, err = timeutil.FrameInterval(*fps); err != nil {
			return err
		}
	}

	algs, err := algorithms.FromTuning(tuning)
	if err != nil {
		return fmt.Errorf("failed to build algorithms: %w", err)
	}
	module, err := ipa.NewModule(nil, algs...)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}

	for _, path := range []string{*traceDB, *timeline} {
		if path == "" {
			continue
		}
		if err := security.ValidateExportPath(path); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}

	var recorder sim.Recorder
	if *traceDB != "" {
		db, err := tracedb.Open(*traceDB)
		if err != nil {
			return fmt.Errorf("failed to open trace database: %w", err)
		}
		defer db.Close()
		recorder = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simulator := sim.New(module, nil, timeutil.RealClock{}, recorder)
	res, err := simulator.Run(ctx, sim.Config{
		SensorID:   id,
		Mode:       buildMode(uint32(*width), uint32(*height), uint32(*binning), *scale, *lineLength),
		Hardware:   ipa.Hardware{Revision: rev, WhiteBalanceGains: *whiteBal, LensShading: *lensShading},
		Frames:     uint32(*frames),
		Interval:   interval,
		Scene:      sceneFn,
		ExtraDelay: uint32(*extraDelay),
	})
	if err != nil {
		log.Printf("simulation stopped: %v", err)
	}

	if *timeline != "" && len(res.Trace) > 0 {
		if err := writeTimeline(*timeline, fmt.Sprintf("%s session %s", id, res.SessionID), res.Trace); err != nil {
			return err
		}
		log.Printf("wrote timeline to %s", *timeline)
	}

	fmt.Println(summary(res, *lineLength, *expUnits))
	return nil
}

func writeTimeline(path, title string, trace []tracedb.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create timeline: %w", err)
	}
	if err := plots.Timeline(f, title, trace); err != nil {
		f.Close()
		return fmt.Errorf("failed to render timeline: %w", err)
	}
	return f.Close()
}

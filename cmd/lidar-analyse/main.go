// Command lidar-analyse retrieves extinction and optical depth from one raw
// lidar shot and prints a per-wavelength summary.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/atmolidar/internal/analyser"
	"github.com/banshee-data/atmolidar/internal/config"
	"github.com/banshee-data/atmolidar/internal/fsutil"
	"github.com/banshee-data/atmolidar/internal/lidarfile"
	"github.com/banshee-data/atmolidar/internal/monitoring"
	"github.com/banshee-data/atmolidar/internal/security"
	"github.com/banshee-data/atmolidar/internal/units"
	"github.com/banshee-data/atmolidar/internal/version"
)

// exitUsage is returned for bad invocations; it shares the generic failure
// status.
const exitUsage = analyser.StatusFailure

// overrides collects repeated -set key=value flags.
type overrides []string

func (o *overrides) String() string { return strings.Join(*o, ",") }

func (o *overrides) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("want key=value, got %q", v)
	}
	*o = append(*o, v)
	return nil
}

type options struct {
	configPath string
	dataDir    string
	sets       overrides
	alg        string
	jsonOut    bool
	outDir     string
	unit       string
	verbose    bool
	trace      bool
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lidar-analyse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opt options
	fs.StringVar(&opt.configPath, "config", "", "analysis configuration (.json, .yaml or key=value)")
	fs.StringVar(&opt.dataDir, "data-dir", "", "directory relative model paths are resolved against")
	fs.Var(&opt.sets, "set", "override one parameter, key=value (repeatable)")
	fs.StringVar(&opt.alg, "alg", "", "inversion algorithm: Klett, Fernald84 or Aeronet")
	fs.BoolVar(&opt.jsonOut, "json", false, "print the JSON report instead of the summary")
	fs.StringVar(&opt.outDir, "out", "", "also write the JSON report into this directory")
	fs.StringVar(&opt.unit, "units", units.Kilometres, "altitude units for the summary: "+units.GetValidUnitsString())
	fs.BoolVar(&opt.verbose, "v", false, "enable diagnostic logging")
	fs.BoolVar(&opt.trace, "vv", false, "enable diagnostic and trace logging")
	fs.BoolVar(&opt.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: lidar-analyse [flags] <raw.txt>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	if opt.version {
		fmt.Fprintln(stdout, version.String("lidar-analyse"))
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	if !units.IsValid(opt.unit) {
		fmt.Fprintf(stderr, "invalid -units %q (want %s)\n", opt.unit, units.GetValidUnitsString())
		return exitUsage
	}

	writers := monitoring.LogWriters{Ops: stderr}
	if opt.verbose || opt.trace {
		writers.Diag = stderr
	}
	if opt.trace {
		writers.Trace = stderr
	}
	monitoring.SetLogWriters(writers)

	cfg, err := buildConfig(opt)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return exitUsage
	}

	rawPath := fs.Arg(0)
	raw, err := lidarfile.Reader{}.Read(rawPath)
	if err != nil {
		fmt.Fprintf(stderr, "read: %v\n", err)
		return exitUsage
	}
	fmt.Fprintf(stderr, "read %s: %s samples, %d wavelengths\n",
		filepath.Base(rawPath), humanize.Comma(int64(len(raw.Range))), len(raw.Signals))

	a, err := analyser.New(raw, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "analyser: %v\n", err)
		return analyser.StatusCode(err)
	}
	rep, perr := a.Process()

	if opt.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(stderr, "encode report: %v\n", err)
			return exitUsage
		}
	} else {
		printSummary(stdout, rep, opt.unit)
	}

	if opt.outDir != "" {
		path, n, err := writeReport(opt.outDir, rawPath, rep)
		if err != nil {
			fmt.Fprintf(stderr, "write report: %v\n", err)
			return exitUsage
		}
		fmt.Fprintf(stderr, "wrote %s (%s)\n", path, humanize.Bytes(uint64(n)))
	}
	return analyser.StatusCode(perr)
}

func buildConfig(opt options) (*config.AnalysisConfig, error) {
	cfg := config.Default()
	if opt.configPath != "" {
		var err error
		if cfg, err = config.Load(fsutil.OSFileSystem{}, opt.configPath); err != nil {
			return nil, err
		}
	}
	for _, kv := range opt.sets {
		k, v, _ := strings.Cut(kv, "=")
		if err := cfg.Set(k, v); err != nil {
			return nil, err
		}
	}
	if opt.alg != "" {
		if err := cfg.Set("AlgName", opt.alg); err != nil {
			return nil, err
		}
	}
	if err := cfg.ResolveModelPaths(opt.dataDir); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func printSummary(w io.Writer, rep *analyser.Report, unit string) {
	fmt.Fprintf(w, "run %d seq %d  %s  %s\n", rep.RunNumber, rep.SeqNumber,
		rep.Timestamp.Format("2006-01-02 15:04:05"), rep.Algorithm)
	for _, wl := range rep.Wavelengths {
		if msg, failed := rep.Failures[wl]; failed {
			fmt.Fprintf(w, "%4d nm  FAILED  %s\n", wl, msg)
			continue
		}
		s := rep.Summaries[wl]
		r0 := fmt.Sprintf("%.3g %s", units.ConvertLength(s.R0, unit), unit)
		if s.R0Adjusted {
			r0 += "*"
		}
		fmt.Fprintf(w, "%4d nm  R0 %-10s AC %.2f  OD %.4f  AOD %.4f  ROD %.4f  model OD %.4f  model AOD %.4f\n",
			wl, r0, s.AlignCorr, s.OpticalDepth.Total, s.OpticalDepth.Particulate, s.OpticalDepth.Molecular,
			s.OpticalDepth.Model, s.OpticalDepth.ModelParticulate)
	}
}

// writeReport stores rep as <dir>/<raw file stem>.json.
func writeReport(dir, rawPath string, rep *analyser.Report) (string, int, error) {
	stem := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	name := security.SanitizeFilename(stem)
	if name == "" {
		name = rep.RunID
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	path := filepath.Join(dir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, err
	}
	return path, len(data), nil
}

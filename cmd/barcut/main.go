// BarCut is a 1D cutting stock optimizer.
//
// It reads piece demand and stock bars from CSV, XLSX or DXF, solves every
// profile/orientation group with a heuristic and an exact ILP solver, and
// writes the chosen cutting plan as text, JSON, PDF, labels or XLSX.
//
// Build:
//
//	go build -o barcut ./cmd/barcut
//
// Examples:
//
//	barcut -input order.csv -pdf plan.pdf -labels labels.pdf
//	barcut -input frame.dxf -dxf-profile RHS40 -bars 6000x10,12000 -format json
//	barcut -serve :8080
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/api"
	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/export"
	"github.com/piwi3910/BarCut/internal/importer"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
)

var (
	inputPath  = flag.String("input", "", "CSV, XLSX or DXF file with pieces and stock bars")
	algorithm  = flag.String("algorithm", "", "ffd, ilp or compare (default from config)")
	pdfPath    = flag.String("pdf", "", "write the cutting report PDF to this path")
	labelsPath = flag.String("labels", "", "write QR piece labels PDF to this path")
	xlsxPath   = flag.String("xlsx", "", "write the cut list workbook to this path")
	reportPath = flag.String("report", "", "save a JSON run report to this path")
	configPath = flag.String("config", "", "config file (default ~/.barcut/config.json)")
	serveAddr  = flag.String("serve", "", "serve the HTTP API on this address instead of running once")
	dxfProfile = flag.String("dxf-profile", "", "profile assigned to DXF pieces and -bars (default from config)")
	barsSpec   = flag.String("bars", "", "extra stock bars, e.g. 6000x10,12000 (no count = unlimited)")
	format     = flag.String("format", "text", "stdout format: text or json")
	compare    = flag.Bool("compare", false, "also run the default what-if scenarios and print a comparison")
)

func main() {
	flag.Parse()
	defer log.Flush()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = project.DefaultConfigPath()
	}
	cfg, err := project.LoadAppConfig(cfgPath)
	if err != nil {
		log.Exitf("Cannot load config %s: %v", cfgPath, err)
	}

	settings := cfg.Defaults.WithDefaults()
	if *algorithm != "" {
		alg, err := model.ParseAlgorithm(*algorithm)
		if err != nil {
			log.Exitf("Invalid -algorithm: %v", err)
		}
		settings.Algorithm = alg
	}

	if *serveAddr != "" {
		if err := api.NewServer(settings).Run(*serveAddr); err != nil {
			log.Exitf("Server stopped: %v", err)
		}
		return
	}

	if *inputPath == "" {
		flag.Usage()
		log.Exit("-input is required unless -serve is given")
	}
	if *format != "text" && *format != "json" {
		log.Exitf("Invalid -format %q: want text or json", *format)
	}

	profile := *dxfProfile
	if profile == "" {
		profile = cfg.DefaultProfile
	}

	imported := importer.ImportFile(*inputPath, profile)
	for _, w := range imported.Warnings {
		log.Warning(w)
	}
	if len(imported.Errors) > 0 {
		for _, e := range imported.Errors {
			log.Error(e)
		}
		log.Exitf("Import of %s failed with %d errors", *inputPath, len(imported.Errors))
	}
	if *barsSpec != "" {
		bars, err := importer.ParseBars(*barsSpec, profile)
		if err != nil {
			log.Exitf("Invalid -bars: %v", err)
		}
		imported.Bars = append(imported.Bars, bars...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	models := imported.Models()
	start := time.Now()
	result, err := engine.New(settings).Optimize(ctx, models)
	elapsed := time.Since(start)
	if errors.Is(err, model.ErrMalformedInput) {
		log.Exitf("Invalid input: %v", err)
	}
	if err != nil {
		log.Warningf("Some models were not solved: %v", err)
	}

	var comparisons []engine.ComparisonResult
	if *compare {
		comparisons = engine.CompareScenarios(ctx, engine.BuildDefaultScenarios(settings), models)
	}

	if *format == "json" {
		if err := writeJSON(os.Stdout, result, comparisons); err != nil {
			log.Exitf("Cannot write output: %v", err)
		}
	} else {
		writeText(os.Stdout, result, elapsed)
		if len(comparisons) > 0 {
			writeComparison(os.Stdout, comparisons)
		}
	}

	if err := writeExports(result, settings, imported, elapsed); err != nil {
		log.Exitf("%v", err)
	}

	cfg.AddRecentInput(*inputPath)
	if err := project.SaveAppConfig(cfgPath, cfg); err != nil {
		log.Warningf("Cannot update config %s: %v", cfgPath, err)
	}

	if result.Global.SolvedModels < result.Global.TotalModels {
		log.Flush()
		os.Exit(1)
	}
}

// writeExports writes every output file requested on the command line.
func writeExports(result model.OptimizeResult, settings model.Settings, imported importer.ImportResult, elapsed time.Duration) error {
	if *pdfPath != "" {
		if err := export.ExportPDF(*pdfPath, result, settings); err != nil {
			return fmt.Errorf("failed to export PDF: %w", err)
		}
		log.Infof("Wrote cutting report to %s", *pdfPath)
	}
	if *labelsPath != "" {
		if err := export.ExportLabels(*labelsPath, result); err != nil {
			return fmt.Errorf("failed to export labels: %w", err)
		}
		log.Infof("Wrote labels to %s", *labelsPath)
	}
	if *xlsxPath != "" {
		if err := export.ExportXLSX(*xlsxPath, result); err != nil {
			return fmt.Errorf("failed to export workbook: %w", err)
		}
		log.Infof("Wrote cut list to %s", *xlsxPath)
	}
	if *reportPath != "" {
		input := project.ReportInput{Pieces: imported.Pieces, Bars: imported.Bars}
		if err := project.SaveReport(*reportPath, project.NewReport(input, settings, result, elapsed)); err != nil {
			return err
		}
		log.Infof("Saved run report to %s", *reportPath)
	}
	return nil
}

// Command pc-chart renders the per-event collision probability trend series
// from a maneuver plans artifact as an HTML line chart. Debugging-only: it
// exists to eyeball gate decisions, not as a product surface.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/AntAci/AstraGuard/internal/artifacts"
)

var (
	plansPath = flag.String("plans", "artifacts/maneuver_plans.json", "Path to the maneuver plans artifact")
	eventID   = flag.String("event", "", "Chart only this event ID (default: all events)")
	outPath   = flag.String("out", "pc_chart.html", "Output HTML file")
)

func main() {
	flag.Parse()

	data, err := os.ReadFile(*plansPath)
	if err != nil {
		log.Fatalf("failed to read plans artifact: %v", err)
	}
	var plans artifacts.ManeuverPlans
	if err := json.Unmarshal(data, &plans); err != nil {
		log.Fatalf("failed to parse plans artifact: %v", err)
	}

	var xAxis []string
	type namedSeries struct {
		name string
		data []opts.LineData
	}
	var series []namedSeries
	for _, d := range plans.Decisions {
		if *eventID != "" && d.Event.EventID != *eventID {
			continue
		}
		points := make([]opts.LineData, 0, len(d.Trend.Series))
		labels := make([]string, 0, len(d.Trend.Series))
		for _, s := range d.Trend.Series {
			labels = append(labels, s.At.UTC().Format("15:04:05"))
			// Log scale keeps the decades visible; floor avoids -Inf.
			points = append(points, opts.LineData{Value: math.Log10(math.Max(s.Pc, 1e-30))})
		}
		if xAxis == nil {
			xAxis = labels
		}
		series = append(series, namedSeries{name: d.Event.EventID, data: points})
	}
	if len(series) == 0 {
		log.Fatalf("no matching events in %s", *plansPath)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pc Trend", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Collision probability around TCA",
			Subtitle: fmt.Sprintf("model=%s events=%d", plans.ModelVersion, len(series)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "log10 Pc"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "UTC"}),
	)
	line.SetXAxis(xAxis)
	for _, s := range series {
		line.AddSeries(s.name, s.data)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create output file: %v", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("wrote %s", *outPath)
}

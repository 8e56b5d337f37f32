// Command miss-histogram plots the miss distance distribution of a top
// conjunctions artifact as a PNG histogram. Debugging-only.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/AntAci/AstraGuard/internal/artifacts"
)

var (
	eventsPath = flag.String("events", "artifacts/top_conjunctions.json", "Path to the top conjunctions artifact")
	outPath    = flag.String("out", "miss_histogram.png", "Output PNG file")
	bins       = flag.Int("bins", 16, "Histogram bin count")
)

func main() {
	flag.Parse()

	data, err := os.ReadFile(*eventsPath)
	if err != nil {
		log.Fatalf("failed to read events artifact: %v", err)
	}
	var top artifacts.TopConjunctions
	if err := json.Unmarshal(data, &top); err != nil {
		log.Fatalf("failed to parse events artifact: %v", err)
	}
	if len(top.Events) == 0 {
		log.Fatalf("no events in %s", *eventsPath)
	}

	values := make(plotter.Values, len(top.Events))
	for i, ev := range top.Events {
		values[i] = ev.MissDistanceM / 1000
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Miss distances (%d ranked events, model %s)", len(values), top.ModelVersion)
	p.X.Label.Text = "miss distance (km)"
	p.Y.Label.Text = "events"

	h, err := plotter.NewHist(values, *bins)
	if err != nil {
		log.Fatalf("failed to build histogram: %v", err)
	}
	p.Add(h)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, *outPath); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}
	log.Printf("wrote %s", *outPath)
}

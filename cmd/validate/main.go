// Command validate checks a storm table and a finalized forecast-grid set
// for internal consistency: buffer configuration, grid geometry, probability
// ranges, and agreement between the two files.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -storm-table data/mock/storm_table.json \
//	  -forecast-set forecast_grids.json
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/storm-forecast-grids/internal/adapter/stormtable"
	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	stormTable := flag.String("storm-table", "", "path to the storm table JSON")
	forecastSet := flag.String("forecast-set", "", "path to the forecast-grid set JSON")
	flag.Parse()

	if *stormTable == "" || *forecastSet == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*stormTable, *forecastSet); code != 0 {
		os.Exit(code)
	}
}

func run(stormTablePath, forecastSetPath string) int {
	fmt.Println("=== Forecast Grid Validation ===")
	fmt.Println()

	storms, err := stormtable.ReadTable(stormTablePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load storm table: %v\n", err)
		return 1
	}

	set, err := stormtable.ReadForecastSet(forecastSetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load forecast set: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateBufferConfiguration(storms),
		validateGridGeometry(set),
		validateProbabilities(set),
		validateCrossConsistency(storms, set),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Storms: %d, grids: %d, grid size: %d x %d\n",
		len(storms), len(set.Grids), len(set.GridYCoords), len(set.GridXCoords))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateBufferConfiguration checks that every storm carries the same
// abutting distance-buffer set with in-range probabilities.
func validateBufferConfiguration(storms []*domain.StormObject) *phase {
	p := &phase{name: "Phase 1: Buffer Configuration"}

	keys, err := domain.SharedBufferKeys(storms)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if err := domain.ValidateBufferSet(keys); err != nil {
		p.errorf("%v", err)
	}

	for _, storm := range storms {
		for key, buffer := range storm.Buffers {
			if buffer.ForecastProbability < 0 || buffer.ForecastProbability > 1 {
				p.errorf("storm %s buffer %s: probability %g out of [0, 1]",
					storm.FullID, key, buffer.ForecastProbability)
			}
		}
	}
	return p
}

// validateGridGeometry checks coordinate vectors and per-grid dimensions.
func validateGridGeometry(set *domain.GriddedForecastSet) *phase {
	p := &phase{name: "Phase 2: Grid Geometry"}

	if !sort.Float64sAreSorted(set.GridXCoords) {
		p.errorf("grid x coordinates are not ascending")
	}
	if !sort.Float64sAreSorted(set.GridYCoords) {
		p.errorf("grid y coordinates are not ascending")
	}
	if len(set.Grids) != len(set.InitTimes) {
		p.errorf("%d grids for %d init times", len(set.Grids), len(set.InitTimes))
	}
	if set.MaxLeadTimeSeconds < set.MinLeadTimeSeconds {
		p.errorf("max lead time %ds before min lead time %ds", set.MaxLeadTimeSeconds, set.MinLeadTimeSeconds)
	}

	for i, grid := range set.Grids {
		if len(grid.Probabilities) != len(set.GridYCoords) {
			p.errorf("grid %d: %d rows, expected %d", i, len(grid.Probabilities), len(set.GridYCoords))
			continue
		}
		for r, row := range grid.Probabilities {
			if len(row) != len(set.GridXCoords) {
				p.errorf("grid %d row %d: %d columns, expected %d", i, r, len(row), len(set.GridXCoords))
				break
			}
		}
	}
	return p
}

// validateProbabilities checks every finite cell is a probability.
func validateProbabilities(set *domain.GriddedForecastSet) *phase {
	p := &phase{name: "Phase 3: Probability Ranges"}

	for i, grid := range set.Grids {
		covered := 0
		for r, row := range grid.Probabilities {
			for c, v := range row {
				if math.IsNaN(v) {
					continue
				}
				covered++
				if v < 0 || v > 1 {
					p.errorf("grid %d cell (%d,%d): %g out of [0, 1]", i, r, c, v)
				}
			}
		}
		if covered == 0 {
			p.errorf("grid %d: no covered cells", i)
		}
	}
	return p
}

// validateCrossConsistency checks the forecast set against the table it was
// built from: one grid per distinct valid time, in order.
func validateCrossConsistency(storms []*domain.StormObject, set *domain.GriddedForecastSet) *phase {
	p := &phase{name: "Phase 4: Table/Set Consistency"}

	wantTimes := domain.InitTimes(storms)
	if len(wantTimes) != len(set.InitTimes) {
		p.errorf("table has %d init times, set has %d", len(wantTimes), len(set.InitTimes))
		return p
	}
	for i, want := range wantTimes {
		if !set.InitTimes[i].Equal(want) {
			p.errorf("init time %d: table %s, set %s", i,
				want.Format(time.RFC3339), set.InitTimes[i].Format(time.RFC3339))
		}
	}
	for i, grid := range set.Grids {
		if i < len(set.InitTimes) && !grid.InitTime.Equal(set.InitTimes[i]) {
			p.errorf("grid %d init time %s does not match set init time %s",
				i, grid.InitTime.Format(time.RFC3339), set.InitTimes[i].Format(time.RFC3339))
		}
	}
	return p
}

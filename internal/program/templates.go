// Package program holds the built-in training program templates used to
// feed the projection engine. Each template expands a base power and a
// week count into a concrete weekly plan with a ramp and periodic
// recovery weeks.
package program

import (
	"fmt"
	"sort"

	"veloform/internal/engine"
	"veloform/internal/store"
)

// Template generates a weekly plan from an athlete's base power.
type Template struct {
	Name        string
	Description string
	build       func(basePower float64, weeks int) []engine.PlannedWeek
}

var templates = map[string]Template{
	"polarized-base": {
		Name:        "polarized-base",
		Description: "Long steady rides well below threshold with one harder week in four",
		build:       polarizedBase,
	},
	"sweet-spot-build": {
		Name:        "sweet-spot-build",
		Description: "Progressive sweet-spot work climbing from 88% to 97% of base power",
		build:       sweetSpotBuild,
	},
	"threshold-peak": {
		Name:        "threshold-peak",
		Description: "Short intense interval sessions at and above base power",
		build:       thresholdPeak,
	},
	"recovery-block": {
		Name:        "recovery-block",
		Description: "Easy spinning to shed accumulated fatigue",
		build:       recoveryBlock,
	},
}

// Get returns the named template.
func Get(name string) (Template, error) {
	tpl, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown program template %q", name)
	}
	return tpl, nil
}

// Names returns the available template names, sorted.
func Names() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Plan expands the template into a concrete weekly plan.
func (t Template) Plan(basePower float64, weeks int) ([]engine.PlannedWeek, error) {
	if basePower <= 0 {
		return nil, fmt.Errorf("base power must be positive, got %v", basePower)
	}
	if weeks <= 0 {
		return nil, fmt.Errorf("week count must be positive, got %d", weeks)
	}
	return t.build(basePower, weeks), nil
}

// recoveryWeek is true every fourth week. The ramp pauses there so the
// athlete absorbs the preceding load.
func recoveryWeek(week int) bool {
	return week%4 == 3
}

func polarizedBase(basePower float64, weeks int) []engine.PlannedWeek {
	plan := make([]engine.PlannedWeek, weeks)
	for i := range plan {
		// Mostly easy volume, duration grows with the block.
		duration := 3600 + 300*min(i, 8)
		power := basePower * 0.70
		if recoveryWeek(i) {
			plan[i] = engine.PlannedWeek{
				Power:           basePower * 0.55,
				DurationSeconds: 2700,
				Style:           store.StyleSteady,
			}
			continue
		}
		plan[i] = engine.PlannedWeek{
			Power:           power,
			DurationSeconds: duration,
			Style:           store.StyleSteady,
		}
	}
	return plan
}

func sweetSpotBuild(basePower float64, weeks int) []engine.PlannedWeek {
	plan := make([]engine.PlannedWeek, weeks)
	ramp := 0
	for i := range plan {
		if recoveryWeek(i) {
			plan[i] = engine.PlannedWeek{
				Power:           basePower * 0.60,
				DurationSeconds: 2700,
				Style:           store.StyleSteady,
			}
			continue
		}
		// 88% climbing toward 97%, capped so long blocks stay sane.
		fraction := 0.88 + 0.015*float64(min(ramp, 6))
		ramp++
		plan[i] = engine.PlannedWeek{
			Power:           basePower * fraction,
			DurationSeconds: 3600,
			Style:           store.StyleSteady,
		}
	}
	return plan
}

func thresholdPeak(basePower float64, weeks int) []engine.PlannedWeek {
	plan := make([]engine.PlannedWeek, weeks)
	ramp := 0
	for i := range plan {
		if recoveryWeek(i) {
			plan[i] = engine.PlannedWeek{
				Power:           basePower * 0.60,
				DurationSeconds: 2400,
				Style:           store.StyleSteady,
			}
			continue
		}
		// Interval work at and just above base power, shortening work
		// bouts as intensity climbs.
		fraction := 1.00 + 0.02*float64(min(ramp, 4))
		ramp++
		plan[i] = engine.PlannedWeek{
			Power:           basePower * fraction,
			DurationSeconds: 2400,
			Style:           store.StyleInterval,
			WorkRest:        "2:1",
		}
	}
	return plan
}

func recoveryBlock(basePower float64, weeks int) []engine.PlannedWeek {
	plan := make([]engine.PlannedWeek, weeks)
	for i := range plan {
		plan[i] = engine.PlannedWeek{
			Power:           basePower * 0.50,
			DurationSeconds: 1800,
			Style:           store.StyleSteady,
		}
	}
	return plan
}

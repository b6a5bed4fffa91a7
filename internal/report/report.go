// Package report renders model output as plain terminal text.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"veloform/internal/service"
	"veloform/internal/store"
)

// Status renders the current model snapshot.
func Status(s *service.Status, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Critical power:  %.0f W", s.Estimate.CP)
	if s.Estimate.Decayed {
		b.WriteString("  (decayed - no recent maximal effort)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "W' capacity:     %s J\n", humanize.Comma(int64(s.Estimate.WPrime)))
	fmt.Fprintf(&b, "Confidence:      %.0f%% (%d data points", s.Estimate.Confidence*100, s.Estimate.DataPoints)
	if !s.Estimate.ComputedAt.IsZero() {
		fmt.Fprintf(&b, ", updated %s", humanize.RelTime(s.Estimate.ComputedAt, now, "ago", "from now"))
	}
	b.WriteString(")\n\n")

	fmt.Fprintf(&b, "Metabolic fatigue:   %s\n", bar(s.State.Fast, 100))
	fmt.Fprintf(&b, "Structural fatigue:  %s\n", bar(s.State.Slow, 100))
	fmt.Fprintf(&b, "Readiness:           %d/100", s.Readiness)
	if s.AdjustedReadiness != s.Readiness {
		fmt.Fprintf(&b, "  (adjusted to %d after time off)", s.AdjustedReadiness)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Zone: %s\n", s.Interpretation.Zone)
	fmt.Fprintf(&b, "  %s\n", s.Interpretation.Recommendation)
	return b.String()
}

// Trend renders a readiness sparkline over the trend window.
func Trend(points []service.TrendPoint) string {
	if len(points) == 0 {
		return "No readiness history yet.\n"
	}

	data := make([]float64, len(points))
	for i, p := range points {
		data[i] = float64(p.Readiness)
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Precision(0),
	)

	var b strings.Builder
	fmt.Fprintf(&b, "Readiness, last %d days\n\n", len(points))
	b.WriteString(graph)
	b.WriteString("\n")
	return b.String()
}

// Simulation renders a projection's weekly readiness bands.
func Simulation(r *service.SimulationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Program: %s  (base %.0f W, %s trials)\n",
		r.Run.Template, r.Run.BasePower, humanize.Comma(int64(r.Run.Trials)))
	fmt.Fprintf(&b, "Run ID:  %s\n\n", r.Run.ID)

	b.WriteString("Week  Power  Readiness (min / p25 / median / p75 / max)\n")
	for _, w := range r.Result.Weeks {
		fmt.Fprintf(&b, "%4d  %4.0fW  %5.0f  %5.0f  %6.0f  %5.0f  %5.0f\n",
			w.Week, w.PlannedPower,
			w.Readiness.Min, w.Readiness.P25, w.Readiness.Median, w.Readiness.P75, w.Readiness.Max)
	}
	b.WriteString("\n")

	medians := make([]float64, len(r.Result.Weeks))
	for i, w := range r.Result.Weeks {
		medians[i] = w.Readiness.Median
	}
	if len(medians) > 1 {
		b.WriteString("Median readiness by week\n\n")
		b.WriteString(asciigraph.Plot(medians,
			asciigraph.Height(8),
			asciigraph.Width(50),
			asciigraph.Precision(0),
		))
		b.WriteString("\n")
	}

	final := r.Result.Weeks[len(r.Result.Weeks)-1]
	if final.Readiness.P25 < 30 {
		b.WriteString("\nWarning: a quarter of trials end the program badly fatigued.\n")
	}
	return b.String()
}

// Sessions renders a session history table.
func Sessions(sessions []store.Session, now time.Time) string {
	if len(sessions) == 0 {
		return "No sessions logged yet.\n"
	}

	var b strings.Builder
	b.WriteString("Date         Power  Duration  RPE  Style\n")
	for _, s := range sessions {
		style := s.Style
		if style == "" {
			style = "-"
		}
		if s.Style == store.StyleInterval && s.WorkRest != "" {
			style = fmt.Sprintf("%s %s", style, s.WorkRest)
		}
		fmt.Fprintf(&b, "%s  %4.0fW  %8s  %3d  %s\n",
			s.Date.Format("2006-01-02"),
			s.AvgPower,
			formatDuration(s.DurationSeconds),
			s.Effort,
			style)
	}
	fmt.Fprintf(&b, "\n%d sessions, most recent %s\n",
		len(sessions), humanize.RelTime(sessions[0].Date, now, "ago", "from now"))
	return b.String()
}

// LogResult renders the outcome of logging a session.
func LogResult(r *service.LogResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session %d logged.\n", r.SessionID)
	fmt.Fprintf(&b, "  Cost:       %.1f\n", r.Cost)
	fmt.Fprintf(&b, "  Predicted:  RPE %.1f\n", r.PredictedEffort)
	fmt.Fprintf(&b, "  Readiness:  %d/100\n", r.Readiness)
	if r.Correction.Mismatch {
		direction := "harder"
		if r.Correction.Gap < 0 {
			direction = "easier"
		}
		fmt.Fprintf(&b, "  Felt %s than expected (gap %.1f), fatigue penalty applied.\n",
			direction, r.Correction.Gap)
	}
	if r.Correction.DowngradeCP {
		fmt.Fprintf(&b, "  Consistent mismatches: critical power lowered to %.0f W.\n",
			r.Correction.DowngradedCP)
	}
	return b.String()
}

// EstimateHistory renders the stored estimate history.
func EstimateHistory(estimates []store.EstimateRecord) string {
	if len(estimates) == 0 {
		return "No estimates yet - log a session first.\n"
	}

	var b strings.Builder
	b.WriteString("Computed     CP     W'       Confidence\n")
	for _, e := range estimates {
		flags := ""
		if e.Decayed {
			flags = "  decayed"
		}
		fmt.Fprintf(&b, "%s  %4.0fW  %7s  %3.0f%%%s\n",
			e.ComputedAt.Format("2006-01-02"),
			e.CP,
			humanize.Comma(int64(e.WPrime)),
			e.Confidence*100,
			flags)
	}
	return b.String()
}

// bar renders a 0-max value as a 20-cell meter.
func bar(value, max float64) string {
	const cells = 20
	filled := int(value / max * cells)
	if filled < 0 {
		filled = 0
	}
	if filled > cells {
		filled = cells
	}
	return fmt.Sprintf("[%s%s] %3.0f", strings.Repeat("#", filled), strings.Repeat(".", cells-filled), value)
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

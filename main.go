package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"veloform/internal/config"
	"veloform/internal/engine"
	"veloform/internal/program"
	"veloform/internal/report"
	"veloform/internal/service"
	"veloform/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("Set athlete.reference_power to your FTP (or a rough guess in watts).")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		configDir, _ := config.GetConfigDir()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s/config.json\n", configDir)
		return nil
	}

	// Open database
	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	svc := service.NewTrainingService(db, logger, tuningFromConfig(cfg))

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"status"}
	}

	switch args[0] {
	case "log":
		return cmdLog(svc, args[1:])
	case "checkin":
		return cmdCheckin(svc, args[1:])
	case "status":
		return cmdStatus(svc)
	case "trend":
		return cmdTrend(svc, cfg)
	case "estimate":
		return cmdEstimate(db)
	case "simulate":
		return cmdSimulate(svc, cfg, args[1:])
	case "history":
		return cmdHistory(db)
	case "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `veloform - cardio training state estimation

Usage:
  veloform status                 show critical power, fatigue and readiness
  veloform trend                  plot recent readiness
  veloform log [flags]            log a completed session
  veloform checkin [flags]        answer the daily wellness questionnaire
  veloform estimate               show the critical-power estimate history
  veloform simulate [flags]       project a training program forward
  veloform history                list logged sessions

Run 'veloform <command> -h' for command flags.
`)
}

func cmdLog(svc *service.TrainingService, args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	power := fs.Float64("power", 0, "average power in watts (required)")
	duration := fs.Int("duration", 0, "duration in minutes (required)")
	effort := fs.Int("effort", 0, "perceived effort 1-10 (required)")
	style := fs.String("style", "", "session style: steady, interval or custom")
	workRest := fs.String("work-rest", "", "interval work:rest ratio, e.g. 4:1")
	date := fs.String("date", "", "session date YYYY-MM-DD (default today)")
	notes := fs.String("notes", "", "free-form notes")
	trace := fs.String("trace", "", "CSV file with offset_seconds,power rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	when, err := parseDate(*date)
	if err != nil {
		return err
	}

	var samples []store.Sample
	if *trace != "" {
		samples, err = readTrace(*trace)
		if err != nil {
			return fmt.Errorf("reading trace file: %w", err)
		}
	}

	result, err := svc.LogSession(&store.Session{
		Date:            when,
		AvgPower:        *power,
		DurationSeconds: *duration * 60,
		Effort:          *effort,
		Style:           *style,
		WorkRest:        *workRest,
		Notes:           *notes,
	}, samples)
	if err != nil {
		return err
	}

	fmt.Print(report.LogResult(result))
	return nil
}

func cmdCheckin(svc *service.TrainingService, args []string) error {
	fs := flag.NewFlagSet("checkin", flag.ExitOnError)
	sleep := fs.Int("sleep", 0, "sleep quality 1-5")
	nutrition := fs.Int("nutrition", 0, "nutrition quality 1-5")
	stress := fs.Int("stress", 0, "life stress 1-5 (5 = worst)")
	soreness := fs.Int("soreness", 0, "muscle soreness 1-5 (5 = worst)")
	energy := fs.Int("energy", 0, "subjective energy 1-5")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := svc.DailyCheckin(&store.QuestionnaireResponse{
		Date:      time.Now().UTC(),
		Sleep:     *sleep,
		Nutrition: *nutrition,
		Stress:    *stress,
		Soreness:  *soreness,
		Energy:    *energy,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Check-in saved. Recovery efficiency %.2f, readiness %d/100.\n",
		result.RecoveryEfficiency, result.Readiness)
	if result.CorrectionApplied {
		fmt.Println("Your answers overrode the model state for today.")
	}
	return nil
}

func cmdStatus(svc *service.TrainingService) error {
	status, err := svc.CurrentStatus(time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Print(report.Status(status, time.Now().UTC()))
	return nil
}

func cmdTrend(svc *service.TrainingService, cfg *config.Config) error {
	trend, err := svc.ReadinessTrend(time.Now().UTC(), cfg.Display.TrendWeeks*7)
	if err != nil {
		return err
	}
	fmt.Print(report.Trend(trend))
	return nil
}

func cmdEstimate(db *store.DB) error {
	estimates, err := db.ListEstimates(20)
	if err != nil {
		return err
	}
	fmt.Print(report.EstimateHistory(estimates))
	return nil
}

func cmdSimulate(svc *service.TrainingService, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	template := fs.String("template", "sweet-spot-build",
		fmt.Sprintf("program template: %s", strings.Join(program.Names(), ", ")))
	weeks := fs.Int("weeks", 8, "program length in weeks")
	trials := fs.Int("trials", cfg.Simulation.Trials, "Monte Carlo trials")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := svc.RunSimulation(*template, *weeks, *trials, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Print(report.Simulation(result))
	return nil
}

func cmdHistory(db *store.DB) error {
	sessions, err := db.ListSessions(30)
	if err != nil {
		return err
	}
	fmt.Print(report.Sessions(sessions, time.Now().UTC()))
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// readTrace parses an offset,power CSV with no header.
func readTrace(path string) ([]store.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var samples []store.Sample
	for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: expected offset,power", i+1)
		}
		offset, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: bad offset: %w", i+1, err)
		}
		power, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad power: %w", i+1, err)
		}
		samples = append(samples, store.Sample{TimeOffset: offset, Power: power})
	}
	return samples, nil
}

// tuningFromConfig applies the athlete's config overrides on top of the
// engine defaults.
func tuningFromConfig(cfg *config.Config) engine.Tuning {
	tn := engine.DefaultTuning()
	tn.ReferencePower = cfg.Athlete.ReferencePower
	if cfg.Model.TauFastDays > 0 {
		tn.TauFast = cfg.Model.TauFastDays
	}
	if cfg.Model.TauSlowDays > 0 {
		tn.TauSlow = cfg.Model.TauSlowDays
	}
	if cfg.Model.DetrainingTauDays > 0 {
		tn.DetrainingTau = cfg.Model.DetrainingTauDays
	}
	if cfg.Model.LookbackDays > 0 {
		tn.LookbackDays = cfg.Model.LookbackDays
	}
	return tn
}

func logLevel() slog.Level {
	if os.Getenv("VELOFORM_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

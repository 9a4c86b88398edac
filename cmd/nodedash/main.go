// nodedash is a terminal dashboard that tails node logfiles and charts
// the activity and earnings parsed out of them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nodedash/nodedash/internal/monitor"
	"github.com/nodedash/nodedash/internal/tailsource"
	"github.com/nodedash/nodedash/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		configPath  string
		globs       stringList
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/nodedash/config.yml)")
	flag.Var(&globs, "g", "glob path to match logfiles (repeatable)")
	flag.Var(&globs, "glob-path", "glob path to match logfiles (repeatable)")
	globScan := flag.Duration("glob-scan", defaultGlobScan, "how often to rescan glob paths for new logfiles (0 disables)")
	checkpointInterval := flag.Duration("checkpoint-interval", defaultCheckpointInterval, "minimum logged time between checkpoints (0 disables)")
	ignoreExisting := flag.Bool("ignore-existing", false, "skip existing logfile content, monitor new lines only")
	linesMax := flag.Int("l", defaultLinesMax, "recent lines to keep per logfile")
	timelineSteps := flag.Int("timeline-steps", defaultTimelineSteps, fmt.Sprintf("timeline columns to track per granularity (min %d)", minTimelineSteps))
	tickRate := flag.Duration("tick-rate", defaultTickRate, "display refresh interval")
	debugWindow := flag.Bool("debug-window", false, "enable the parser debug view")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("nodedash\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags given on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "glob-scan":
			cfg.GlobScan = *globScan
		case "checkpoint-interval":
			cfg.CheckpointInterval = *checkpointInterval
		case "ignore-existing":
			cfg.IgnoreExisting = *ignoreExisting
		case "l":
			cfg.LinesMax = *linesMax
		case "timeline-steps":
			cfg.TimelineSteps = *timelineSteps
		case "tick-rate":
			cfg.TickRate = *tickRate
		case "debug-window":
			cfg.DebugWindow = *debugWindow
		}
	})
	cfg.GlobPaths = append(cfg.GlobPaths, globs...)
	if cfg.TimelineSteps < minTimelineSteps {
		cfg.TimelineSteps = minTimelineSteps
	}

	if err := run(cfg, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg cliConfig, files []string) error {
	if len(files) == 0 && len(cfg.GlobPaths) == 0 {
		return fmt.Errorf("no logfiles or glob paths given")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := tailsource.NewMux(ctx, 0)
	defer mux.Stop()

	coord := monitor.NewCoordinator(mux, cfg.LinesMax, cfg.TimelineSteps, cfg.CheckpointInterval)
	coord.IgnoreExisting = cfg.IgnoreExisting
	coord.GlobPatterns = cfg.GlobPaths

	for _, path := range files {
		coord.MonitorPath(path)
	}
	for _, pattern := range cfg.GlobPaths {
		if err := coord.ScanGlobPath(pattern); err != nil {
			return err
		}
	}
	for _, path := range coord.Failed {
		fmt.Fprintf(os.Stderr, "Warning: cannot monitor %s\n", path)
	}

	// With glob scanning on, an empty start is fine: matching files may
	// appear later.
	if len(coord.Monitors) == 0 && (cfg.GlobScan <= 0 || len(cfg.GlobPaths) == 0) {
		return fmt.Errorf("no files to monitor")
	}

	dashboard := tui.New(coord, mux.Lines(), tui.Config{
		TickRate:         cfg.TickRate,
		GlobScanInterval: cfg.GlobScan,
		DebugWindow:      cfg.DebugWindow,
	})

	p := tea.NewProgram(dashboard, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("nodedash requires a real terminal")
		}
		return fmt.Errorf("error running dashboard: %w", err)
	}

	if m, ok := final.(*tui.DashboardModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

package main

import (
	"flag"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/hailam/corengine/internal/config"
	"github.com/hailam/corengine/internal/engine"
	"github.com/hailam/corengine/internal/uci"
	"github.com/hailam/corengine/internal/xlog"
)

// Default NNUE file names (Stockfish compatible)
const (
	defaultBigNet   = "nn-c288c895ea92.nnue" // ~108MB
	defaultSmallNet = "nn-37f18f62d772.nnue" // ~3.5MB
)

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	configPath = flag.String("config", "", "path to corengine.toml")
)

var mainLog = xlog.Get("main")

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			mainLog.Warningf("could not load config %s: %v", *configPath, err)
		} else {
			cfg = loaded
		}
	}
	xlog.Init(cfg.Logging.Level)

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			mainLog.Fatalf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			mainLog.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		mainLog.Infof("CPU profiling enabled, writing to %s", profilePath)
	}

	eng := engine.NewEngine(cfg.Engine.HashMB)

	if cfg.Engine.Threads > 0 {
		if err := eng.SetThreads(cfg.Engine.Threads); err != nil {
			mainLog.Warningf("could not set threads to %d: %v", cfg.Engine.Threads, err)
		}
	}

	if cfg.NNUE.Enabled || cfg.NNUE.WeightsFile == "" {
		if err := autoLoadNNUE(eng); err != nil {
			mainLog.Warningf("NNUE not loaded: %v (using classical evaluation)", err)
		}
	}

	protocol := uci.New(eng)
	protocol.Run()
}

// autoLoadNNUE attempts to load NNUE weights from standard locations.
func autoLoadNNUE(eng *engine.Engine) error {
	searchPaths := []string{
		getAppSupportDir(),
		filepath.Join(getHomeDir(), ".corengine", "nnue"),
		"./nnue",
		".",
	}

	for _, dir := range searchPaths {
		bigPath := filepath.Join(dir, defaultBigNet)
		smallPath := filepath.Join(dir, defaultSmallNet)

		if fileExists(bigPath) && fileExists(smallPath) {
			if err := eng.LoadNNUE(bigPath, smallPath); err != nil {
				mainLog.Warningf("failed to load NNUE from %s: %v", dir, err)
				continue
			}
			eng.SetUseNNUE(true)
			mainLog.Infof("NNUE loaded from %s", dir)
			return nil
		}
	}

	return os.ErrNotExist
}

func getAppSupportDir() string {
	home := getHomeDir()
	return filepath.Join(home, "Library", "Application Support", "corengine", "nnue")
}

func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"media-proxy/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all service configuration
type Config struct {
	CacheDir    string
	DatabaseDir string
	Port        string

	MaxCacheEntries int
	CacheTTL        time.Duration

	TimeoutBase     time.Duration
	TimeoutPerSheet time.Duration
	TimeoutMax      time.Duration
	PollInterval    time.Duration

	FFmpegPath  string
	FFprobePath string

	LogHealthChecks bool
	MetricsEnabled  bool

	// Derived paths
	DatabasePath string
	SheetDir     string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	logging.Info("============================================================")
	logging.Info("  media-proxy %s (%s)", Version, Commit)
	logging.Info("============================================================")
	logging.Info("CONFIGURATION")

	cacheDir := getEnv("CACHE_DIR", "/cache")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	maxEntries := getEnvInt("MAX_CACHE_ENTRIES", 15)
	cacheTTL := getEnvDuration("CACHE_TTL", 7*24*time.Hour)
	timeoutBase := getEnvDuration("GENERATION_TIMEOUT_BASE", 30*time.Second)
	timeoutPerSheet := getEnvDuration("GENERATION_TIMEOUT_PER_SHEET", 20*time.Second)
	timeoutMax := getEnvDuration("GENERATION_TIMEOUT_MAX", 10*time.Minute)
	pollInterval := getEnvDuration("PROGRESS_POLL_INTERVAL", time.Second)
	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")
	ffprobePath := getEnv("FFPROBE_PATH", "ffprobe")
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  CACHE_DIR:                    %s", cacheDir)
	logging.Info("  DATABASE_DIR:                 %s", databaseDir)
	logging.Info("  PORT:                         %s", port)
	logging.Info("  MAX_CACHE_ENTRIES:            %d", maxEntries)
	logging.Info("  CACHE_TTL:                    %s", cacheTTL)
	logging.Info("  GENERATION_TIMEOUT_BASE:      %s", timeoutBase)
	logging.Info("  GENERATION_TIMEOUT_PER_SHEET: %s", timeoutPerSheet)
	logging.Info("  GENERATION_TIMEOUT_MAX:       %s", timeoutMax)
	logging.Info("  PROGRESS_POLL_INTERVAL:       %s", pollInterval)
	logging.Info("  FFMPEG_PATH:                  %s", ffmpegPath)
	logging.Info("  FFPROBE_PATH:                 %s", ffprobePath)
	logging.Info("  METRICS_ENABLED:              %v", metricsEnabled)
	logging.Info("  LOG_LEVEL:                    %s", logging.GetLevel())

	cacheDir, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}

	config := &Config{
		CacheDir:        cacheDir,
		DatabaseDir:     databaseDir,
		Port:            port,
		MaxCacheEntries: maxEntries,
		CacheTTL:        cacheTTL,
		TimeoutBase:     timeoutBase,
		TimeoutPerSheet: timeoutPerSheet,
		TimeoutMax:      timeoutMax,
		PollInterval:    pollInterval,
		FFmpegPath:      ffmpegPath,
		FFprobePath:     ffprobePath,
		LogHealthChecks: logHealthChecks,
		MetricsEnabled:  metricsEnabled,
		DatabasePath:    filepath.Join(databaseDir, "media-proxy.db"),
		SheetDir:        filepath.Join(cacheDir, "sheets"),
	}

	// The snapshot database is required; sheet output must be writable too
	// or every generation would fail at extraction time.
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(config.SheetDir, "sheets"); err != nil {
		return nil, fmt.Errorf("sheet directory error: %w", err)
	}
	if err := testWriteAccess(config.SheetDir); err != nil {
		return nil, fmt.Errorf("sheet directory is not writable: %w", err)
	}
	logging.Info("  [OK] Sheet directory is writable")

	checkTool(ffmpegPath, "FFmpeg")
	checkTool(ffprobePath, "FFprobe")

	return config, nil
}

func ensureDirectory(path, name string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory %s: %w", name, path, err)
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("  failed to remove test file %s: %v", testFile, err)
	}
	return nil
}

// checkTool warns when an extraction binary is missing; generation degrades
// to failure results rather than preventing startup.
func checkTool(binary, name string) {
	if _, err := exec.LookPath(binary); err != nil {
		logging.Warn("  %s not found (%s): generations will fail until it is installed", name, binary)
	} else {
		logging.Info("  [OK] %s is available", name)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("  Invalid %s=%q, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		logging.Warn("  Invalid %s=%q, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("  Invalid %s=%q, using default %s", key, value, fallback)
		return fallback
	}
	return parsed
}

// LogFatal logs a fatal startup error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// LogServerStarted logs the final startup summary
func LogServerStarted(port string, elapsed time.Duration) {
	logging.Info("")
	logging.Info("  [OK] media-proxy listening on :%s (started in %v)", port, elapsed)
}

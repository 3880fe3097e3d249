// Package logging provides categorized structured logging for campaigner.
// Every category is a named child of one root zap logger, so a single log file
// carries all categories and can be filtered by logger name.
// Until Initialize or Use is called every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config resolution
	CategoryConfig     Category = "config"     // Config load/save
	CategoryAPI        Category = "api"        // HTTP calls to the collaborator services
	CategorySession    Category = "session"    // Onboarding, session context
	CategoryGeneration Category = "generation" // Generate requests and sequencing
	CategoryCampaign   Category = "campaign"   // Campaign save/list
	CategoryPublish    Category = "publish"    // Publish coordinator
	CategoryStore      Category = "store"      // Local state database
	CategoryUsage      Category = "usage"      // Usage counters
)

// LogFileName is the file written under Options.Dir.
const LogFileName = "campaigner.log"

// Options configures Initialize.
type Options struct {
	Dir        string          // directory for LogFileName
	Level      string          // debug, info, warn, error
	JSONFormat bool            // JSON encoder instead of console
	DebugMode  bool            // when false, Initialize installs a no-op logger
	Categories map[string]bool // explicit false disables a category
}

var (
	mu        sync.RWMutex
	root      = zap.NewNop()
	disabled  = map[Category]bool{}
	loggers   = map[Category]*Logger{}
	closeFile func()
	debugMode bool
)

// Initialize builds the root logger from opts.
// With DebugMode off nothing is written and no directory is created.
func Initialize(opts Options) error {
	if !opts.DebugMode {
		install(zap.NewNop(), nil, opts)
		return nil
	}
	if opts.Dir == "" {
		return fmt.Errorf("log directory required")
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if opts.JSONFormat {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sink, closeFn, err := zap.Open(filepath.Join(opts.Dir, LogFileName))
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	install(zap.New(core, zap.AddCaller()), closeFn, opts)

	boot := Get(CategoryBoot)
	boot.Info("=== campaigner logging initialized ===")
	boot.Info("Logs directory: %s", opts.Dir)
	boot.Info("Log level: %s", level)
	return nil
}

// Use installs an existing zap logger as the root, e.g. the CLI's own logger.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	install(l, nil, Options{DebugMode: true})
}

func install(l *zap.Logger, closeFn func(), opts Options) {
	mu.Lock()
	defer mu.Unlock()

	_ = root.Sync()
	if closeFile != nil {
		closeFile()
	}
	root = l
	closeFile = closeFn
	debugMode = opts.DebugMode
	loggers = map[Category]*Logger{}
	disabled = map[Category]bool{}
	for name, enabled := range opts.Categories {
		if !enabled {
			disabled[Category(name)] = true
		}
	}
}

// IsDebugMode returns whether logging output is enabled
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode && !disabled[category]
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	base := root
	if disabled[category] {
		base = zap.NewNop()
	}
	l := &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// CloseAll flushes and closes the log file (call at shutdown).
func CloseAll() {
	install(zap.NewNop(), nil, Options{})
}

// Logger is a category logger with printf-style helpers.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

// Category returns the logger's category.
func (l *Logger) Category() Category { return l.category }

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) { l.sugar.Infof(format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying key/value context on every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// API logs to the api category
func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }

// Session logs to the session category
func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

// Generation logs to the generation category
func Generation(format string, args ...interface{}) { Get(CategoryGeneration).Info(format, args...) }

// GenerationDebug logs debug to the generation category
func GenerationDebug(format string, args ...interface{}) {
	Get(CategoryGeneration).Debug(format, args...)
}

// Campaign logs to the campaign category
func Campaign(format string, args ...interface{}) { Get(CategoryCampaign).Info(format, args...) }

// CampaignDebug logs debug to the campaign category
func CampaignDebug(format string, args ...interface{}) { Get(CategoryCampaign).Debug(format, args...) }

// Publish logs to the publish category
func Publish(format string, args ...interface{}) { Get(CategoryPublish).Info(format, args...) }

// PublishDebug logs debug to the publish category
func PublishDebug(format string, args ...interface{}) { Get(CategoryPublish).Debug(format, args...) }

// Store logs to the store category
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// =============================================================================
// TIMERS
// =============================================================================

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

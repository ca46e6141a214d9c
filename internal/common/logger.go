package common

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	arborcommon "github.com/ternarybob/arbor/common"
	arbormodels "github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger, falling back to a bare console
// logger if SetupLogger hasn't run yet. Every component should instead
// receive its logger explicitly at construction; this exists only for
// the same initialization-order edge case the teacher guards against.
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		defer loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(writerConfig(arbormodels.LogWriterTypeConsole, ""))
		globalLogger.Warn().Msg("using fallback logger - SetupLogger was not called during startup")
	}
	return globalLogger
}

// SetupLogger builds the process-wide logger from config and stores it
// as the singleton other packages fall back to via GetLogger.
func SetupLogger(cfg *Config) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFile, hasStdout := false, false
	for _, out := range cfg.Logging.Output {
		switch out {
		case "file":
			hasFile = true
		case "stdout", "console":
			hasStdout = true
		}
	}

	if hasFile {
		if err := os.MkdirAll("logs", 0o755); err != nil {
			tempLogger := logger.WithConsoleWriter(writerConfig(arbormodels.LogWriterTypeConsole, ""))
			tempLogger.Warn().Err(err).Msg("failed to create logs directory")
		} else {
			logger = logger.WithFileWriter(writerConfig(arbormodels.LogWriterTypeFile, filepath.Join("logs", "auditor.log")))
		}
	}
	if hasStdout || !hasFile {
		logger = logger.WithConsoleWriter(writerConfig(arbormodels.LogWriterTypeConsole, ""))
	}

	logger = logger.WithLevelFromString(cfg.Logging.Level)

	loggerMutex.Lock()
	globalLogger = logger
	loggerMutex.Unlock()

	return logger
}

func writerConfig(writerType arbormodels.LogWriterType, filename string) arbormodels.WriterConfiguration {
	return arbormodels.WriterConfiguration{
		Type:             writerType,
		FileName:         filename,
		TimeFormat:       "15:04:05.000",
		DisableTimestamp: false,
		MaxSize:          100 * 1024 * 1024,
		MaxBackups:       3,
	}
}

// Stop flushes any buffered log writers before process shutdown.
func Stop() {
	arborcommon.Stop()
}

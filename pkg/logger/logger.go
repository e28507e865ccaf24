package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"
)

// LogFormatter renders entries as "timestamp [LEVEL] message".
type LogFormatter struct {
	TimestampFormat string
	LevelDesc       []string
}

// Format formats a single log entry.
func (f *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)
	level := f.LevelDesc[entry.Level]
	if len(entry.Data) == 0 {
		return []byte(fmt.Sprintf("%s [%s] %s\n", timestamp, level, entry.Message)), nil
	}
	fields := ""
	for k, v := range entry.Data {
		fields += fmt.Sprintf(" %s=%v", k, v)
	}
	return []byte(fmt.Sprintf("%s [%s] %s |%s\n", timestamp, level, entry.Message, fields)), nil
}

// Init configures the process logger from the environment. LOG_LEVEL selects
// the level (default INFO). When LOG_DIRECTORY is set, output is mirrored to
// hourly-rotated files that are gzip-compressed after rotation and pruned
// after LOG_FILE_MAX_AGE days.
func Init() {
	log.SetFormatter(&LogFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		LevelDesc:       []string{"PANIC", "FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"},
	})

	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "WARN":
		log.SetLevel(log.WarnLevel)
	case "ERROR":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	logDirectory := os.Getenv("LOG_DIRECTORY")
	if logDirectory == "" {
		log.SetOutput(os.Stdout)
		return
	}

	maxAge, err := strconv.Atoi(os.Getenv("LOG_FILE_MAX_AGE"))
	if err != nil || maxAge <= 0 {
		maxAge = 7 // days
	}

	if err := os.MkdirAll(logDirectory, 0755); err != nil {
		fmt.Println("Error creating log directory:", err)
		os.Exit(1)
	}

	rl, err := initializeLogRotation(logDirectory, maxAge)
	if err != nil {
		fmt.Println("Error initializing log rotation:", err)
		os.Exit(1)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rl))
}

// initializeLogRotation sets up hourly rotation with compression of the
// rotated-out file.
func initializeLogRotation(logDirectory string, maxAgeDays int) (*rotatelogs.RotateLogs, error) {
	return rotatelogs.New(
		filepath.Join(logDirectory, "heliotelligence-%Y-%m-%d-%H.log"),
		rotatelogs.WithLinkName(filepath.Join(logDirectory, "heliotelligence.log")),
		rotatelogs.WithRotationTime(time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAgeDays)*24*time.Hour),
		rotatelogs.WithHandler(rotatelogs.HandlerFunc(func(e rotatelogs.Event) {
			if e.Type() != rotatelogs.FileRotatedEventType {
				return
			}
			compressPreviousFile(e.(*rotatelogs.FileRotatedEvent).PreviousFile())
		})),
	)
}

// Info logs informational messages
func Info(message string) {
	log.Info(message)
}

// Error logs error messages
func Error(message string) {
	log.Error(message)
}

// Debug logs debug messages
func Debug(message string) {
	log.Debug(message)
}

// Warn logs warning messages
func Warn(message string) {
	log.Warn(message)
}

// Fatal logs fatal error and exits
func Fatal(message string) {
	log.Fatal(message)
}

// Infof logs formatted informational message
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Errorf logs formatted error message
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Warnf logs formatted warning message
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Debugf logs formatted debug message
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Fatalf logs formatted fatal error and exits
func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

// WithFields logs an informational message with additional context
func WithFields(fields map[string]interface{}, message string) {
	log.WithFields(log.Fields(fields)).Info(message)
}

// compressPreviousFile compresses the previous log file
func compressPreviousFile(fileName string) {
	if fileName == "" {
		return
	}
	if err := compressLogFile(fileName, fileName+".gz"); err != nil {
		log.Warnf("failed to compress rotated log %s: %v", fileName, err)
	}
}

// compressLogFile compresses a log file to gzip format
func compressLogFile(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}
	defer f.Close()
	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat log file: %v", err)
	}
	gzf, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fi.Mode())
	if err != nil {
		return fmt.Errorf("failed to open compressed log file: %v", err)
	}
	defer gzf.Close()
	gz := gzip.NewWriter(gzf)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		return err
	}
	return os.Remove(src)
}

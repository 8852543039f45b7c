package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// Levels lists the accepted level names.
var Levels = []string{"debug", "info", "warn", "error"}

// New returns a zap-backed logger writing to w at the given level. At debug
// level the V(1) build traces are shown in the development encoding.
func New(level string, w io.Writer) (logr.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	opts := crzap.Options{DestWriter: w}
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		opts.Development = true
		zapLevel = zapcore.DebugLevel
	case "info", "":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return logr.Logger{}, fmt.Errorf("unknown log level %q (expected %s)", level, strings.Join(Levels, ", "))
	}
	atomic := zap.NewAtomicLevelAt(zapLevel)
	opts.Level = &atomic
	return crzap.New(crzap.UseFlagOptions(&opts)), nil
}

package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Importing testutil silences the standard logger unless the test binary runs
// verbose. TEST_LOG_LEVEL overrides the default trace level.
func init() {
	var isVerbose bool
	for _, arg := range os.Args {
		if arg == "-test.v=true" || arg == "-test.v" {
			isVerbose = true
		}
	}

	level := logrus.TraceLevel
	if parsed, err := logrus.ParseLevel(os.Getenv("TEST_LOG_LEVEL")); err == nil {
		level = parsed
	}
	logrus.SetLevel(level)

	if !isVerbose {
		logrus.StandardLogger().Out = io.Discard
	}
}

// DisableLogging discards standard logger output until reset is called.
func DisableLogging() (reset func()) {
	originalLogOutput := logrus.StandardLogger().Out
	logrus.StandardLogger().Out = io.Discard
	return func() {
		logrus.StandardLogger().Out = originalLogOutput
	}
}

// CaptureLogs records standard logger output until reset is called.
func CaptureLogs() (logs *strings.Builder, reset func()) {
	originalLogOutput := logrus.StandardLogger().Out
	logs = &strings.Builder{}
	logrus.StandardLogger().Out = logs
	return logs, func() {
		logrus.StandardLogger().Out = originalLogOutput
	}
}

package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  = newLogger(os.Stdout, logrus.InfoLevel)
	ErrorLogger = newLogger(os.Stderr, logrus.ErrorLevel)
)

func newLogger(out *os.File, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(level)
	return l
}

// InitLogger sets the level of the info logger from a name such as "debug"
// or "warn". Unknown names keep info.
func InitLogger(level string) {
	InfoLogger = newLogger(os.Stdout, logrus.InfoLevel)
	ErrorLogger = newLogger(os.Stderr, logrus.ErrorLevel)

	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		ErrorLogger.Printf("Unknown LOG_LEVEL %q, using info", level)
		return
	}
	InfoLogger.SetLevel(parsed)
}

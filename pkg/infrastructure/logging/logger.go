package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/lotalloc/pkg/application/services/allocation"
)

// NewLogger builds a logrus logger. format is "json" or "text"; an unknown
// level falls back to info.
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	return logger
}

// LogError logs err with the module, function and context it happened in
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}

// LogNotifier writes allocation notices to a logger at the matching level
type LogNotifier struct {
	logger *logrus.Entry
}

// NewLogNotifier creates a notifier that logs through logger
func NewLogNotifier(logger *logrus.Entry) *LogNotifier {
	return &LogNotifier{logger: logger.WithField("module", "notice")}
}

func (n *LogNotifier) Notify(notice allocation.Notice) {
	entry := n.logger.WithField("order_line_id", notice.OrderLineID)
	if notice.Err != nil {
		entry = entry.WithError(notice.Err)
	}

	switch notice.Level {
	case allocation.NoticeError:
		entry.Error(notice.Message)
	case allocation.NoticeWarning:
		entry.Warn(notice.Message)
	default:
		entry.Info(notice.Message)
	}
}

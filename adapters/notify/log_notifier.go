// Package notify provides Notifier implementations for headless deployments.
package notify

import (
	"go.uber.org/zap"

	"github.com/parkview-app/walletcore/ports"
)

// LogNotifier writes user-facing notifications to the structured log. Used
// when no UI surface is attached.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(level ports.NotifyLevel, message string) {
	switch level {
	case ports.NotifyError:
		n.logger.Error(message)
	case ports.NotifyWarn:
		n.logger.Warn(message)
	default:
		n.logger.Info(message)
	}
}

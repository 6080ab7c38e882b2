package utils

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{false, true} {
		logger, err := NewLogger(debug)
		if err != nil {
			t.Fatalf("debug=%v: %v", debug, err)
		}
		if logger == nil {
			t.Fatalf("debug=%v: nil logger", debug)
		}
		if got := logger.Core().Enabled(zap.DebugLevel); got != debug {
			t.Errorf("debug=%v: debug level enabled=%v", debug, got)
		}
	}
}

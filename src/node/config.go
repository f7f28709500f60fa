package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/accord/src/common"
	"github.com/sirupsen/logrus"
)

// Config contains the parameters of a Node.
type Config struct {
	// FlowTimeout bounds the life of a flow, on both sides. A responder drops
	// the attachments it holds for a flow that is not finalized in time.
	FlowTimeout time.Duration
	Logger      *logrus.Entry
}

// NewConfig ...
func NewConfig(flowTimeout time.Duration, logger *logrus.Entry) *Config {
	return &Config{
		FlowTimeout: flowTimeout,
		Logger:      logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		FlowTimeout: 30 * time.Second,
		Logger:      logrus.NewEntry(logger),
	}
}

// TestConfig returns a Config that logs through t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return config
}

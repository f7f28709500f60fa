package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/accord")

	if c.DatabaseDir != filepath.Join("/tmp/accord", DefaultBadgerFile) {
		t.Fatalf("default db dir should follow the datadir, got %s", c.DatabaseDir)
	}
	if c.Keyfile() != filepath.Join("/tmp/accord", DefaultKeyfile) {
		t.Fatalf("unexpected keyfile %s", c.Keyfile())
	}

	c.DatabaseDir = "/var/db"
	c.SetDataDir("/tmp/other")
	if c.DatabaseDir != "/var/db" {
		t.Fatalf("explicit db dir should be kept, got %s", c.DatabaseDir)
	}
	if c.LedgerDir() != filepath.Join("/var/db", "ledger") || c.AttachmentDir() != filepath.Join("/var/db", "attachments") {
		t.Fatalf("unexpected store dirs %s %s", c.LedgerDir(), c.AttachmentDir())
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"bogus": logrus.DebugLevel,
	}
	for in, want := range cases {
		if got := LogLevel(in); got != want {
			t.Errorf("LogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFile(t *testing.T) {
	c := NewDefaultConfig()
	c.LogLevel = "info"
	c.LogFile = filepath.Join(t.TempDir(), "accord.log")

	logger := c.Logger()
	logger.Logger.Out = os.Stderr
	logger.WithField("flow", "f1").Info("Flow finalized")

	data, err := os.ReadFile(c.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"flow":"f1"`) || !strings.Contains(string(data), `"prefix":"accord"`) {
		t.Fatalf("unexpected log file content %s", data)
	}
}

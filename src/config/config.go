package config

import (
	"crypto/ecdsa"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/accord/src/common"
	"github.com/mosaicnetworks/accord/src/peers"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the party's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// databases
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the base name of the optional configuration file in
	// the datadir. Any format supported by viper is accepted.
	DefaultConfigFile = "accord"
)

// Store types.
const (
	InmemStore  = "inmem"
	BadgerStore = "badger"
)

// Default configuration values.
const (
	DefaultLogLevel    = "debug"
	DefaultBindAddr    = "127.0.0.1:1337"
	DefaultServiceAddr = "127.0.0.1:8000"
	DefaultTCPTimeout  = 1000 * time.Millisecond
	DefaultFlowTimeout = 30 * time.Second
	DefaultCacheSize   = 10000
	DefaultMaxPool     = 2
	DefaultStore       = InmemStore
)

// Config contains all the configuration properties of an accord node.
type Config struct {
	// DataDir is the top-level directory containing accord configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, is a file where logs are also written, in JSON.
	LogFile string `mapstructure:"log-file"`

	// Moniker is the organisation name of the party. It must match the
	// moniker of the party's entry in peers.json.
	Moniker string `mapstructure:"moniker"`

	// BindAddr is the local address:port where this node listens to other
	// parties.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// TCPTimeout is the timeout of RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// FlowTimeout bounds agreement flows. Propose requests use it as their
	// RPC timeout, since the counterparty fetches attachments before
	// answering.
	FlowTimeout time.Duration `mapstructure:"flow-timeout"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// Store is the type of the ledger and attachment stores: "inmem" or
	// "badger".
	Store string `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`

	// TrustedAttachments are the ids of the blacklist attachments the
	// agreement contract accepts. Empty means any well-formed blacklist.
	TrustedAttachments []string `mapstructure:"trusted-attachments"`

	// Key is the private key of the party.
	Key *ecdsa.PrivateKey

	// Peers overrides peers.json when set.
	Peers *peers.PeerSet

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		BindAddr:    DefaultBindAddr,
		ServiceAddr: DefaultServiceAddr,
		TCPTimeout:  DefaultTCPTimeout,
		FlowTimeout: DefaultFlowTimeout,
		CacheSize:   DefaultCacheSize,
		MaxPool:     DefaultMaxPool,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level accord directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// LedgerDir returns the directory of the badger ledger.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.DatabaseDir, "ledger")
}

// AttachmentDir returns the directory of the badger attachment store.
func (c *Config) AttachmentDir() string {
	return filepath.Join(c.DatabaseDir, "attachments")
}

// Logger returns a formatted logrus Entry, with prefix set to "accord". When
// LogFile is set, entries are also appended to it.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.AddHook(lfshook.NewHook(c.LogFile, &logrus.JSONFormatter{}))
		}
	}
	return c.logger.WithField("prefix", "accord")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level accord config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Accord")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Accord")
		} else {
			return filepath.Join(home, ".accord")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}

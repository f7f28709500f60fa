package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/accord/src/accord"
	"github.com/mosaicnetworks/accord/src/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts an accord node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runAccord,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runAccord(cmd *cobra.Command, args []string) error {
	engine := accord.NewAccord(&_config.Accord)

	if err := engine.Init(); err != nil {
		_config.Accord.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		_config.Accord.Logger().Info("Shutting down")
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Accord.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Accord.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Accord.LogFile, "File where logs are also written, in JSON")
	cmd.Flags().String("moniker", _config.Accord.Moniker, "Organisation name, defaults to the peers.json entry of the key")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Accord.BindAddr, "Listen IP:Port for accord node")
	cmd.Flags().StringP("advertise", "a", _config.Accord.AdvertiseAddr, "Advertise IP:Port for accord node")
	cmd.Flags().DurationP("timeout", "t", _config.Accord.TCPTimeout, "TCP Timeout")
	cmd.Flags().Duration("flow-timeout", _config.Accord.FlowTimeout, "Timeout of agreement flows")
	cmd.Flags().Int("max-pool", _config.Accord.MaxPool, "Connection pool size max")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Accord.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Accord.NoService, "Disable HTTP service")

	// Store
	cmd.Flags().String("store", _config.Accord.Store, "Store type: inmem or badger")
	cmd.Flags().String("db", _config.Accord.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Int("cache-size", _config.Accord.CacheSize, "Number of items in LRU caches")

	// Contract
	cmd.Flags().StringSlice("trusted-attachments", _config.Accord.TrustedAttachments, "Ids of the blacklists the agreement contract accepts")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Accord.SetDataDir(_config.Accord.DataDir)

	logFields := logrus.Fields{
		"accord.DataDir":            _config.Accord.DataDir,
		"accord.BindAddr":           _config.Accord.BindAddr,
		"accord.AdvertiseAddr":      _config.Accord.AdvertiseAddr,
		"accord.ServiceAddr":        _config.Accord.ServiceAddr,
		"accord.NoService":          _config.Accord.NoService,
		"accord.MaxPool":            _config.Accord.MaxPool,
		"accord.Store":              _config.Accord.Store,
		"accord.LogLevel":           _config.Accord.LogLevel,
		"accord.LogFile":            _config.Accord.LogFile,
		"accord.Moniker":            _config.Accord.Moniker,
		"accord.TCPTimeout":         _config.Accord.TCPTimeout,
		"accord.FlowTimeout":        _config.Accord.FlowTimeout,
		"accord.TrustedAttachments": _config.Accord.TrustedAttachments,
	}

	if _config.Accord.Store == config.BadgerStore {
		logFields["accord.DatabaseDir"] = _config.Accord.DatabaseDir
		logFields["accord.CacheSize"] = _config.Accord.CacheSize
	}

	_config.Accord.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/accord.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigFile) // name of config file (without extension)
	viper.AddConfigPath(_config.Accord.DataDir)   // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Accord.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Accord.Logger().Debugf("No config file found in: %s", _config.Accord.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

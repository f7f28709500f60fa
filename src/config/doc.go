// Package config defines the configuration for an accord node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package. On top of these configuration options, a node relies on a
// data directory, defined by Config.DataDir, where it expects to find a few
// additional files:
//
//	priv_key    // a plain text file containing the raw private key (cf. accord keygen).
//	peers.json  // a JSON file containing the parties this node can agree with.
//	accord.toml // (optional) configuration values, overridden by command line flags.
package config

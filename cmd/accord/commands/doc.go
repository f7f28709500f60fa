// Package commands implements the accord command line: keygen, run,
// blacklist, import, propose and version. Flags are bound to viper, which
// also reads accord.toml from the datadir.
package commands

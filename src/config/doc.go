// Package config defines the configuration for a murmur node.
//
// Regardless of how murmur is started, directly from Go code or as a standalone
// process from the command line, it uses the Config object defined in this
// package to store and forward configuration options. On top of these
// configuration options, murmur relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//  priv_key // a plain text file containing the raw private key (cf. murmur keygen).
//  murmur.toml // (optional) configuration file, also .json or .yaml.
//  badger_db/ // (optional) the database directory, when Store is set.
//  cert.pem, key.pem // (optional) TLS material for the directory server.
package config

package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/murmur/src/murmur"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a murmur node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runMurmur,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runMurmur(cmd *cobra.Command, args []string) error {
	engine := murmur.NewMurmur(&_config.Murmur)

	if err := engine.Init(); err != nil {
		_config.Murmur.Logger().Error("Cannot initialize engine:", err)
		engine.Shutdown()
		return err
	}

	//Prepare sigCh to relay SIGINT and SIGTERM system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		_config.Murmur.Logger().Debug("Received signal, shutting down")
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

	cmd.Flags().String("datadir", _config.Murmur.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Murmur.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Murmur.LogFile, "Also write logs to this file")
	cmd.Flags().StringP("user", "u", _config.Murmur.User, "Name of the user owning this node")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Murmur.BindAddr, "Listen IP:Port for murmur node")
	cmd.Flags().StringP("advertise", "a", _config.Murmur.AdvertiseAddr, "Advertise IP:Port for murmur node")
	cmd.Flags().DurationP("timeout", "t", _config.Murmur.RequestTimeout, "Timeout of requests to other nodes")

	// Directory
	cmd.Flags().String("directory-addr", _config.Murmur.DirectoryAddr, "IP:Port of the directory server")
	cmd.Flags().String("directory-realm", _config.Murmur.DirectoryRealm, "WAMP realm of the directory")
	cmd.Flags().Bool("directory-tls", _config.Murmur.DirectoryTLS, "Connect to the directory over secure websockets")
	cmd.Flags().Bool("directory-skip-verify", _config.Murmur.DirectorySkipVerify, "Accept any certificate from the directory server")
	cmd.Flags().Duration("lookup-timeout", _config.Murmur.LookupTimeout, "Timeout of directory lookups")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Murmur.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Murmur.NoService, "Disable HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Murmur.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Murmur.DatabaseDir, "Dabatabase directory")

	// Node configuration
	cmd.Flags().Duration("sync-interval", _config.Murmur.SyncInterval, "Time between anti-entropy rounds, 0 to disable")
	cmd.Flags().Int("push-concurrency", _config.Murmur.PushConcurrency, "Max number of concurrent pushes")
	cmd.Flags().Bool("verify-on-follow", _config.Murmur.VerifyOnFollow, "Verify timelines fetched when following a user")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Murmur.SetDataDir(_config.Murmur.DataDir)

	if err := _config.Murmur.Validate(); err != nil {
		return err
	}

	logFields := logrus.Fields{
		"murmur.DataDir":         _config.Murmur.DataDir,
		"murmur.User":            _config.Murmur.User,
		"murmur.BindAddr":        _config.Murmur.BindAddr,
		"murmur.AdvertiseAddr":   _config.Murmur.AdvertiseAddr,
		"murmur.ServiceAddr":     _config.Murmur.ServiceAddr,
		"murmur.NoService":       _config.Murmur.NoService,
		"murmur.DirectoryAddr":   _config.Murmur.DirectoryAddr,
		"murmur.DirectoryRealm":  _config.Murmur.DirectoryRealm,
		"murmur.DirectoryTLS":    _config.Murmur.DirectoryTLS,
		"murmur.Store":           _config.Murmur.Store,
		"murmur.LogLevel":        _config.Murmur.LogLevel,
		"murmur.SyncInterval":    _config.Murmur.SyncInterval,
		"murmur.RequestTimeout":  _config.Murmur.RequestTimeout,
		"murmur.LookupTimeout":   _config.Murmur.LookupTimeout,
		"murmur.PushConcurrency": _config.Murmur.PushConcurrency,
		"murmur.VerifyOnFollow":  _config.Murmur.VerifyOnFollow,
	}

	if _config.Murmur.Store {
		logFields["murmur.DatabaseDir"] = _config.Murmur.DatabaseDir
	}

	_config.Murmur.Logger().WithFields(logFields).Debug("RUN")

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

	// look for config file in [datadir]/murmur.toml (.json, .yaml also work)
	viper.SetConfigName("murmur")               // name of config file (without extension)
	viper.AddConfigPath(_config.Murmur.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Murmur.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Murmur.Logger().Debugf("No config file found in: %s", _config.Murmur.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

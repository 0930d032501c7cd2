package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/murmur/src/directory"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	directoryListen   = _config.Murmur.DirectoryAddr
	directoryRealm    = _config.Murmur.DirectoryRealm
	directoryCertFile string
	directoryKeyFile  string
)

//NewDirectoryCmd returns the command that starts a directory server
func NewDirectoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Run a directory server",
		RunE:  runDirectory,
	}

	cmd.Flags().StringVarP(&directoryListen, "listen", "l", directoryListen, "Listen IP:Port for the directory server")
	cmd.Flags().StringVar(&directoryRealm, "realm", directoryRealm, "WAMP realm of the directory")
	cmd.Flags().StringVar(&directoryCertFile, "cert", "", "TLS certificate file, enables wss with --key")
	cmd.Flags().StringVar(&directoryKeyFile, "key", "", "TLS private key file")

	return cmd
}

// runDirectory starts the WAMP server and waits for a SIGINT or SIGTERM
func runDirectory(cmd *cobra.Command, args []string) error {
	logger := _config.Murmur.Logger().WithField("prefix", "directory")

	server, err := directory.NewServer(
		directoryListen,
		directoryRealm,
		directoryCertFile,
		directoryKeyFile,
		logger,
	)
	if err != nil {
		return err
	}

	go server.Run()

	logger.WithFields(logrus.Fields{
		"listen": directoryListen,
		"realm":  directoryRealm,
		"tls":    directoryCertFile != "",
	}).Info("Directory server running")

	//Prepare sigCh to relay SIGINT and SIGTERM system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh

	server.Shutdown()

	return nil
}

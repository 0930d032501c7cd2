package directory

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"

	"github.com/sirupsen/logrus"
)

func clientTLSConfig(caFile string, insecureSkipVerify bool, logger *logrus.Entry) (*tls.Config, error) {
	tlscfg := &tls.Config{}

	if insecureSkipVerify {
		logger.Debug("Skip Verify. Accepting any certificate provided by directory server.")
		tlscfg.InsecureSkipVerify = true
		return tlscfg, nil
	}

	if _, err := os.Stat(caFile); os.IsNotExist(err) {
		logger.Debug("No certificate file found. Relying on platform trusted certificates.")
		return tlscfg, nil
	}

	// Load PEM-encoded certificate to trust.
	certPEM, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(certPEM) {
		return nil, errors.New("failed to import certificate to trust")
	}
	tlscfg.RootCAs = roots

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New("failed to decode certificate to trust")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}

	logger.Debugf("Trusting certificate %s with CN: %s", caFile, cert.Subject.CommonName)

	// Set ServerName to the CN of the trusted certificate so that it validates
	// even if the CN does not match the DNS name.
	tlscfg.ServerName = cert.Subject.CommonName

	return tlscfg, nil
}

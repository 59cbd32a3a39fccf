// Package security carries the one piece of certificate handling this
// module still needs: loading an operator-supplied TLS certificate/key
// pair, which the server validates at startup (its health/metrics listener
// serves plain HTTP). The original CA issuance,
// mTLS bootstrap, and AES-GCM secrets-at-rest machinery has no home here
// (see DESIGN.md) and was dropped.
package security

import (
	"crypto/tls"
	"fmt"
)

// LoadTLSKeyPair loads and validates a PEM certificate/key pair from disk.
func LoadTLSKeyPair(certFile, keyFile string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("security: load TLS key pair: %w", err)
	}
	return cert, nil
}

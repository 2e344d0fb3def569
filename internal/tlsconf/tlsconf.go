// Package tlsconf derives matching TLS credentials from a shared passphrase.
//
// The private key is derived deterministically with HKDF, so every holder
// of the passphrase ends up with the same key pair. The certificate itself
// is generated fresh; clients verify the server's public key rather than
// the certificate chain. A wrong passphrase yields a different key and the
// handshake fails.
//
// Key derivation:
//
//	HKDF-SHA256(ikm=passphrase, salt="handoff-tls-v1", info="private-key")
//	-> 64 bytes -> reduced into [1, N-1] -> ECDSA P-256 key
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc/credentials"
)

// DefaultPassphrase is used when no token is configured.
const DefaultPassphrase = "handoff"

const serverName = "handoff"

// ErrKeyMismatch is returned by the client verifier when the server's key
// was derived from a different passphrase.
var ErrKeyMismatch = errors.New("tlsconf: server public key does not match passphrase")

// Config holds both sides of the TLS setup for one passphrase.
type Config struct {
	// Server is used with tls.NewListener. NextProtos lets ALPN pick h2 for
	// gRPC and http/1.1 for the JSON gateway on the same listener.
	Server *tls.Config
	// Client verifies that the server holds the derived key.
	Client *tls.Config

	publicKey []byte
}

// New derives the TLS configuration for passphrase. An empty passphrase
// uses DefaultPassphrase.
func New(passphrase string) (*Config, error) {
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}
	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: derive key: %w", err)
	}
	cert, err := selfSigned(key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: cert: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: marshal public key: %w", err)
	}

	c := &Config{publicKey: pub}
	c.Server = &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2", "http/1.1"},
		MinVersion:   tls.VersionTLS13,
	}
	c.Client = &tls.Config{
		InsecureSkipVerify:    true, //nolint:gosec // the public key is checked in verify
		ServerName:            serverName,
		MinVersion:            tls.VersionTLS13,
		VerifyPeerCertificate: c.verify,
	}
	return c, nil
}

// ClientCredentials returns gRPC transport credentials for dialing a server
// that shares the passphrase.
func (c *Config) ClientCredentials() credentials.TransportCredentials {
	return credentials.NewTLS(c.Client)
}

// Fingerprint returns a short hex digest of the derived public key, for logs.
func (c *Config) Fingerprint() string {
	sum := sha256.Sum256(c.publicKey)
	return hex.EncodeToString(sum[:8])
}

func (c *Config) verify(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return errors.New("tlsconf: server presented no certificate")
	}
	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("tlsconf: parse server cert: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return fmt.Errorf("tlsconf: marshal server public key: %w", err)
	}
	if !bytes.Equal(pub, c.publicKey) {
		return ErrKeyMismatch
	}
	return nil
}

func deriveKey(passphrase string) (*ecdsa.PrivateKey, error) {
	r := hkdf.New(sha256.New, []byte(passphrase), []byte("handoff-tls-v1"), []byte("private-key"))
	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("hkdf read: %w", err)
	}

	curve := elliptic.P256()
	n := curve.Params().N
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, new(big.Int).Sub(n, big.NewInt(1)))
	k.Add(k, big.NewInt(1))

	key := &ecdsa.PrivateKey{D: k}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(k.Bytes())
	return key, nil
}

func selfSigned(key *ecdsa.PrivateKey) (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: serverName},
		DNSNames:              []string{serverName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(100 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

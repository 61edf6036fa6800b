// Package auth guards the tracker API with static API tokens and, when a client
// CA is configured, verified client certificates.
package auth

import (
	"crypto/subtle"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rossigee/job-application-tracker/pkg/types"
	"github.com/sirupsen/logrus"
)

// DevToken is accepted when no token file exists
const DevToken = "dev-token-12345"

// Validator handles authentication validation
type Validator struct {
	clientCAs      *x509.CertPool
	clientCALoaded bool
	apiTokens      map[string]bool
}

// NewValidator loads tokens from tokenFile and client CAs from caCertPath.
// Missing files fall back to development defaults.
func NewValidator(tokenFile, caCertPath string) (*Validator, error) {
	validator := &Validator{
		clientCAs: x509.NewCertPool(),
		apiTokens: make(map[string]bool),
	}

	if err := validator.loadClientCAs(caCertPath); err != nil {
		return nil, fmt.Errorf("failed to load client CAs: %w", err)
	}

	if err := validator.loadAPITokens(tokenFile); err != nil {
		return nil, fmt.Errorf("failed to load API tokens: %w", err)
	}

	return validator, nil
}

// loadClientCAs loads client certificate authorities
func (v *Validator) loadClientCAs(caCertPath string) error {
	if caCertPath == "" {
		return nil
	}

	if _, err := os.Stat(caCertPath); os.IsNotExist(err) {
		logrus.WithField("path", caCertPath).Debug("Client CA not found, client certificates disabled")
		v.clientCALoaded = false
		return nil
	}

	caCert, err := os.ReadFile(caCertPath) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return fmt.Errorf("failed to read CA cert: %w", err)
	}

	if !v.clientCAs.AppendCertsFromPEM(caCert) {
		return fmt.Errorf("failed to parse CA cert")
	}

	v.clientCALoaded = true
	return nil
}

// loadAPITokens loads one token per line; blank lines and # comments are skipped
func (v *Validator) loadAPITokens(tokenFile string) error {
	if tokenFile == "" {
		v.apiTokens[DevToken] = true
		return nil
	}

	if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
		logrus.WithField("path", tokenFile).Warn("API token file not found, accepting the development token")
		v.apiTokens[DevToken] = true
		return nil
	}

	content, err := os.ReadFile(tokenFile) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return fmt.Errorf("failed to read API tokens: %w", err)
	}

	for _, line := range strings.Split(string(content), "\n") {
		token := strings.TrimSpace(line)
		if token != "" && !strings.HasPrefix(token, "#") {
			v.apiTokens[token] = true
		}
	}

	return nil
}

// Middleware returns Gin middleware for authentication
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v.validateAPIToken(c) {
			c.Next()
			return
		}

		// The TLS handshake already verified the chain against clientCAs.
		if v.clientCALoaded && c.Request.TLS != nil && len(c.Request.TLS.VerifiedChains) > 0 {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(401, types.ErrorResponse{
			Error:   "authentication required",
			Message: "provide valid API token or client certificate",
			Code:    401,
		})
	}
}

// validateAPIToken validates API token from Authorization or X-API-Token headers
func (v *Validator) validateAPIToken(c *gin.Context) bool {
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && token != "" {
		return v.known(token)
	}

	if token := c.GetHeader("X-API-Token"); token != "" {
		return v.known(token)
	}

	return false
}

func (v *Validator) known(token string) bool {
	match := 0
	for candidate := range v.apiTokens {
		match |= subtle.ConstantTimeCompare([]byte(candidate), []byte(token))
	}
	return match == 1
}

// TLSConfig returns the server TLS settings. Client certificates are requested
// and verified only when a client CA was loaded.
func (v *Validator) TLSConfig() *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if v.clientCALoaded {
		cfg.ClientCAs = v.clientCAs
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return cfg
}

// IsClientCALoaded returns whether client CA certificates were loaded
func (v *Validator) IsClientCALoaded() bool {
	return v.clientCALoaded
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/loykin/recipebook/internal/config"
	rbtls "github.com/loykin/recipebook/internal/tls"
)

// NewServer builds an http.Server for handler on cfg.Listen, with TLS
// configured when cfg.TLS is enabled. It does not start listening.
func NewServer(cfg config.ServerConfig, handler http.Handler) (*http.Server, error) {
	tlsCfg, err := rbtls.SetupTLS(cfg.TLS)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}

// ListenAndServe runs srv until it is shut down, over HTTPS when a TLS
// config is set. http.ErrServerClosed is not reported as an error.
func ListenAndServe(srv *http.Server) error {
	var err error
	if srv.TLSConfig != nil {
		// certificates come from TLSConfig.GetCertificate
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/golang-auth/go-gssapi-acceptor"
	ghttp "github.com/golang-auth/go-gssapi-acceptor/http"
	"github.com/golang-auth/go-gssapi-acceptor/internal/config"
	"github.com/golang-auth/go-gssapi-acceptor/internal/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and authenticate every request with SPNEGO.

Examples:
  # Serve with the default keytab on :8080
  negotiate-server serve

  # Use a specific keytab and service principal
  negotiate-server serve --keytab /srv/http.keytab --principal HTTP/web.example.com

  # Debug logging through the environment
  NEGOTIATE_LOGGING_LEVEL=debug negotiate-server serve`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck

	mech, cred, release, err := newBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("loading acceptor credential: %w", err)
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn("credential release failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, newServer(cfg, log, mech, cred), cfg, log)
}

// newServer wires the Negotiate handler in front of the identity echo handler.
func newServer(cfg *config.Config, log *slog.Logger, mech acceptor.Mechanism, cred acceptor.Credential) *http.Server {
	ctxOpts := []acceptor.Option{acceptor.WithAuthorizationAttribute(cfg.Attribute)}
	if cfg.AttributePaging {
		ctxOpts = append(ctxOpts, acceptor.WithAttributePaging())
	}

	h := ghttp.NewHandler(mech, cred, http.HandlerFunc(whoami),
		ghttp.WithLogger(log),
		ghttp.WithContextOptions(ctxOpts...),
		ghttp.WithPendingTimeout(cfg.PendingTimeout))

	return ghttp.ServerWithStashConn(&http.Server{
		Addr:     cfg.Listen,
		Handler:  h,
		ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	})
}

func serve(ctx context.Context, srv *http.Server, cfg *config.Config, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "mechanism", cfg.Mechanism)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// whoamiResponse is the body returned to authenticated clients.
type whoamiResponse struct {
	Principal                  string   `json:"principal"`
	Flags                      []string `json:"flags"`
	ExpiresAt                  string   `json:"expires_at,omitempty"`
	AuthorizationDataLength    int      `json:"authorization_data_length"`
	AuthorizationValues        int      `json:"authorization_values"`
	AuthorizationAuthenticated bool     `json:"authorization_authenticated"`
}

func whoami(w http.ResponseWriter, r *http.Request) {
	in, ok := ghttp.GetInitiatorName(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id := in.Identity
	resp := whoamiResponse{
		Principal:                  in.PrincipalName,
		Flags:                      []string{},
		AuthorizationDataLength:    len(id.AuthorizationData),
		AuthorizationValues:        len(id.AuthorizationValues),
		AuthorizationAuthenticated: id.AuthorizationAuthenticated,
	}
	for _, f := range acceptor.FlagList(id.Flags) {
		resp.Flags = append(resp.Flags, f.String())
	}
	switch id.ExpiresAt.Status {
	case acceptor.GssLifetimeAvailable:
		resp.ExpiresAt = id.ExpiresAt.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
	case acceptor.GssLifetimeIndefinite:
		resp.ExpiresAt = "indefinite"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

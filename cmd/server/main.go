package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/inboxpilot/inboxpilot/auth"
	"github.com/inboxpilot/inboxpilot/auth/authflow"
	"github.com/inboxpilot/inboxpilot/gmail"
	"github.com/inboxpilot/inboxpilot/internal/config"
	"github.com/inboxpilot/inboxpilot/llm"
	"github.com/inboxpilot/inboxpilot/server"
	"github.com/inboxpilot/inboxpilot/sessions/sqliterepo"
)

const googleIssuer = "https://accounts.google.com"

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg := config.MustLoad()
	configureLogging(cfg.Env)
	displayAppname(cfg.AppName)

	repo, err := sqliterepo.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer repo.Close()

	flows := authflow.NewStore(cfg.FlowTTL)
	defer flows.Stop()

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		Scopes:       auth.Scopes,
		Endpoint:     google.Endpoint,
	}

	// ID token verification is best-effort at startup: without provider
	// discovery the auth service falls back to unverified claims.
	var verifier auth.IDTokenVerifier
	if provider, err := oidc.NewProvider(context.Background(), googleIssuer); err != nil {
		log.Warn().Err(err).Msg("oidc discovery failed, id tokens will not be verified")
	} else {
		verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Google.ClientID})
	}

	srv := server.New(cfg, server.Deps{
		Sessions:    repo,
		Auth:        auth.NewService(oauthCfg, repo, flows, verifier),
		Credentials: auth.NewCredentialManager(repo, auth.OAuthRefresher{Config: oauthCfg}),
		Mailboxes:   gmail.ClientFactory{},
		Generator:   llm.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model),
	})

	stopSweep := startSessionSweep(repo, cfg.SweepInterval)
	defer stopSweep()

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func configureLogging(env string) {
	if env == "local" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// startSessionSweep purges expired sessions with no refresh token on a
// fixed interval. Returns a stop function.
func startSessionSweep(repo *sqliterepo.Repo, interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := repo.DeleteExpired(context.Background(), time.Now().UTC()); err != nil {
					log.Error().Err(err).Msg("sweeping expired sessions")
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

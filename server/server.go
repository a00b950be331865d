// Package server is the HTTP surface of the email assistant: OAuth
// login, session introspection, mailbox operations and the
// conversational endpoint.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/inboxpilot/inboxpilot/auth"
	"github.com/inboxpilot/inboxpilot/chatbot"
	"github.com/inboxpilot/inboxpilot/gmail"
	"github.com/inboxpilot/inboxpilot/internal/config"
	"github.com/inboxpilot/inboxpilot/llm"
	"github.com/inboxpilot/inboxpilot/sessions"
)

// Deps are the collaborators the server dispatches into. Everything is
// behind an interface or small struct so handlers can be tested with
// fakes.
type Deps struct {
	Sessions    sessions.Repo
	Auth        *auth.Service
	Credentials *auth.CredentialManager
	Mailboxes   gmail.Opener
	Generator   llm.Generator
}

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string

	config     *config.Config
	repo       sessions.Repo
	auth       *auth.Service
	creds      *auth.CredentialManager
	mailboxes  gmail.Opener
	gen        llm.Generator
	resolver   *chatbot.Resolver
	dispatcher *chatbot.Dispatcher

	origins config.AllowedOrigins

	// fetchUserInfo is swappable in tests.
	fetchUserInfo func(ctx context.Context, cred *auth.Credential) (*auth.UserInfo, error)
}

func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		env:           cfg.Env,
		mux:           http.NewServeMux(),
		config:        cfg,
		repo:          deps.Sessions,
		auth:          deps.Auth,
		creds:         deps.Credentials,
		mailboxes:     deps.Mailboxes,
		gen:           deps.Generator,
		resolver:      chatbot.NewResolver(deps.Generator),
		dispatcher:    chatbot.NewDispatcher(deps.Mailboxes, deps.Generator),
		origins:       cfg.CORS.OriginSet(),
		fetchUserInfo: auth.FetchUserInfo,
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "local" {
		return // Skip logging outside local development
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.RootHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// AUTH
	s.RegisterRouteHandler("GET "+RouteAuthGoogle, ChainMiddleware(s.GoogleAuthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthSession, ChainMiddleware(s.SessionInfoHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthUser, ChainMiddleware(s.UserInfoHandler(), s.APIMiddleware()...))

	// EMAIL
	s.RegisterRouteHandler("GET "+RouteEmailList, ChainMiddleware(s.ListEmailsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteEmailReplyGenerate, ChainMiddleware(s.GenerateRepliesHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteEmailReplySend, ChainMiddleware(s.SendReplyHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteEmailDelete, ChainMiddleware(s.DeleteEmailHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteEmailSearch, ChainMiddleware(s.SearchEmailsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteEmailDigest, ChainMiddleware(s.DigestHandler(), s.APIMiddleware()...))

	// CHATBOT
	s.RegisterRouteHandler("POST "+RouteChatbotMessage, ChainMiddleware(s.ChatMessageHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteChatbotGreeting, ChainMiddleware(s.GreetingHandler(), s.APIMiddleware()...))

	// Browser preflight requests carry no method-specific pattern match,
	// so OPTIONS is routed to the CORS middleware alone.
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.preflightHandler(), s.CorsMiddleware))
}

func (s *Server) preflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

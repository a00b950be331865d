package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteRoot   = "/"
	RouteHealth = "/health"

	// Auth Routes
	RouteAuthGoogle   = "/api/auth/google"
	RouteAuthCallback = "/api/auth/callback/google"
	RouteAuthSession  = "/api/auth/session/{sessionID}"
	RouteAuthUser     = "/api/auth/user/{sessionID}"

	// Email Routes
	RouteEmailList          = "/api/email/list"
	RouteEmailReplyGenerate = "/api/email/reply/generate"
	RouteEmailReplySend     = "/api/email/reply/send"
	RouteEmailDelete        = "/api/email/delete/{emailID}"
	RouteEmailSearch        = "/api/email/search"
	RouteEmailDigest        = "/api/email/digest"

	// Chatbot Routes
	RouteChatbotMessage  = "/api/chatbot/message"
	RouteChatbotGreeting = "/api/chatbot/greeting"
)

// SessionHeader carries the caller's session ID on mailbox and chatbot
// endpoints.
const SessionHeader = "X-Session-Id"

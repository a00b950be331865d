package config

import "strings"

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	// AllowedOrigins is a comma-separated list of origins.
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
	AllowedMethods string `yaml:"allowed_methods" env:"CORS_ALLOWED_METHODS" env-default:"GET, POST, PUT, PATCH, DELETE, OPTIONS"`
	AllowedHeaders string `yaml:"allowed_headers" env:"CORS_ALLOWED_HEADERS" env-default:"Content-Type, Authorization, X-Session-Id"`
}

// AllowedOrigins is a set of origins permitted by the CORS policy.
type AllowedOrigins map[string]struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	origins := make([]string, 0, len(a))
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// OriginSet parses the comma-separated AllowedOrigins into a lookup set.
func (c CORSConfig) OriginSet() AllowedOrigins {
	set := AllowedOrigins{}
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			set[origin] = struct{}{}
		}
	}
	return set
}

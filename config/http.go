package config

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	// Addr is the listen address for the HTTP server.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the externally visible base URL for the service, used
	// when constructing absolute links (e.g. OAuth redirects).
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain scopes auth cookies. Empty means host-only cookies.
	CookieDomain string `env:"COOKIE_DOMAIN"`
}

package flow

import "time"

// Config is resolved once at construction time; the service never mutates it
// afterwards. Path templates use the :name placeholder bound to a profile
// key. Prefix describes where the handler is mounted and only affects URL
// building, not route registration.
type Config struct {
	Host           string        `env:"OAUTH_HOST" envDefault:"localhost:3000"`
	Prefix         string        `env:"OAUTH_PREFIX"`
	LoginPath      string        `env:"OAUTH_LOGIN_PATH" envDefault:"/login/:name"`
	AuthorizedPath string        `env:"OAUTH_AUTHORIZED_PATH" envDefault:"/login/:name/authorized"`
	LogoutPath     string        `env:"OAUTH_LOGOUT_PATH" envDefault:"/logout/:name"`
	RedirectTo     string        `env:"OAUTH_REDIRECT_TO" envDefault:"/"`
	CookieName     string        `env:"OAUTH_COOKIE_NAME" envDefault:"oauth_session"`
	SessionSecret  string        `env:"OAUTH_SESSION_SECRET,required"`
	CookieSecure   bool          `env:"OAUTH_COOKIE_SECURE" envDefault:"false"`
	CookieHTTPOnly bool          `env:"OAUTH_COOKIE_HTTP_ONLY" envDefault:"true"`
	// ExchangeTimeout bounds every outbound provider call so a dead token
	// endpoint cannot suspend a request indefinitely.
	ExchangeTimeout time.Duration `env:"OAUTH_EXCHANGE_TIMEOUT" envDefault:"10s"`
}

// withDefaults fills zero fields for configs built in code rather than
// loaded from the environment.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost:3000"
	}
	if c.LoginPath == "" {
		c.LoginPath = "/login/:name"
	}
	if c.AuthorizedPath == "" {
		c.AuthorizedPath = "/login/:name/authorized"
	}
	if c.LogoutPath == "" {
		c.LogoutPath = "/logout/:name"
	}
	if c.RedirectTo == "" {
		c.RedirectTo = "/"
	}
	if c.CookieName == "" {
		c.CookieName = "oauth_session"
	}
	if c.ExchangeTimeout <= 0 {
		c.ExchangeTimeout = 10 * time.Second
	}
	return c
}

package handlers

import "time"

// AccountPath identifies the namespace an operation acts on.
type AccountPath struct {
	Account string `doc:"Account namespace" example:"acme" maxLength:"48" path:"account" pattern:"^[a-z][a-z0-9_]*$"`
}

// CreateAccountRequest initializes the storage of an account.
type CreateAccountRequest struct {
	AccountPath
}

// CreateAccountResponse reports whether the account was new.
type CreateAccountResponse struct {
	Body struct {
		Account string `doc:"Account namespace"                      example:"acme" json:"account"`
		Created bool   `doc:"False when the account already existed" example:"true" json:"created"`
	}
}

// ShortenRequest is the request body for shortening a URL.
type ShortenRequest struct {
	AccountPath
	Body struct {
		LongURL   string `doc:"The URL to shorten"                      example:"https://en.wikipedia.org/wiki/URL_shortening" json:"long_url"             minLength:"1"`
		UserToken string `doc:"Caller token, defaults to a shared token" example:"team-blue"                                   json:"user_token,omitempty" required:"false"`
	}
}

// ShortURLBody describes a stored short URL.
type ShortURLBody struct {
	ShortURL  string    `doc:"The full short URL"   example:"http://localhost:8888/qr0"                    json:"short_url"`
	Code      string    `doc:"The short code"       example:"qr0"                                          json:"code"`
	LongURL   string    `doc:"The original URL"     example:"https://en.wikipedia.org/wiki/URL_shortening" json:"long_url"`
	Domain    string    `doc:"Host of the long URL" example:"en.wikipedia.org"                             json:"domain"`
	UserToken string    `doc:"Owner token"          example:"generic-user-token"                           json:"user_token"`
	CreatedAt time.Time `doc:"Creation time"                                                               json:"created_at"`
}

// ShortenResponse is the response for a shortened URL.
type ShortenResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		ShortURLBody
		Created bool `doc:"False when the URL was already registered" example:"true" json:"created"`
	}
}

// LookupRequest addresses a short URL by full URL or bare code.
type LookupRequest struct {
	AccountPath
	URL string `doc:"Short URL or bare code" example:"http://localhost:8888/qr0" query:"url"`
}

// ResolveResponse is the response for a resolved short URL.
type ResolveResponse struct {
	Body struct {
		LongURL string `doc:"The original URL" example:"https://en.wikipedia.org/wiki/URL_shortening" json:"long_url"`
	}
}

// DumpResponse exposes a stored record with its hit counter.
type DumpResponse struct {
	Body struct {
		ShortURLBody
		Hits int64 `doc:"Number of resolutions" example:"2" json:"hits"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"qr0" path:"code"`
}

// RedirectResponse is the response for redirect endpoint.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `header:"Location"`
	}
}

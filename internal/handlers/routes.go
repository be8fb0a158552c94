package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortener-go/internal/ratelimit"
)

// RegisterRoutes registers all URL shortener routes with per-endpoint rate limit configuration.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-account",
		Method:        http.MethodPost,
		Path:          "/api/v1/accounts/{account}",
		Summary:       "Create account",
		Description:   "Initializes the storage of an account. Calling it again is harmless.",
		Tags:          []string{"Accounts"},
		DefaultStatus: http.StatusOK,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 5},
				},
			},
		},
	}, urlHandler.CreateAccount)

	// Writes get stricter limits than reads.
	huma.Register(api, huma.Operation{
		OperationID: "shorten-url",
		Method:      http.MethodPut,
		Path:        "/api/v1/accounts/{account}/urls",
		Summary:     "Shorten URL",
		Description: "Returns the short URL of long_url, creating it on first use.",
		Tags:        []string{"URLs"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, urlHandler.Shorten)

	huma.Register(api, huma.Operation{
		OperationID: "resolve-url",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{account}/urls/resolve",
		Summary:     "Resolve short URL",
		Description: "Returns the long URL and counts a hit.",
		Tags:        []string{"URLs"},
	}, urlHandler.Resolve)

	huma.Register(api, huma.Operation{
		OperationID: "dump-url",
		Method:      http.MethodGet,
		Path:        "/api/v1/accounts/{account}/urls/dump",
		Summary:     "Inspect short URL",
		Description: "Returns the stored record and its hit counter without counting a hit.",
		Tags:        []string{"URLs"},
	}, urlHandler.Dump)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Description: "Redirects to the original URL associated with the short code.",
		Tags:        []string{"URLs"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, urlHandler.RedirectToURL)
}

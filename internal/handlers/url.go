package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortener-go/internal/analytics"
	"github.com/serroba/shortener-go/internal/messaging"
	"github.com/serroba/shortener-go/internal/metrics"
	"github.com/serroba/shortener-go/internal/shortener"
	"go.uber.org/zap"
)

// URLHandler serves the account and short URL operations.
type URLHandler struct {
	service          *shortener.Service
	baseURL          string
	defaultAccount   string
	recorder         metrics.Recorder
	publishShortened messaging.Publish[analytics.URLShortenedEvent]
	publishResolved  messaging.Publish[analytics.URLResolvedEvent]
	logger           *zap.Logger
	now              func() time.Time
}

// NewURLHandler creates a new URL handler. defaultAccount backs the bare
// /{code} redirect.
func NewURLHandler(
	service *shortener.Service,
	baseURL string,
	defaultAccount string,
	recorder metrics.Recorder,
	publishShortened messaging.Publish[analytics.URLShortenedEvent],
	publishResolved messaging.Publish[analytics.URLResolvedEvent],
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service:          service,
		baseURL:          baseURL,
		defaultAccount:   defaultAccount,
		recorder:         recorder,
		publishShortened: publishShortened,
		publishResolved:  publishResolved,
		logger:           logger,
		now:              time.Now,
	}
}

var errMissingURL = huma.Error400BadRequest("missing url query parameter")

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

func (h *URLHandler) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error) {
	created, err := h.service.CreateNamespace(ctx, req.Account)
	if err != nil {
		return nil, h.toHTTPError(err, "failed to create account")
	}

	if created {
		h.logger.Info("account created", zap.String("account", req.Account))
	}

	resp := &CreateAccountResponse{}
	resp.Body.Account = req.Account
	resp.Body.Created = created

	return resp, nil
}

func (h *URLHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	userToken := req.Body.UserToken
	if userToken == "" {
		userToken = shortener.DefaultUserToken
	}

	record, created, err := h.service.Shorten(ctx, req.Account, req.Body.LongURL, userToken)
	if err != nil {
		if errors.Is(err, shortener.ErrInvalidURL) {
			h.recorder.URLInvalid(req.Account, userToken)
		}

		return nil, h.toHTTPError(err, "failed to shorten url")
	}

	if created {
		h.recorder.URLCreated(req.Account, userToken)
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.URLShortenedEvent{
		Account:    req.Account,
		Code:       string(record.Code),
		LongURL:    record.LongURL,
		UserToken:  record.UserToken,
		Created:    created,
		OccurredAt: h.now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
	}

	if err = h.publishShortened(ctx, event); err != nil {
		h.logger.Error("failed to publish analytics event",
			zap.String("topic", analytics.TopicURLShortened),
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &ShortenResponse{}
	resp.Body.ShortURLBody = h.body(record)
	resp.Body.Created = created
	resp.Headers.Location = resp.Body.ShortURL

	return resp, nil
}

func (h *URLHandler) Resolve(ctx context.Context, req *LookupRequest) (*ResolveResponse, error) {
	if req.URL == "" {
		return nil, errMissingURL
	}

	record, err := h.resolve(ctx, req.Account, shortener.CodeFromURL(req.URL))
	if err != nil {
		return nil, err
	}

	resp := &ResolveResponse{}
	resp.Body.LongURL = record.LongURL

	return resp, nil
}

func (h *URLHandler) Dump(ctx context.Context, req *LookupRequest) (*DumpResponse, error) {
	if req.URL == "" {
		return nil, errMissingURL
	}

	record, audit, err := h.service.Dump(ctx, req.Account, shortener.CodeFromURL(req.URL))
	if err != nil {
		return nil, h.toHTTPError(err, "failed to dump url")
	}

	resp := &DumpResponse{}
	resp.Body.ShortURLBody = h.body(record)
	resp.Body.Hits = audit.Hits

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	record, err := h.resolve(ctx, h.defaultAccount, shortener.Code(req.Code))
	if err != nil {
		return nil, err
	}

	resp := &RedirectResponse{
		Status: http.StatusMovedPermanently,
	}
	resp.Headers.Location = record.LongURL

	return resp, nil
}

// resolve counts the hit and reports it to metrics and analytics.
func (h *URLHandler) resolve(ctx context.Context, account string, code shortener.Code) (*shortener.ShortURL, error) {
	record, err := h.service.Resolve(ctx, account, code)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			h.recorder.URLInvalid(account, shortener.DefaultUserToken)
		}

		return nil, h.toHTTPError(err, "failed to resolve url")
	}

	h.recorder.URLExpanded(account, record.UserToken)

	meta := RequestMetaFromContext(ctx)
	event := &analytics.URLResolvedEvent{
		Account:    account,
		Code:       string(record.Code),
		UserToken:  record.UserToken,
		OccurredAt: h.now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	}

	if err = h.publishResolved(ctx, event); err != nil {
		h.logger.Error("failed to publish access event",
			zap.String("topic", analytics.TopicURLResolved),
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	return record, nil
}

func (h *URLHandler) body(record *shortener.ShortURL) ShortURLBody {
	return ShortURLBody{
		ShortURL:  fmt.Sprintf("%s/%s", h.baseURL, record.Code),
		Code:      string(record.Code),
		LongURL:   record.LongURL,
		Domain:    record.Domain,
		UserToken: record.UserToken,
		CreatedAt: record.CreatedAt,
	}
}

func (h *URLHandler) toHTTPError(err error, msg string) error {
	var nsErr *shortener.NamespaceError

	switch {
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("short url not found")
	case errors.As(err, &nsErr):
		return huma.Error400BadRequest(fmt.Sprintf("account %q does not exist", nsErr.Namespace))
	case errors.Is(err, shortener.ErrInvalidURL):
		return huma.Error400BadRequest(err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))

		return huma.Error500InternalServerError(msg)
	}
}

package shortener

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CodeGenerator derives a code from a record id.
type CodeGenerator func(id int64) (string, error)

// Service implements registration, code assignment and resolution on top of a
// Repository. It holds no locks; atomicity comes from the repository.
type Service struct {
	store    Repository
	generate CodeGenerator
	now      func() time.Time
}

// NewService creates a Service.
func NewService(store Repository, generate CodeGenerator) *Service {
	return &Service{
		store:    store,
		generate: generate,
		now:      time.Now,
	}
}

// CreateNamespace provisions a namespace.
func (s *Service) CreateNamespace(ctx context.Context, ns string) (bool, error) {
	return s.store.CreateNamespace(ctx, ns)
}

// GetOrCreate returns the existing record for the key or creates it.
func (s *Service) GetOrCreate(ctx context.Context, ns, domain, userToken, longURL string) (*ShortURL, bool, error) {
	candidate := &ShortURL{
		Domain:    domain,
		UserToken: userToken,
		Hash:      HashContent(domain, userToken, longURL),
		LongURL:   longURL,
		CreatedAt: s.now().UTC(),
	}

	return s.store.GetOrCreate(ctx, ns, candidate)
}

// AssignCode stores code on record id. A code never changes once set:
// assigning the same code again succeeds, a different one fails with
// ErrCodeAssigned.
func (s *Service) AssignCode(ctx context.Context, ns string, id int64, code Code) error {
	return s.store.AssignCode(ctx, ns, id, code)
}

// Shorten registers longURL for userToken and makes sure it carries a code.
func (s *Service) Shorten(ctx context.Context, ns, longURL, userToken string) (*ShortURL, bool, error) {
	domain, err := Domain(longURL)
	if err != nil {
		return nil, false, err
	}

	if userToken == "" {
		userToken = DefaultUserToken
	}

	record, created, err := s.GetOrCreate(ctx, ns, domain, userToken, longURL)
	if err != nil {
		return nil, false, err
	}

	if record.Code != "" {
		return record, created, nil
	}

	code, err := s.generate(record.ID)
	if err != nil {
		return nil, false, fmt.Errorf("generate code for %d: %w", record.ID, err)
	}

	if err = s.AssignCode(ctx, ns, record.ID, Code(code)); err != nil {
		return nil, false, err
	}

	record.Code = Code(code)

	return record, created, nil
}

// Resolve returns the record for code and counts the hit.
func (s *Service) Resolve(ctx context.Context, ns string, code Code) (*ShortURL, error) {
	if code == "" {
		return nil, ErrNotFound
	}

	record, err := s.store.GetByCode(ctx, ns, code)
	if err != nil {
		return nil, err
	}

	if err = s.store.IncrementHits(ctx, ns, record.ID); err != nil {
		return nil, err
	}

	return record, nil
}

// Audit returns the hit counter of record id.
func (s *Service) Audit(ctx context.Context, ns string, id int64) (*Audit, error) {
	return s.store.GetAudit(ctx, ns, id)
}

// Dump returns a record and its audit without counting a hit.
func (s *Service) Dump(ctx context.Context, ns string, code Code) (*ShortURL, *Audit, error) {
	if code == "" {
		return nil, nil, ErrNotFound
	}

	record, err := s.store.GetByCode(ctx, ns, code)
	if err != nil {
		return nil, nil, err
	}

	audit, err := s.store.GetAudit(ctx, ns, record.ID)
	if err != nil {
		return nil, nil, err
	}

	return record, audit, nil
}

// Domain extracts the host of an absolute http(s) URL.
func Domain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}

	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return u.Host, nil
}

// CodeFromURL accepts either a bare code or a full short URL and returns the code.
func CodeFromURL(shortURL string) Code {
	if !strings.Contains(shortURL, "/") {
		return Code(shortURL)
	}

	u, err := url.Parse(shortURL)
	if err != nil {
		return ""
	}

	return Code(strings.TrimPrefix(u.Path, "/"))
}

package shortener

import "context"

// Repository persists ShortURL and Audit records per namespace.
//
// Implementations return a *NamespaceError when the namespace has not been
// created and ErrNotFound for missing rows.
type Repository interface {
	// CreateNamespace provisions storage for ns and reports whether it was created.
	CreateNamespace(ctx context.Context, ns string) (bool, error)

	// GetOrCreate returns the record matching (Domain, UserToken, Hash) or
	// atomically inserts candidate together with a zeroed Audit. The boolean
	// is true only for the caller whose insert won.
	GetOrCreate(ctx context.Context, ns string, candidate *ShortURL) (*ShortURL, bool, error)

	// AssignCode sets the code of record id if it has none. Re-assigning the
	// current code is a no-op; any other code yields ErrCodeAssigned.
	AssignCode(ctx context.Context, ns string, id int64, code Code) error

	// GetByCode looks a record up by its code without touching its audit.
	GetByCode(ctx context.Context, ns string, code Code) (*ShortURL, error)

	// IncrementHits atomically adds one to the audit of record id.
	IncrementHits(ctx context.Context, ns string, id int64) error

	// GetAudit returns the audit of record id.
	GetAudit(ctx context.Context, ns string, id int64) (*Audit, error)
}

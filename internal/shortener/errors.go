package shortener

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("short url not found")
	ErrNamespaceUninitialized = errors.New("namespace not initialized")
	ErrInvalidURL             = errors.New("invalid url")
	ErrCodeAssigned           = errors.New("short url already has a different code")
)

// NamespaceError reports that the storage for a namespace has not been created.
type NamespaceError struct {
	Namespace string
}

func (e *NamespaceError) Error() string {
	return fmt.Sprintf("namespace %q is not initialized", e.Namespace)
}

// Is makes errors.Is(err, ErrNamespaceUninitialized) match.
func (e *NamespaceError) Is(target error) bool {
	return target == ErrNamespaceUninitialized
}

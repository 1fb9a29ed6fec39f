package collector

import (
	"fmt"

	"github.com/qepting91/workshop-scraper/internal/domain"
)

// ProxyError is one failed attempt against one proxy. It never leaves the
// fetch layer on its own; the last one is carried by ExhaustedError.
type ProxyError struct {
	Proxy  string
	Status int // 0 on network failure
	Err    error
}

func (e *ProxyError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d", e.Proxy, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Proxy, e.Err)
}

func (e *ProxyError) Unwrap() error { return e.Err }

// ExhaustedError is returned once every proxy and attempt has failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("%v after %d attempts", domain.ErrAllProxiesExhausted, e.Attempts)
	}
	return fmt.Sprintf("%v after %d attempts: %v", domain.ErrAllProxiesExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == domain.ErrAllProxiesExhausted
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

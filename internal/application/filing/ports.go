// Package filing orchestrates the e-filing pipeline per filing subject:
// build, validate, deliver, and reconcile asynchronous responses into the
// submission lifecycle.
package filing

import (
	"context"

	"github.com/tu-usuario/filing-pro/internal/domain/entity"
)

// TransactionSource supplies the normalized transaction for a filing
// subject. Owned by the surrounding business system; the core never reads a
// persistence store for transaction data directly.
type TransactionSource interface {
	NormalizedTransaction(ctx context.Context, subjectID string) (*entity.NormalizedTransaction, error)
}

// TransportSession is one scoped connection to the remote file endpoint.
// Not safe for concurrent use; acquire per logical operation and Close on
// every exit path.
type TransportSession interface {
	Upload(dir, name string, data []byte) error
	List(dir string) ([]string, error)
	Download(dir, name string) ([]byte, error)
	Exists(dir, name string) (bool, error)
	Close() error
}

// Transport produces sessions. The concrete implementation retries and
// backs off internally; a returned error means retries are exhausted.
type Transport interface {
	Connect(ctx context.Context) (TransportSession, error)
}

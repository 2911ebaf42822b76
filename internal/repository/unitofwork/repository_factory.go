package unitofwork

import "context"

// RepositoryFactory mints a fresh unit of work per request or job.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}

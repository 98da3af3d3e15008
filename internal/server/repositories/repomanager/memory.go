package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/divvyauth/internal/dbx"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/divvyauth/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves every repository from one memory.Store.
// DBTX handles are ignored. Transaction bodies run one at a time; a failed
// body is not rolled back.
type InMemoryRepositoryManager struct {
	store *memory.Store
	txMu  sync.Mutex
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: memory.NewStore()}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Conn() dbx.DBTX {
	return nil
}

func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn dbx.TxFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, nil)
}

func (m *InMemoryRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return m.store.Users()
}

func (m *InMemoryRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return m.store.RefreshTokens()
}

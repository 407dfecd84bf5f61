package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/server/models"
)

// memStore is an in-memory AccountStore and ModelStore.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	dots     map[int64][]motion.Dot
	networks map[int64]string

	insertErr error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int64]*models.Account{},
		dots:     map[int64][]motion.Dot{},
		networks: map[int64]string{},
	}
}

func (m *memStore) InsertAccount(_ context.Context, userName, hash, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	var next int64
	for id, a := range m.accounts {
		if a.UserName == userName {
			return 0, common.ErrorAlreadyExist
		}
		next = max(next, id)
	}
	next++
	m.accounts[next] = &models.Account{ID: next, UserName: userName, PasswordHash: hash, Email: email}
	return next, nil
}

func (m *memStore) InsertAccountWithID(_ context.Context, a *models.Account) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return false, nil
	}
	cp := *a
	m.accounts[a.ID] = &cp
	return true, nil
}

func (m *memStore) GetAccountIDByUserName(_ context.Context, userName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.accounts {
		if a.UserName == userName {
			return id, nil
		}
	}
	return 0, common.ErrorNotFound
}

func (m *memStore) GetPasswordHash(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	return a.PasswordHash, nil
}

func (m *memStore) GetEmail(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	return a.Email, nil
}

func (m *memStore) DeleteAccount(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.accounts, id)
	delete(m.dots, id)
	delete(m.networks, id)
	return nil
}

func (m *memStore) ListUserNames(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, a := range m.accounts {
		out = append(out, a.UserName)
	}
	return out, nil
}

func (m *memStore) InsertDots(_ context.Context, id int64, dots []motion.Dot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dots[id] = append(m.dots[id], dots...)
	return nil
}

func (m *memStore) CountDots(_ context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dots[id]), nil
}

func (m *memStore) LoadNetwork(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.networks[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	return s, nil
}

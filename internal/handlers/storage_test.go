package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"changemgmt/db"
	"changemgmt/models"
)

// MockStorage is an in-memory StorageInterface.
type MockStorage struct {
	mu       sync.Mutex
	requests map[int]models.Request
	nextID   int
	users    map[string]*models.User
	roles    map[int][]models.Role

	getErr  error
	saveErr error
	pingErr error
	saves   int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		requests: map[int]models.Request{},
		users:    map[string]*models.User{},
		roles:    map[int][]models.Role{},
	}
}

func (m *MockStorage) Ping(context.Context) error { return m.pingErr }

// Seed stores r as-is and returns its id.
func (m *MockStorage) Seed(r models.Request) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	m.requests[r.ID] = r
	return r.ID
}

func (m *MockStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *MockStorage) Stored(id int) (models.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	return r, ok
}

func (m *MockStorage) AddUser(u *models.User, roles ...models.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = len(m.users) + 1
	m.users[u.Username] = u
	m.roles[u.ID] = roles
}

func (m *MockStorage) GetRequests(_ context.Context, f db.RequestFilter) ([]models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := []models.Request{}
	for _, r := range m.requests {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.ID != 0 && r.ID != f.ID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch f.Order {
		case db.OrderByDateDesc:
			if !a.Date.Equal(b.Date) {
				return a.Date.After(b.Date)
			}
			return a.ID > b.ID
		case db.OrderByApprovalDateDesc:
			switch {
			case a.AdminApprovalDate == nil && b.AdminApprovalDate == nil:
				return a.ID > b.ID
			case a.AdminApprovalDate == nil:
				return false
			case b.AdminApprovalDate == nil:
				return true
			case !a.AdminApprovalDate.Equal(*b.AdminApprovalDate):
				return a.AdminApprovalDate.After(*b.AdminApprovalDate)
			}
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (m *MockStorage) GetRequest(_ context.Context, f db.RequestFilter) (*models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if f.ID <= 0 {
		return nil, db.ErrNotFound
	}
	r, ok := m.requests[f.ID]
	if !ok || (f.Status != "" && r.Status != f.Status) {
		return nil, db.ErrNotFound
	}
	return &r, nil
}

func (m *MockStorage) NewUnitOfWork() db.UnitOfWork {
	return &mockUnitOfWork{store: m}
}

func (m *MockStorage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

func (m *MockStorage) GetUserRoles(_ context.Context, userID int) ([]models.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roles[userID], nil
}

type mockOp struct {
	kind    string
	request *models.Request
}

type mockUnitOfWork struct {
	store   *MockStorage
	pending []mockOp
}

func (u *mockUnitOfWork) Add(r *models.Request) { u.pending = append(u.pending, mockOp{"add", r}) }
func (u *mockUnitOfWork) Update(r *models.Request) {
	u.pending = append(u.pending, mockOp{"update", r})
}
func (u *mockUnitOfWork) Remove(r *models.Request) {
	u.pending = append(u.pending, mockOp{"remove", r})
}
func (u *mockUnitOfWork) RemoveRange(rs []models.Request) {
	for i := range rs {
		u.Remove(&rs[i])
	}
}

// Save applies every change or none of them.
func (u *mockUnitOfWork) Save(context.Context) error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, op := range u.pending {
		if op.kind == "add" {
			continue
		}
		if _, ok := s.requests[op.request.ID]; !ok {
			return fmt.Errorf("request %d: %w", op.request.ID, db.ErrNotFound)
		}
	}
	for _, op := range u.pending {
		switch op.kind {
		case "add":
			s.nextID++
			op.request.ID = s.nextID
			s.requests[op.request.ID] = *op.request
		case "update":
			s.requests[op.request.ID] = *op.request
		case "remove":
			delete(s.requests, op.request.ID)
		}
	}
	s.saves++
	u.pending = nil
	return nil
}

// Package memory provides a map-backed UsersRepository for tests and
// storage-free demo runs.
package memory

import (
	"context"
	"sync"

	"github.com/mkorobovv/trade-mirror/internal/common/domain"
)

type usersRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func NewUsersRepository() domain.UsersRepository {
	return &usersRepository{
		users: make(map[string]*domain.User),
	}
}

func (ur *usersRepository) GetAllUsers(_ context.Context) ([]*domain.User, error) {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	users := make([]*domain.User, 0, len(ur.users))
	for _, user := range ur.users {
		users = append(users, cloneUser(user))
	}

	return users, nil
}

func (ur *usersRepository) CreateUser(_ context.Context, user *domain.User) error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	ur.users[user.ID] = cloneUser(user)

	return nil
}

func (ur *usersRepository) SaveAllUsers(_ context.Context, users []*domain.User) error {
	ur.mu.Lock()
	defer ur.mu.Unlock()

	ur.users = make(map[string]*domain.User, len(users))
	for _, user := range users {
		ur.users[user.ID] = cloneUser(user)
	}

	return nil
}

func cloneUser(u *domain.User) *domain.User {
	out := *u

	out.Portfolio.Holdings = make([]domain.Holding, len(u.Portfolio.Holdings))
	copy(out.Portfolio.Holdings, u.Portfolio.Holdings)

	out.Portfolio.Transactions = make([]domain.Transaction, len(u.Portfolio.Transactions))
	copy(out.Portfolio.Transactions, u.Portfolio.Transactions)

	return &out
}

package memstore

import (
	"context"
	"sort"

	"iot-ingest-backend/internal/db"
)

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, u := range s.users {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) CreateUser(ctx context.Context, u db.User) (db.User, error) {
	const fn = "Memstore:CreateUser"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return db.User{}, conflict(fn, "record already exists")
	}
	if s.emailTaken(u.Email, "") {
		return db.User{}, conflict(fn, "email already registered")
	}
	u.CreatedAt = s.now()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return db.User{}, notFound("Memstore:GetUser", "user not found")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, notFound("Memstore:GetUserByEmail", "user not found")
}

func (s *Store) ListUsers(ctx context.Context) ([]db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]db.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id, name, email string) (db.User, error) {
	const fn = "Memstore:UpdateUser"
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return db.User{}, notFound(fn, "user not found")
	}
	if s.emailTaken(email, id) {
		return db.User{}, conflict(fn, "email already registered")
	}
	u.Name, u.Email = name, email
	s.users[id] = u
	return u, nil
}

// DeleteUser releases the user's devices the same way the database's
// ON DELETE SET NULL does.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	const fn = "Memstore:DeleteUser"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound(fn, "user not found")
	}
	for deviceID, d := range s.devices {
		if d.UserID != nil && *d.UserID == id {
			d.UserID = nil
			s.devices[deviceID] = d
		}
	}
	delete(s.users, id)
	return nil
}

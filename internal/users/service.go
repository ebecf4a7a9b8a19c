// Package users manages the people allowed to sign in, stored in
// users/users.csv.
package users

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/id"
	"github.com/rojas-cambio/cambio/internal/model"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("user is disabled")
	ErrLastAdmin          = errors.New("at least one active administrator is required")
	ErrInvalidInput       = errors.New("invalid user")
)

const (
	usersDir  = "users"
	usersFile = "users.csv"
)

// Auditor records user actions.
type Auditor interface {
	Record(entries ...activity.Entry) error
}

// NewUser is the input for Add.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// Service provides lookup and administration of users. Every change is
// written back to users.csv.
type Service struct {
	root  string
	audit Auditor
	cost  int
	now   func() time.Time

	mu    sync.RWMutex
	users []model.User
}

// NewService creates a Service over users already loaded. root may be
// empty, in which case changes are kept in memory only.
func NewService(root string, users []model.User, audit Auditor) *Service {
	return &Service{
		root:  root,
		audit: audit,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
		users: users,
	}
}

// Load reads users/users.csv from a data directory. A missing file yields
// an empty Service.
func Load(root string, audit Auditor) (*Service, error) {
	f, err := os.Open(filepath.Join(root, usersDir, usersFile))
	if errors.Is(err, os.ErrNotExist) {
		return NewService(root, nil, audit), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening users: %w", err)
	}
	defer f.Close()

	users, err := ReadUsers(f)
	if err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	return NewService(root, users, audit), nil
}

// All returns every user ordered by name.
func (s *Service) All() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.User(nil), s.users...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByRole returns the users holding role.
func (s *Service) ByRole(role model.Role) []model.User {
	var out []model.User
	for _, u := range s.All() {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

// Get returns a user by ID.
func (s *Service) Get(userID string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(userID)
	if i < 0 {
		return model.User{}, false
	}
	return s.users[i], true
}

// ByEmail returns a user by email, case-insensitively.
func (s *Service) ByEmail(email string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, true
		}
	}
	return model.User{}, false
}

// Add creates an active user. actorID is who performed the change.
func (s *Service) Add(actorID string, in NewUser) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return model.User{}, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if !strings.Contains(in.Email, "@") {
		return model.User{}, fmt.Errorf("%w: invalid email %q", ErrInvalidInput, in.Email)
	}
	if in.Role == "" {
		in.Role = model.RoleOperator
	}
	if _, err := model.ParseRole(string(in.Role)); err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) {
			return model.User{}, fmt.Errorf("%s: %w", in.Email, ErrDuplicateEmail)
		}
	}
	u := model.User{
		ID:           id.New(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		Active:       true,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}
	next := append(append([]model.User(nil), s.users...), u)
	if err := s.commitLocked(next); err != nil {
		return model.User{}, err
	}
	if actorID == "" {
		actorID = u.ID
	}
	s.record(actorID, activity.ActionUserCreate, fmt.Sprintf("%s %s", u.Role, u.Email), u.ID)
	return u, nil
}

// SetActive enables or disables a user.
func (s *Service) SetActive(actorID, userID string, active bool) (model.User, error) {
	return s.update(actorID, userID, func(u *model.User) string {
		u.Active = active
		if active {
			return "enabled " + u.Email
		}
		return "disabled " + u.Email
	})
}

// SetRole changes a user's role.
func (s *Service) SetRole(actorID, userID string, role model.Role) (model.User, error) {
	if _, err := model.ParseRole(string(role)); err != nil {
		return model.User{}, err
	}
	return s.update(actorID, userID, func(u *model.User) string {
		u.Role = role
		return fmt.Sprintf("role of %s set to %s", u.Email, role)
	})
}

// SetPassword replaces a user's password.
func (s *Service) SetPassword(actorID, userID, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = s.update(actorID, userID, func(u *model.User) string {
		u.PasswordHash = string(hash)
		return "password changed for " + u.Email
	})
	return err
}

// Delete removes a user.
func (s *Service) Delete(actorID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(userID)
	if i < 0 {
		return fmt.Errorf("%s: %w", userID, ErrNotFound)
	}
	gone := s.users[i]
	next := append(append([]model.User(nil), s.users[:i]...), s.users[i+1:]...)
	if !hasActiveAdmin(next) && hasActiveAdmin(s.users) {
		return ErrLastAdmin
	}
	if err := s.commitLocked(next); err != nil {
		return err
	}
	s.record(actorID, activity.ActionUserDelete, "deleted "+gone.Email, gone.ID)
	return nil
}

// Authenticate checks an email and password. Disabled users cannot sign
// in even with the right password.
func (s *Service) Authenticate(email, password string) (model.User, error) {
	u, ok := s.ByEmail(email)
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	if !u.Active {
		return model.User{}, ErrInactive
	}
	s.record(u.ID, activity.ActionLogin, u.Email, u.ID)
	return u, nil
}

// Save writes users/users.csv under root.
func (s *Service) Save(root string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return writeFile(root, s.users)
}

func (s *Service) update(actorID, userID string, change func(*model.User) string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(userID)
	if i < 0 {
		return model.User{}, fmt.Errorf("%s: %w", userID, ErrNotFound)
	}
	next := append([]model.User(nil), s.users...)
	details := change(&next[i])
	if !hasActiveAdmin(next) && hasActiveAdmin(s.users) {
		return model.User{}, ErrLastAdmin
	}
	if err := s.commitLocked(next); err != nil {
		return model.User{}, err
	}
	s.record(actorID, activity.ActionUserUpdate, details, userID)
	return next[i], nil
}

func (s *Service) commitLocked(next []model.User) error {
	if s.root != "" {
		if err := writeFile(s.root, next); err != nil {
			return err
		}
	}
	s.users = next
	return nil
}

func (s *Service) indexLocked(userID string) int {
	for i, u := range s.users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

func (s *Service) record(actorID, action, details, ref string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(activity.Entry{UserID: actorID, Action: action, Details: details, Ref: ref})
}

func hasActiveAdmin(users []model.User) bool {
	for _, u := range users {
		if u.Active && u.Role == model.RoleAdmin {
			return true
		}
	}
	return false
}

func writeFile(root string, users []model.User) error {
	dir := filepath.Join(root, usersDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating users dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, usersFile))
	if err != nil {
		return fmt.Errorf("creating users file: %w", err)
	}
	defer f.Close()

	if err := WriteUsers(f, users); err != nil {
		return fmt.Errorf("writing users: %w", err)
	}
	return nil
}

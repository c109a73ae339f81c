package repository

import (
	"context"
	"fmt"
	"sync"

	"user-service/internal/domain"
)

// MemoryUserRepository keeps aggregates in process. Stored values are deep
// copies, so callers never share state with the store.
type MemoryUserRepository struct {
	mu sync.Mutex

	users      map[int]*domain.User
	byUsername map[string]int
	credOwner  map[int]int

	nextUser, nextAddress, nextCredential, nextToken int
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:      make(map[int]*domain.User),
		byUsername: make(map[string]int),
		credOwner:  make(map[int]int),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	if user == nil {
		return ErrNilEntity
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c := user.Credential
	if c != nil && c.Username != nil {
		if _, taken := r.byUsername[*c.Username]; taken {
			return fmt.Errorf("username %q: %w", *c.Username, ErrConflict)
		}
	}

	r.nextUser++
	userID := r.nextUser
	user.UserID = &userID
	for _, a := range user.Addresses {
		if a != nil {
			r.nextAddress++
			id := r.nextAddress
			a.AddressID = &id
		}
	}
	if c != nil {
		r.nextCredential++
		credID := r.nextCredential
		c.CredentialID = &credID
		for _, t := range c.VerificationTokens {
			if t != nil {
				r.nextToken++
				id := r.nextToken
				t.VerificationTokenID = &id
			}
		}
		r.credOwner[credID] = userID
		if c.Username != nil {
			r.byUsername[*c.Username] = userID
		}
	}

	r.users[userID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	id, ok := r.byUsername[username]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("username %q: %w", username, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryUserRepository) AddAddress(_ context.Context, userID int, address *domain.Address) error {
	if address == nil {
		return ErrNilEntity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	r.nextAddress++
	id := r.nextAddress
	address.AddressID = &id

	stored := cloneAddress(address)
	stored.User = u
	u.Addresses = append(u.Addresses, stored)
	return nil
}

func (r *MemoryUserRepository) UpdateCredential(_ context.Context, credential *domain.Credential) error {
	if credential == nil {
		return ErrNilEntity
	}
	if credential.CredentialID == nil {
		return ErrMissingID
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.storedCredential(*credential.CredentialID)
	if err != nil {
		return err
	}
	if credential.Username != nil {
		if owner, taken := r.byUsername[*credential.Username]; taken && owner != r.credOwner[*credential.CredentialID] {
			return fmt.Errorf("username %q: %w", *credential.Username, ErrConflict)
		}
	}
	if stored.Username != nil {
		delete(r.byUsername, *stored.Username)
	}
	copyCredentialScalars(stored, credential)
	if stored.Username != nil {
		r.byUsername[*stored.Username] = r.credOwner[*credential.CredentialID]
	}
	return nil
}

func (r *MemoryUserRepository) AddVerificationToken(_ context.Context, credentialID int, token *domain.VerificationToken) error {
	if token == nil {
		return ErrNilEntity
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.storedCredential(credentialID)
	if err != nil {
		return err
	}
	r.nextToken++
	id := r.nextToken
	token.VerificationTokenID = &id

	t := cloneToken(token)
	t.Credential = stored
	stored.VerificationTokens = append(stored.VerificationTokens, t)
	return nil
}

// storedCredential must be called with r.mu held.
func (r *MemoryUserRepository) storedCredential(credentialID int) (*domain.Credential, error) {
	owner, ok := r.credOwner[credentialID]
	if !ok {
		return nil, fmt.Errorf("credential %d: %w", credentialID, ErrNotFound)
	}
	u := r.users[owner]
	if u == nil || u.Credential == nil {
		return nil, fmt.Errorf("credential %d: %w", credentialID, ErrNotFound)
	}
	return u.Credential, nil
}

package repository

import (
	"context"
	"errors"

	"user-service/internal/domain"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrMissingID = errors.New("entity has no id")
	ErrNilEntity = errors.New("nil entity")
)

// UserRepository stores the User aggregate: the user row, its addresses, its
// credential and the credential's verification tokens. Create assigns ids to
// every entity of the aggregate, replacing any ids already set. Loaded
// aggregates come back with their back-references linked.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	AddAddress(ctx context.Context, userID int, address *domain.Address) error
	// UpdateCredential rewrites the scalar fields of an existing credential.
	UpdateCredential(ctx context.Context, credential *domain.Credential) error
	AddVerificationToken(ctx context.Context, credentialID int, token *domain.VerificationToken) error
}

// linkAggregate points every owned entity back at its owner.
func linkAggregate(u *domain.User) {
	if u == nil {
		return
	}
	for _, a := range u.Addresses {
		if a != nil {
			a.User = u
		}
	}
	if c := u.Credential; c != nil {
		c.User = u
		for _, t := range c.VerificationTokens {
			if t != nil {
				t.Credential = c
			}
		}
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAddress(a *domain.Address) *domain.Address {
	return domain.NewAddress(
		clonePtr(a.AddressID),
		clonePtr(a.FullAddress),
		clonePtr(a.PostalCode),
		clonePtr(a.City),
		nil,
	)
}

func cloneToken(t *domain.VerificationToken) *domain.VerificationToken {
	return domain.NewVerificationToken(
		clonePtr(t.VerificationTokenID),
		clonePtr(t.Token),
		clonePtr(t.ExpireDate),
		nil,
	)
}

// copyCredentialScalars overwrites the identity fields of dst with src's.
func copyCredentialScalars(dst, src *domain.Credential) {
	dst.Username = clonePtr(src.Username)
	dst.Password = clonePtr(src.Password)
	dst.RoleBasedAuthority = src.RoleBasedAuthority
	dst.IsEnabled = clonePtr(src.IsEnabled)
	dst.IsAccountNonExpired = clonePtr(src.IsAccountNonExpired)
	dst.IsAccountNonLocked = clonePtr(src.IsAccountNonLocked)
	dst.IsCredentialsNonExpired = clonePtr(src.IsCredentialsNonExpired)
}

// cloneUser deep-copies the aggregate so stored state cannot be mutated
// through a returned pointer. Back-references are relinked on the copy.
func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	out := domain.NewUser(
		clonePtr(u.UserID),
		clonePtr(u.FirstName),
		clonePtr(u.LastName),
		clonePtr(u.ImageURL),
		clonePtr(u.Email),
		clonePtr(u.Phone),
		nil,
		nil,
	)
	if u.Addresses != nil {
		out.Addresses = make([]*domain.Address, 0, len(u.Addresses))
		for _, a := range u.Addresses {
			if a != nil {
				out.Addresses = append(out.Addresses, cloneAddress(a))
			}
		}
	}
	if c := u.Credential; c != nil {
		cc := &domain.Credential{CredentialID: clonePtr(c.CredentialID)}
		copyCredentialScalars(cc, c)
		if c.VerificationTokens != nil {
			cc.VerificationTokens = make([]*domain.VerificationToken, 0, len(c.VerificationTokens))
			for _, t := range c.VerificationTokens {
				if t != nil {
					cc.VerificationTokens = append(cc.VerificationTokens, cloneToken(t))
				}
			}
		}
		out.Credential = cc
	}
	linkAggregate(out)
	return out
}

// applyIDs copies the ids assigned on a stored copy back onto the caller's
// aggregate. Nil entries were skipped by cloneUser and are skipped here too.
func applyIDs(dst, src *domain.User) {
	dst.UserID = clonePtr(src.UserID)
	i := 0
	for _, a := range dst.Addresses {
		if a == nil {
			continue
		}
		a.AddressID = clonePtr(src.Addresses[i].AddressID)
		i++
	}
	if dst.Credential == nil || src.Credential == nil {
		return
	}
	dst.Credential.CredentialID = clonePtr(src.Credential.CredentialID)
	i = 0
	for _, t := range dst.Credential.VerificationTokens {
		if t == nil {
			continue
		}
		t.VerificationTokenID = clonePtr(src.Credential.VerificationTokens[i].VerificationTokenID)
		i++
	}
}

func nullableRole(r domain.RoleBasedAuthority) *string {
	if r == "" {
		return nil
	}
	s := string(r)
	return &s
}

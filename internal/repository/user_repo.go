package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-service/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PgUserRepository implements UserRepository on top of pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return ErrNilEntity
	}

	// ids are applied only once the transaction commits
	var assign []func()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
			INSERT INTO users (first_name, last_name, image_url, email, phone)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING user_id
		`
		var userID int
		if err := tx.QueryRow(ctx, query,
			user.FirstName,
			user.LastName,
			user.ImageURL,
			user.Email,
			user.Phone,
		).Scan(&userID); err != nil {
			return err
		}
		assign = append(assign, func() { user.UserID = &userID })

		for _, a := range user.Addresses {
			if a == nil {
				continue
			}
			id, err := insertAddress(ctx, tx, userID, a)
			if err != nil {
				return err
			}
			assign = append(assign, func() { a.AddressID = &id })
		}

		c := user.Credential
		if c == nil {
			return nil
		}
		credID, err := insertCredential(ctx, tx, userID, c)
		if err != nil {
			return err
		}
		assign = append(assign, func() { c.CredentialID = &credID })

		for _, t := range c.VerificationTokens {
			if t == nil {
				continue
			}
			id, err := insertToken(ctx, tx, credID, t)
			if err != nil {
				return err
			}
			assign = append(assign, func() { t.VerificationTokenID = &id })
		}
		return nil
	})
	if err != nil {
		return mapPgError("create user", err)
	}
	for _, fn := range assign {
		fn()
	}
	return nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	const query = `
		SELECT user_id, first_name, last_name, image_url, email, phone
		FROM users
		WHERE user_id = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.UserID,
		&u.FirstName,
		&u.LastName,
		&u.ImageURL,
		&u.Email,
		&u.Phone,
	)
	if err != nil {
		return nil, mapPgError("get user", err)
	}

	if u.Addresses, err = r.addresses(ctx, id); err != nil {
		return nil, err
	}
	if u.Credential, err = r.credential(ctx, id); err != nil {
		return nil, err
	}
	linkAggregate(&u)
	return &u, nil
}

func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT user_id FROM credentials WHERE username = $1`
	var userID *int
	if err := r.pool.QueryRow(ctx, query, username).Scan(&userID); err != nil {
		return nil, mapPgError("get user by username", err)
	}
	if userID == nil {
		return nil, fmt.Errorf("credential %q has no user: %w", username, ErrNotFound)
	}
	return r.GetByID(ctx, *userID)
}

func (r *PgUserRepository) AddAddress(ctx context.Context, userID int, address *domain.Address) error {
	if address == nil {
		return ErrNilEntity
	}
	id, err := insertAddress(ctx, r.pool, userID, address)
	if err != nil {
		return mapPgError("add address", err)
	}
	address.AddressID = &id
	return nil
}

func (r *PgUserRepository) UpdateCredential(ctx context.Context, credential *domain.Credential) error {
	if credential == nil {
		return ErrNilEntity
	}
	if credential.CredentialID == nil {
		return ErrMissingID
	}
	const query = `
		UPDATE credentials
		SET username = $2,
			password = $3,
			role = $4,
			is_enabled = $5,
			is_account_non_expired = $6,
			is_account_non_locked = $7,
			is_credentials_non_expired = $8
		WHERE credential_id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		*credential.CredentialID,
		credential.Username,
		credential.Password,
		nullableRole(credential.RoleBasedAuthority),
		credential.IsEnabled,
		credential.IsAccountNonExpired,
		credential.IsAccountNonLocked,
		credential.IsCredentialsNonExpired,
	)
	if err != nil {
		return mapPgError("update credential", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credential %d: %w", *credential.CredentialID, ErrNotFound)
	}
	return nil
}

func (r *PgUserRepository) AddVerificationToken(ctx context.Context, credentialID int, token *domain.VerificationToken) error {
	if token == nil {
		return ErrNilEntity
	}
	id, err := insertToken(ctx, r.pool, credentialID, token)
	if err != nil {
		return mapPgError("add verification token", err)
	}
	token.VerificationTokenID = &id
	return nil
}

func (r *PgUserRepository) addresses(ctx context.Context, userID int) ([]*domain.Address, error) {
	const query = `
		SELECT address_id, full_address, postal_code, city
		FROM addresses
		WHERE user_id = $1
		ORDER BY address_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.AddressID, &a.FullAddress, &a.PostalCode, &a.City); err != nil {
			return nil, err
		}
		addresses = append(addresses, &a)
	}
	return addresses, rows.Err()
}

func (r *PgUserRepository) credential(ctx context.Context, userID int) (*domain.Credential, error) {
	const query = `
		SELECT credential_id, username, password, role,
			is_enabled, is_account_non_expired, is_account_non_locked, is_credentials_non_expired
		FROM credentials
		WHERE user_id = $1
	`
	var (
		c    domain.Credential
		role *string
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&c.CredentialID,
		&c.Username,
		&c.Password,
		&role,
		&c.IsEnabled,
		&c.IsAccountNonExpired,
		&c.IsAccountNonLocked,
		&c.IsCredentialsNonExpired,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if role != nil {
		c.RoleBasedAuthority = domain.RoleBasedAuthority(*role)
	}

	c.VerificationTokens, err = r.tokens(ctx, *c.CredentialID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgUserRepository) tokens(ctx context.Context, credentialID int) ([]*domain.VerificationToken, error) {
	const query = `
		SELECT verification_token_id, token, expire_date
		FROM verification_tokens
		WHERE credential_id = $1
		ORDER BY verification_token_id
	`
	rows, err := r.pool.Query(ctx, query, credentialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []*domain.VerificationToken{}
	for rows.Next() {
		var t domain.VerificationToken
		if err := rows.Scan(&t.VerificationTokenID, &t.Token, &t.ExpireDate); err != nil {
			return nil, err
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func insertAddress(ctx context.Context, q querier, userID int, a *domain.Address) (int, error) {
	const query = `
		INSERT INTO addresses (user_id, full_address, postal_code, city)
		VALUES ($1, $2, $3, $4)
		RETURNING address_id
	`
	var id int
	err := q.QueryRow(ctx, query, userID, a.FullAddress, a.PostalCode, a.City).Scan(&id)
	return id, err
}

func insertCredential(ctx context.Context, q querier, userID int, c *domain.Credential) (int, error) {
	const query = `
		INSERT INTO credentials (user_id, username, password, role,
			is_enabled, is_account_non_expired, is_account_non_locked, is_credentials_non_expired)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING credential_id
	`
	var id int
	err := q.QueryRow(ctx, query,
		userID,
		c.Username,
		c.Password,
		nullableRole(c.RoleBasedAuthority),
		c.IsEnabled,
		c.IsAccountNonExpired,
		c.IsAccountNonLocked,
		c.IsCredentialsNonExpired,
	).Scan(&id)
	return id, err
}

func insertToken(ctx context.Context, q querier, credentialID int, t *domain.VerificationToken) (int, error) {
	const query = `
		INSERT INTO verification_tokens (credential_id, token, expire_date)
		VALUES ($1, $2, $3)
		RETURNING verification_token_id
	`
	var id int
	err := q.QueryRow(ctx, query, credentialID, t.Token, t.ExpireDate).Scan(&id)
	return id, err
}

func mapPgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrConflict)
		case pgForeignKeyViolation:
			// the owning row does not exist
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

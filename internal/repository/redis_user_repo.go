package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"user-service/internal/domain"
)

// redisKV is the subset of *redis.Client the repository uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RedisUserRepository stores each aggregate as one JSON document keyed by
// user id, with secondary keys for username and credential id lookups.
// TODO: run the read-modify-write methods under WATCH/MULTI so concurrent
// writers to the same user cannot drop each other's changes.
type RedisUserRepository struct {
	client redisKV
	prefix string
}

func NewRedisUserRepository(client *redis.Client, prefix string) *RedisUserRepository {
	if client == nil {
		return nil
	}
	return &RedisUserRepository{client: client, prefix: prefix}
}

func (r *RedisUserRepository) userKey(id int) string {
	return r.prefix + "user:" + strconv.Itoa(id)
}

func (r *RedisUserRepository) usernameKey(username string) string {
	return r.prefix + "username:" + username
}

func (r *RedisUserRepository) credentialKey(id int) string {
	return r.prefix + "credential:" + strconv.Itoa(id)
}

func (r *RedisUserRepository) next(ctx context.Context, seq string) (int, error) {
	n, err := r.client.Incr(ctx, r.prefix+"seq:"+seq).Result()
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", seq, err)
	}
	return int(n), nil
}

// Create writes the aggregate as one document. The caller's entities get
// their ids only once the document is saved; on failure the username
// reservation and the credential index are released.
func (r *RedisUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return ErrNilEntity
	}
	doc := cloneUser(user)

	userID, err := r.next(ctx, "user")
	if err != nil {
		return err
	}
	doc.UserID = &userID

	var written []string
	fail := func(err error) error {
		for _, key := range written {
			r.release(key)
		}
		return err
	}

	c := doc.Credential
	if c != nil && c.Username != nil {
		key := r.usernameKey(*c.Username)
		ok, err := r.client.SetNX(ctx, key, userID, 0).Result()
		if err != nil {
			return fmt.Errorf("reserve username: %w", err)
		}
		if !ok {
			return fmt.Errorf("username %q: %w", *c.Username, ErrConflict)
		}
		written = append(written, key)
	}

	for _, a := range doc.Addresses {
		id, err := r.next(ctx, "address")
		if err != nil {
			return fail(err)
		}
		a.AddressID = &id
	}
	if c != nil {
		credID, err := r.next(ctx, "credential")
		if err != nil {
			return fail(err)
		}
		c.CredentialID = &credID
		for _, t := range c.VerificationTokens {
			id, err := r.next(ctx, "token")
			if err != nil {
				return fail(err)
			}
			t.VerificationTokenID = &id
		}
		key := r.credentialKey(credID)
		if err := r.client.Set(ctx, key, userID, 0).Err(); err != nil {
			return fail(fmt.Errorf("index credential: %w", err))
		}
		written = append(written, key)
	}
	if err := r.save(ctx, doc); err != nil {
		return fail(err)
	}

	applyIDs(user, doc)
	return nil
}

// release drops a key written earlier in a failed operation. It runs on a
// fresh context so a cancelled request still cleans up.
func (r *RedisUserRepository) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = r.client.Del(ctx, key).Err()
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id int) (*domain.User, error) {
	raw, err := r.client.Get(ctx, r.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", id, err)
	}
	linkAggregate(&u)
	return &u, nil
}

func (r *RedisUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, err := r.lookup(ctx, r.usernameKey(username))
	if err != nil {
		return nil, fmt.Errorf("username %q: %w", username, err)
	}
	return r.GetByID(ctx, id)
}

func (r *RedisUserRepository) AddAddress(ctx context.Context, userID int, address *domain.Address) error {
	if address == nil {
		return ErrNilEntity
	}
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	id, err := r.next(ctx, "address")
	if err != nil {
		return err
	}
	stored := cloneAddress(address)
	stored.AddressID = &id
	u.Addresses = append(u.Addresses, stored)
	if err := r.save(ctx, u); err != nil {
		return err
	}
	address.AddressID = &id
	return nil
}

func (r *RedisUserRepository) UpdateCredential(ctx context.Context, credential *domain.Credential) error {
	if credential == nil {
		return ErrNilEntity
	}
	if credential.CredentialID == nil {
		return ErrMissingID
	}
	u, err := r.ownerOf(ctx, *credential.CredentialID)
	if err != nil {
		return err
	}
	stored := u.Credential

	oldName, newName := stored.Username, credential.Username
	renamed := !eqString(oldName, newName)
	if renamed && newName != nil {
		ok, err := r.client.SetNX(ctx, r.usernameKey(*newName), *u.UserID, 0).Result()
		if err != nil {
			return fmt.Errorf("reserve username: %w", err)
		}
		if !ok {
			return fmt.Errorf("username %q: %w", *newName, ErrConflict)
		}
	}

	copyCredentialScalars(stored, credential)
	if err := r.save(ctx, u); err != nil {
		if renamed && newName != nil {
			r.release(r.usernameKey(*newName))
		}
		return err
	}
	if renamed && oldName != nil {
		if err := r.client.Del(ctx, r.usernameKey(*oldName)).Err(); err != nil {
			return fmt.Errorf("release username: %w", err)
		}
	}
	return nil
}

func (r *RedisUserRepository) AddVerificationToken(ctx context.Context, credentialID int, token *domain.VerificationToken) error {
	if token == nil {
		return ErrNilEntity
	}
	u, err := r.ownerOf(ctx, credentialID)
	if err != nil {
		return err
	}
	id, err := r.next(ctx, "token")
	if err != nil {
		return err
	}
	stored := cloneToken(token)
	stored.VerificationTokenID = &id
	u.Credential.VerificationTokens = append(u.Credential.VerificationTokens, stored)
	if err := r.save(ctx, u); err != nil {
		return err
	}
	token.VerificationTokenID = &id
	return nil
}

func (r *RedisUserRepository) ownerOf(ctx context.Context, credentialID int) (*domain.User, error) {
	userID, err := r.lookup(ctx, r.credentialKey(credentialID))
	if err != nil {
		return nil, fmt.Errorf("credential %d: %w", credentialID, err)
	}
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Credential == nil {
		return nil, fmt.Errorf("credential %d: %w", credentialID, ErrNotFound)
	}
	return u, nil
}

func (r *RedisUserRepository) lookup(ctx context.Context, key string) (int, error) {
	id, err := r.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	return id, err
}

func (r *RedisUserRepository) save(ctx context.Context, u *domain.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := r.client.Set(ctx, r.userKey(*u.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save user %d: %w", *u.UserID, err)
	}
	return nil
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

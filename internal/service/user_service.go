package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"user-service/internal/domain"
	"user-service/internal/email"
	"user-service/internal/repository"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUsernameTaken = errors.New("username already taken")
	ErrInvalidRole   = errors.New("invalid role")

	ErrEmailSendFailure = errors.New("email send failed")
	ErrRateLimited      = errors.New("rate limited")
)

// UserService applies the account rules on top of a UserRepository. It keeps
// the aggregate's back-references linked; the domain types never do that
// themselves.
type UserService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	sender   email.Sender
	limiter  TokenRateLimiter
	validate *validator.Validate
}

// NewUserService wires the service. A nil sender disables token delivery and
// a nil limiter lets every token through.
func NewUserService(logger *zap.Logger, users repository.UserRepository, sender email.Sender, limiter TokenRateLimiter) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger:   logger,
		users:    users,
		sender:   sender,
		limiter:  limiter,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type AddressInput struct {
	FullAddress string `json:"full_address" validate:"max=255"`
	PostalCode  string `json:"postal_code" validate:"max=16"`
	City        string `json:"city" validate:"max=100"`
}

type RegisterInput struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"max=32"`

	Username string                    `json:"username" validate:"required,min=3,max=64"`
	Password string                    `json:"password" validate:"required"`
	Role     domain.RoleBasedAuthority `json:"role" validate:"omitempty,oneof=ROLE_USER ROLE_ADMIN"`

	Addresses []AddressInput `json:"addresses" validate:"dive"`
}

// AccountStatus carries the four credential flags; nil leaves a flag as is.
type AccountStatus struct {
	Enabled               *bool
	AccountNonExpired     *bool
	AccountNonLocked      *bool
	CredentialsNonExpired *bool
}

// Register builds a new aggregate, links both sides of the user/credential
// relation and persists it. The password is stored as given; callers pass
// an already encoded value.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if s.users == nil {
		return nil, errors.New("user service not configured")
	}

	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if input.Role == "" {
		input.Role = domain.RoleUser
	}
	if err := s.check(input); err != nil {
		return nil, err
	}

	user := domain.NewUserBuilder().Email(input.Email).Build()
	user.FirstName = optional(input.FirstName)
	user.LastName = optional(input.LastName)
	user.ImageURL = optional(input.ImageURL)
	user.Phone = optional(input.Phone)

	credential := domain.NewCredentialBuilder().
		Username(input.Username).
		Password(input.Password).
		RoleBasedAuthority(input.Role).
		IsEnabled(true).
		IsAccountNonExpired(true).
		IsAccountNonLocked(true).
		IsCredentialsNonExpired(true).
		VerificationTokens([]*domain.VerificationToken{}).
		Build()
	LinkCredential(user, credential)

	user.Addresses = make([]*domain.Address, 0, len(input.Addresses))
	for _, in := range input.Addresses {
		user.Addresses = append(user.Addresses, newAddress(in, user))
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		s.logger.Error("register user failed", zap.String("username", input.Username), zap.Error(err))
		return nil, err
	}

	s.logger.Info("user registered",
		zap.Intp("user_id", user.UserID),
		zap.Intp("credential_id", credential.CredentialID),
		zap.Stringer("role", input.Role),
	)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.notFound(err)
	}
	return u, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, s.notFound(err)
	}
	return u, nil
}

func (s *UserService) AddAddress(ctx context.Context, userID int, input AddressInput) (*domain.Address, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	address := newAddress(input, u)
	if err := s.users.AddAddress(ctx, userID, address); err != nil {
		return nil, s.notFound(err)
	}
	u.Addresses = append(u.Addresses, address)

	s.logger.Info("address added", zap.Int("user_id", userID), zap.Intp("address_id", address.AddressID))
	return address, nil
}

// SetAccountStatus updates the credential flags of username.
func (s *UserService) SetAccountStatus(ctx context.Context, username string, status AccountStatus) (*domain.Credential, error) {
	return s.updateCredential(ctx, username, func(c *domain.Credential) error {
		if status.Enabled != nil {
			c.IsEnabled = status.Enabled
		}
		if status.AccountNonExpired != nil {
			c.IsAccountNonExpired = status.AccountNonExpired
		}
		if status.AccountNonLocked != nil {
			c.IsAccountNonLocked = status.AccountNonLocked
		}
		if status.CredentialsNonExpired != nil {
			c.IsCredentialsNonExpired = status.CredentialsNonExpired
		}
		return nil
	})
}

func (s *UserService) ChangeRole(ctx context.Context, username, role string) (*domain.Credential, error) {
	r, err := domain.ParseRoleBasedAuthority(role)
	if err != nil || r == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return s.updateCredential(ctx, username, func(c *domain.Credential) error {
		c.RoleBasedAuthority = r
		return nil
	})
}

// AttachVerificationToken stores a verification token on the user's credential
// and mails it to the user's address when a sender is configured. An empty
// token gets a random UUID. The token stays stored when delivery fails; the
// error is ErrEmailSendFailure.
func (s *UserService) AttachVerificationToken(ctx context.Context, username, token string, expireDate time.Time) (*domain.VerificationToken, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		token = uuid.NewString()
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, username) {
		return nil, ErrRateLimited
	}
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c := u.Credential

	vt := domain.NewVerificationTokenBuilder().
		Token(token).
		ExpireDate(expireDate.UTC()).
		Credential(c).
		Build()
	if err := s.users.AddVerificationToken(ctx, *c.CredentialID, vt); err != nil {
		return nil, s.notFound(err)
	}
	c.VerificationTokens = append(c.VerificationTokens, vt)

	s.logger.Info("verification token attached",
		zap.Intp("credential_id", c.CredentialID),
		zap.Intp("verification_token_id", vt.VerificationTokenID),
	)

	if s.sender == nil || u.Email == nil {
		return vt, nil
	}
	if err := s.sender.SendVerificationToken(ctx, *u.Email, token, expireDate); err != nil {
		s.logger.Warn("send verification token failed", zap.Error(err), zap.String("email", *u.Email))
		return nil, ErrEmailSendFailure
	}
	return vt, nil
}

func (s *UserService) updateCredential(ctx context.Context, username string, mutate func(*domain.Credential) error) (*domain.Credential, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c := u.Credential
	if err := mutate(c); err != nil {
		return nil, err
	}
	if err := s.users.UpdateCredential(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, s.notFound(err)
	}
	s.logger.Info("credential updated", zap.Intp("credential_id", c.CredentialID), zap.Stringer("credential", redacted(c)))
	return c, nil
}

// LinkCredential sets both sides of the one-to-one relation. A credential
// previously linked to user loses its back-reference.
func LinkCredential(user *domain.User, credential *domain.Credential) {
	if user == nil {
		return
	}
	if prev := user.Credential; prev != nil && prev != credential && prev.User == user {
		prev.User = nil
	}
	user.Credential = credential
	if credential != nil {
		if other := credential.User; other != nil && other != user && other.Credential == credential {
			other.Credential = nil
		}
		credential.User = user
	}
}

func (s *UserService) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+" "+fe.Tag())
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
}

func (s *UserService) notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrUserNotFound, err)
	}
	return err
}

func newAddress(in AddressInput, owner *domain.User) *domain.Address {
	a := domain.NewAddressBuilder().User(owner).Build()
	a.FullAddress = optional(in.FullAddress)
	a.PostalCode = optional(in.PostalCode)
	a.City = optional(in.City)
	return a
}

// redacted renders a credential for logs without its password.
func redacted(c *domain.Credential) fmt.Stringer {
	cp := *c
	if cp.Password != nil {
		masked := "***"
		cp.Password = &masked
	}
	return &cp
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

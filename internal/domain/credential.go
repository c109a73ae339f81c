package domain

// Credential holds the authentication state of a user. Identity covers the
// id, username, password, role and the four account-status flags. The
// back-reference to User and the owned VerificationTokens are excluded from
// Equal and HashCode.
type Credential struct {
	CredentialID            *int               `json:"credential_id"`
	Username                *string            `json:"username"`
	Password                *string            `json:"password"`
	RoleBasedAuthority      RoleBasedAuthority `json:"role_based_authority,omitempty"`
	IsEnabled               *bool              `json:"is_enabled"`
	IsAccountNonExpired     *bool              `json:"is_account_non_expired"`
	IsAccountNonLocked      *bool              `json:"is_account_non_locked"`
	IsCredentialsNonExpired *bool              `json:"is_credentials_non_expired"`

	User               *User                `json:"-"`
	VerificationTokens []*VerificationToken `json:"verification_tokens"`
}

// NewCredential assigns every field positionally. It never validates.
func NewCredential(
	credentialID *int,
	username, password *string,
	role RoleBasedAuthority,
	isEnabled, isAccountNonExpired, isAccountNonLocked, isCredentialsNonExpired *bool,
	user *User,
	verificationTokens []*VerificationToken,
) *Credential {
	return &Credential{
		CredentialID:            credentialID,
		Username:                username,
		Password:                password,
		RoleBasedAuthority:      role,
		IsEnabled:               isEnabled,
		IsAccountNonExpired:     isAccountNonExpired,
		IsAccountNonLocked:      isAccountNonLocked,
		IsCredentialsNonExpired: isCredentialsNonExpired,
		User:                    user,
		VerificationTokens:      verificationTokens,
	}
}

type credentialCarrier interface {
	credentialValue() *Credential
}

func (c *Credential) credentialValue() *Credential { return c }

func asCredential(other any) *Credential {
	if isNil(other) {
		return nil
	}
	switch v := other.(type) {
	case *Credential:
		return v
	case Credential:
		return &v
	case credentialCarrier:
		return v.credentialValue()
	}
	return nil
}

// CanEqual accepts a *Credential, a Credential value or a pointer to a type
// embedding Credential. An embedder that overrides CanEqual must also
// override Equal, for the same reason as User.CanEqual.
func (c *Credential) CanEqual(other any) bool {
	return asCredential(other) != nil
}

func (c *Credential) Equal(other any) bool {
	if c == nil {
		return false
	}
	o := asCredential(other)
	if o == nil || refusesEquality(other, c) {
		return false
	}
	if o == c {
		return true
	}
	return eqPtr(c.CredentialID, o.CredentialID) &&
		eqPtr(c.Username, o.Username) &&
		eqPtr(c.Password, o.Password) &&
		c.RoleBasedAuthority == o.RoleBasedAuthority &&
		eqPtr(c.IsEnabled, o.IsEnabled) &&
		eqPtr(c.IsAccountNonExpired, o.IsAccountNonExpired) &&
		eqPtr(c.IsAccountNonLocked, o.IsAccountNonLocked) &&
		eqPtr(c.IsCredentialsNonExpired, o.IsCredentialsNonExpired)
}

func (c *Credential) HashCode() uint64 {
	if c == nil {
		return 0
	}
	return newFieldHasher("Credential").
		Int(c.CredentialID).
		Str(c.Username).
		Str(c.Password).
		Role(c.RoleBasedAuthority).
		Bool(c.IsEnabled).
		Bool(c.IsAccountNonExpired).
		Bool(c.IsAccountNonLocked).
		Bool(c.IsCredentialsNonExpired).
		Sum()
}

func (c *Credential) String() string {
	if c == nil {
		return nullMarker
	}
	var userID *int
	if c.User != nil {
		userID = c.User.UserID
	}
	return newFieldWriter("Credential").
		field("credentialId", show(c.CredentialID)).
		field("username", show(c.Username)).
		field("password", show(c.Password)).
		field("roleBasedAuthority", c.RoleBasedAuthority.String()).
		field("isEnabled", show(c.IsEnabled)).
		field("isAccountNonExpired", show(c.IsAccountNonExpired)).
		field("isAccountNonLocked", show(c.IsAccountNonLocked)).
		field("isCredentialsNonExpired", show(c.IsCredentialsNonExpired)).
		field("user", showRef("User", userID, c.User == nil)).
		field("verificationTokens", showSize(len(c.VerificationTokens), c.VerificationTokens == nil)).
		String()
}

// CredentialBuilder assembles a Credential one field at a time. Omitted
// fields stay null.
type CredentialBuilder struct {
	c Credential
}

func NewCredentialBuilder() *CredentialBuilder {
	return &CredentialBuilder{}
}

func (b *CredentialBuilder) CredentialID(v int) *CredentialBuilder {
	b.c.CredentialID = ref(v)
	return b
}

func (b *CredentialBuilder) Username(v string) *CredentialBuilder {
	b.c.Username = ref(v)
	return b
}

func (b *CredentialBuilder) Password(v string) *CredentialBuilder {
	b.c.Password = ref(v)
	return b
}

func (b *CredentialBuilder) RoleBasedAuthority(v RoleBasedAuthority) *CredentialBuilder {
	b.c.RoleBasedAuthority = v
	return b
}

func (b *CredentialBuilder) IsEnabled(v bool) *CredentialBuilder {
	b.c.IsEnabled = ref(v)
	return b
}

func (b *CredentialBuilder) IsAccountNonExpired(v bool) *CredentialBuilder {
	b.c.IsAccountNonExpired = ref(v)
	return b
}

func (b *CredentialBuilder) IsAccountNonLocked(v bool) *CredentialBuilder {
	b.c.IsAccountNonLocked = ref(v)
	return b
}

func (b *CredentialBuilder) IsCredentialsNonExpired(v bool) *CredentialBuilder {
	b.c.IsCredentialsNonExpired = ref(v)
	return b
}

func (b *CredentialBuilder) User(v *User) *CredentialBuilder {
	b.c.User = v
	return b
}

func (b *CredentialBuilder) VerificationTokens(v []*VerificationToken) *CredentialBuilder {
	b.c.VerificationTokens = v
	return b
}

func (b *CredentialBuilder) Build() *Credential {
	c := b.c
	return &c
}

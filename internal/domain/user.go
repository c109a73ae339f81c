package domain

// User is the aggregate root of the identity model. Its value identity is
// the six profile fields; Addresses and Credential never take part in
// Equal or HashCode, so the User <-> Credential back-reference cannot
// recurse and the hash stays stable while the owned collections change.
type User struct {
	UserID    *int    `json:"user_id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	ImageURL  *string `json:"image_url"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`

	Addresses  []*Address  `json:"addresses"`
	Credential *Credential `json:"credential"`
}

// NewUser assigns every field positionally. It never validates.
func NewUser(
	userID *int,
	firstName, lastName, imageURL, email, phone *string,
	addresses []*Address,
	credential *Credential,
) *User {
	return &User{
		UserID:     userID,
		FirstName:  firstName,
		LastName:   lastName,
		ImageURL:   imageURL,
		Email:      email,
		Phone:      phone,
		Addresses:  addresses,
		Credential: credential,
	}
}

type userCarrier interface {
	userValue() *User
}

func (u *User) userValue() *User { return u }

func asUser(other any) *User {
	if isNil(other) {
		return nil
	}
	switch v := other.(type) {
	case *User:
		return v
	case User:
		return &v
	case userCarrier:
		return v.userValue()
	}
	return nil
}

// CanEqual reports whether other could ever be equal to a User: a non-nil
// *User, a User value, or a pointer to a type embedding User.
//
// A type that embeds User and overrides CanEqual must override Equal as
// well. Otherwise the promoted User.Equal answers for it and equality is no
// longer symmetric.
func (u *User) CanEqual(other any) bool {
	return asUser(other) != nil
}

func (u *User) Equal(other any) bool {
	if u == nil {
		return false
	}
	o := asUser(other)
	if o == nil || refusesEquality(other, u) {
		return false
	}
	if o == u {
		return true
	}
	return eqPtr(u.UserID, o.UserID) &&
		eqPtr(u.FirstName, o.FirstName) &&
		eqPtr(u.LastName, o.LastName) &&
		eqPtr(u.ImageURL, o.ImageURL) &&
		eqPtr(u.Email, o.Email) &&
		eqPtr(u.Phone, o.Phone)
}

func (u *User) HashCode() uint64 {
	if u == nil {
		return 0
	}
	return newFieldHasher("User").
		Int(u.UserID).
		Str(u.FirstName).
		Str(u.LastName).
		Str(u.ImageURL).
		Str(u.Email).
		Str(u.Phone).
		Sum()
}

func (u *User) String() string {
	if u == nil {
		return nullMarker
	}
	var credID *int
	if u.Credential != nil {
		credID = u.Credential.CredentialID
	}
	return newFieldWriter("User").
		field("userId", show(u.UserID)).
		field("firstName", show(u.FirstName)).
		field("lastName", show(u.LastName)).
		field("imageUrl", show(u.ImageURL)).
		field("email", show(u.Email)).
		field("phone", show(u.Phone)).
		field("addresses", showSize(len(u.Addresses), u.Addresses == nil)).
		field("credential", showRef("Credential", credID, u.Credential == nil)).
		String()
}

// UserBuilder assembles a User one field at a time. Omitted fields stay null.
type UserBuilder struct {
	u User
}

func NewUserBuilder() *UserBuilder {
	return &UserBuilder{}
}

func (b *UserBuilder) UserID(v int) *UserBuilder {
	b.u.UserID = ref(v)
	return b
}

func (b *UserBuilder) FirstName(v string) *UserBuilder {
	b.u.FirstName = ref(v)
	return b
}

func (b *UserBuilder) LastName(v string) *UserBuilder {
	b.u.LastName = ref(v)
	return b
}

func (b *UserBuilder) ImageURL(v string) *UserBuilder {
	b.u.ImageURL = ref(v)
	return b
}

func (b *UserBuilder) Email(v string) *UserBuilder {
	b.u.Email = ref(v)
	return b
}

func (b *UserBuilder) Phone(v string) *UserBuilder {
	b.u.Phone = ref(v)
	return b
}

func (b *UserBuilder) Addresses(v []*Address) *UserBuilder {
	b.u.Addresses = v
	return b
}

func (b *UserBuilder) Credential(v *Credential) *UserBuilder {
	b.u.Credential = v
	return b
}

// Build returns a fresh User; the builder can be reused afterwards.
func (b *UserBuilder) Build() *User {
	u := b.u
	return &u
}

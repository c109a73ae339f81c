package domain

// Address is a location owned by a User. User is a back-reference and is
// not part of the value.
type Address struct {
	AddressID   *int    `json:"address_id"`
	FullAddress *string `json:"full_address"`
	PostalCode  *string `json:"postal_code"`
	City        *string `json:"city"`

	User *User `json:"-"`
}

func NewAddress(addressID *int, fullAddress, postalCode, city *string, user *User) *Address {
	return &Address{
		AddressID:   addressID,
		FullAddress: fullAddress,
		PostalCode:  postalCode,
		City:        city,
		User:        user,
	}
}

func asAddress(other any) *Address {
	if isNil(other) {
		return nil
	}
	switch v := other.(type) {
	case *Address:
		return v
	case Address:
		return &v
	}
	return nil
}

func (a *Address) CanEqual(other any) bool {
	return asAddress(other) != nil
}

func (a *Address) Equal(other any) bool {
	if a == nil {
		return false
	}
	o := asAddress(other)
	if o == nil {
		return false
	}
	return eqPtr(a.AddressID, o.AddressID) &&
		eqPtr(a.FullAddress, o.FullAddress) &&
		eqPtr(a.PostalCode, o.PostalCode) &&
		eqPtr(a.City, o.City)
}

func (a *Address) HashCode() uint64 {
	if a == nil {
		return 0
	}
	return newFieldHasher("Address").
		Int(a.AddressID).
		Str(a.FullAddress).
		Str(a.PostalCode).
		Str(a.City).
		Sum()
}

func (a *Address) String() string {
	if a == nil {
		return nullMarker
	}
	var userID *int
	if a.User != nil {
		userID = a.User.UserID
	}
	return newFieldWriter("Address").
		field("addressId", show(a.AddressID)).
		field("fullAddress", show(a.FullAddress)).
		field("postalCode", show(a.PostalCode)).
		field("city", show(a.City)).
		field("user", showRef("User", userID, a.User == nil)).
		String()
}

type AddressBuilder struct {
	a Address
}

func NewAddressBuilder() *AddressBuilder {
	return &AddressBuilder{}
}

func (b *AddressBuilder) AddressID(v int) *AddressBuilder {
	b.a.AddressID = ref(v)
	return b
}

func (b *AddressBuilder) FullAddress(v string) *AddressBuilder {
	b.a.FullAddress = ref(v)
	return b
}

func (b *AddressBuilder) PostalCode(v string) *AddressBuilder {
	b.a.PostalCode = ref(v)
	return b
}

func (b *AddressBuilder) City(v string) *AddressBuilder {
	b.a.City = ref(v)
	return b
}

func (b *AddressBuilder) User(v *User) *AddressBuilder {
	b.a.User = v
	return b
}

func (b *AddressBuilder) Build() *Address {
	a := b.a
	return &a
}

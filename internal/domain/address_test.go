package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddressEqual(t *testing.T) {
	owner := NewUserBuilder().UserID(1).Build()
	a1 := NewAddress(ref(1), ref("1 Main St"), ref("75001"), ref("Paris"), owner)
	a2 := NewAddressBuilder().AddressID(1).FullAddress("1 Main St").PostalCode("75001").City("Paris").Build()

	assert.True(t, a1.Equal(a2), "the owning user is not part of the value")
	assert.Equal(t, a1.HashCode(), a2.HashCode())
	assert.False(t, a1.Equal(NewAddressBuilder().AddressID(2).Build()))
	assert.False(t, a1.Equal(nil))
	assert.False(t, a1.Equal(owner))
	assert.True(t, a1.CanEqual(Address{}))
	assert.False(t, a1.CanEqual((*Address)(nil)))
	assert.True(t, (&Address{}).Equal(&Address{}))
}

func TestAddressString(t *testing.T) {
	a := NewAddressBuilder().AddressID(3).City("Lyon").User(NewUserBuilder().UserID(8).Build()).Build()
	s := a.String()

	assert.Contains(t, s, "addressId=3")
	assert.Contains(t, s, "city=Lyon")
	assert.Contains(t, s, "postalCode=null")
	assert.Contains(t, s, "user=User#8")
}

func TestVerificationTokenEqual(t *testing.T) {
	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	sameInstant := day.In(time.FixedZone("UTC+2", 2*60*60))

	cred := NewCredentialBuilder().CredentialID(1).Build()
	t1 := NewVerificationToken(ref(10), ref("abc"), &day, cred)
	t2 := NewVerificationTokenBuilder().VerificationTokenID(10).Token("abc").ExpireDate(sameInstant).Build()

	assert.True(t, t1.Equal(t2))
	assert.Equal(t, t1.HashCode(), t2.HashCode())
	assert.False(t, t1.Equal(NewVerificationTokenBuilder().VerificationTokenID(10).Token("abc").Build()))
	assert.False(t, t1.Equal(cred))
	assert.False(t, t1.CanEqual(nil))
	assert.True(t, t1.CanEqual(VerificationToken{}))
}

func TestVerificationTokenString(t *testing.T) {
	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	tok := NewVerificationTokenBuilder().
		VerificationTokenID(10).
		Token("abc").
		ExpireDate(day).
		Credential(NewCredentialBuilder().CredentialID(5).Build()).
		Build()
	s := tok.String()

	assert.Contains(t, s, "verificationTokenId=10")
	assert.Contains(t, s, "token=abc")
	assert.Contains(t, s, "expireDate=2026-10-18T00:00:00Z")
	assert.Contains(t, s, "credential=Credential#5")
	assert.Contains(t, (&VerificationToken{}).String(), "expireDate=null")
}

func TestLeaves_NoArgs(t *testing.T) {
	a := &Address{}
	assert.Nil(t, a.AddressID)
	assert.Nil(t, a.FullAddress)
	assert.Nil(t, a.PostalCode)
	assert.Nil(t, a.City)
	assert.Nil(t, a.User)

	tok := &VerificationToken{}
	assert.Nil(t, tok.VerificationTokenID)
	assert.Nil(t, tok.Token)
	assert.Nil(t, tok.ExpireDate)
	assert.Nil(t, tok.Credential)
}

package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateJSON_Lossless(t *testing.T) {
	expire := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	u := NewUserBuilder().UserID(1).FirstName("John").Email("john.doe@example.com").Build()
	c := NewCredentialBuilder().
		CredentialID(2).
		Username("john").
		Password("secret").
		RoleBasedAuthority(RoleAdmin).
		IsEnabled(true).
		IsAccountNonLocked(false).
		User(u).
		Build()
	c.VerificationTokens = []*VerificationToken{
		NewVerificationTokenBuilder().VerificationTokenID(3).Token("tok").ExpireDate(expire).Credential(c).Build(),
	}
	u.Credential = c
	u.Addresses = []*Address{NewAddressBuilder().AddressID(4).City("Paris").User(u).Build()}

	raw, err := json.Marshal(u)
	require.NoError(t, err, "back-references must not make the encoder recurse")

	var decoded User
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.True(t, u.Equal(&decoded))
	assert.Nil(t, decoded.LastName, "null scalars stay null")
	assert.Nil(t, decoded.ImageURL)
	require.NotNil(t, decoded.Credential)
	assert.True(t, c.Equal(decoded.Credential))
	assert.Nil(t, decoded.Credential.IsAccountNonExpired)
	require.NotNil(t, decoded.Credential.IsAccountNonLocked)
	assert.False(t, *decoded.Credential.IsAccountNonLocked)
	require.Len(t, decoded.Credential.VerificationTokens, 1)
	assert.True(t, c.VerificationTokens[0].Equal(decoded.Credential.VerificationTokens[0]))
	require.Len(t, decoded.Addresses, 1)
	assert.True(t, u.Addresses[0].Equal(decoded.Addresses[0]))

	assert.Nil(t, decoded.Credential.User, "back-references are not serialized")
	assert.Nil(t, decoded.Addresses[0].User)
}

func TestEmptyUserJSON(t *testing.T) {
	raw, err := json.Marshal(&User{})
	require.NoError(t, err)

	var decoded User
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, (&User{}).Equal(&decoded))
	assert.Nil(t, decoded.Addresses)
	assert.Nil(t, decoded.Credential)
}

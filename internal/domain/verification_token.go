package domain

import "time"

// VerificationToken is owned by a Credential. The Credential back-reference
// is not part of the value.
type VerificationToken struct {
	VerificationTokenID *int       `json:"verification_token_id"`
	Token               *string    `json:"token"`
	ExpireDate          *time.Time `json:"expire_date"`

	Credential *Credential `json:"-"`
}

func NewVerificationToken(verificationTokenID *int, token *string, expireDate *time.Time, credential *Credential) *VerificationToken {
	return &VerificationToken{
		VerificationTokenID: verificationTokenID,
		Token:               token,
		ExpireDate:          expireDate,
		Credential:          credential,
	}
}

func asVerificationToken(other any) *VerificationToken {
	if isNil(other) {
		return nil
	}
	switch v := other.(type) {
	case *VerificationToken:
		return v
	case VerificationToken:
		return &v
	}
	return nil
}

func (t *VerificationToken) CanEqual(other any) bool {
	return asVerificationToken(other) != nil
}

func (t *VerificationToken) Equal(other any) bool {
	if t == nil {
		return false
	}
	o := asVerificationToken(other)
	if o == nil {
		return false
	}
	return eqPtr(t.VerificationTokenID, o.VerificationTokenID) &&
		eqPtr(t.Token, o.Token) &&
		eqTime(t.ExpireDate, o.ExpireDate)
}

func (t *VerificationToken) HashCode() uint64 {
	if t == nil {
		return 0
	}
	return newFieldHasher("VerificationToken").
		Int(t.VerificationTokenID).
		Str(t.Token).
		Time(t.ExpireDate).
		Sum()
}

func (t *VerificationToken) String() string {
	if t == nil {
		return nullMarker
	}
	var credID *int
	if t.Credential != nil {
		credID = t.Credential.CredentialID
	}
	return newFieldWriter("VerificationToken").
		field("verificationTokenId", show(t.VerificationTokenID)).
		field("token", show(t.Token)).
		field("expireDate", showTime(t.ExpireDate)).
		field("credential", showRef("Credential", credID, t.Credential == nil)).
		String()
}

type VerificationTokenBuilder struct {
	t VerificationToken
}

func NewVerificationTokenBuilder() *VerificationTokenBuilder {
	return &VerificationTokenBuilder{}
}

func (b *VerificationTokenBuilder) VerificationTokenID(v int) *VerificationTokenBuilder {
	b.t.VerificationTokenID = ref(v)
	return b
}

func (b *VerificationTokenBuilder) Token(v string) *VerificationTokenBuilder {
	b.t.Token = ref(v)
	return b
}

func (b *VerificationTokenBuilder) ExpireDate(v time.Time) *VerificationTokenBuilder {
	b.t.ExpireDate = ref(v)
	return b
}

func (b *VerificationTokenBuilder) Credential(v *Credential) *VerificationTokenBuilder {
	b.t.Credential = v
	return b
}

func (b *VerificationTokenBuilder) Build() *VerificationToken {
	t := b.t
	return &t
}

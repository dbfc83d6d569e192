package authkit

import "time"

// Invite is the issued form of an organization/role invite. Token is the
// raw value to mail out; TokenHash is what the caller persists alongside
// the org and role. TokenHash always equals TokenHash(Token, secret) for
// the secret passed at issuance.
type Invite struct {
	Email     string       `json:"email"`
	OrgID     string       `json:"org_id"`
	Role      string       `json:"role"`
	Token     string       `json:"-"`
	TokenHash string       `json:"token_hash"`
	Purpose   TokenPurpose `json:"purpose"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// IssueInviteToken creates an invite token for email into orgID with the
// given role. Persistence of the invite record is the caller's concern -
// this only mints the token, its keyed hash, and the expiry.
func IssueInviteToken(email, orgID, role, secret string, ttl time.Duration) (*Invite, error) {
	raw, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	return &Invite{
		Email:     email,
		OrgID:     orgID,
		Role:      role,
		Token:     raw,
		TokenHash: TokenHash(raw, secret),
		Purpose:   PurposeInvite,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Package googleauth verifies Google Sign-In ID tokens.
package googleauth

import (
	"context"
	"errors"
	"fmt"

	craveAuth "github.com/CraveEvents/craveAuth"
	"google.golang.org/api/idtoken"
)

var ErrMissingEmail = errors.New("google token carries no email")

// ValidateFunc matches idtoken.Validate.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Verifier checks signature, expiry, issuer and audience of an ID token
// against Google's published keys.
type Verifier struct {
	validate ValidateFunc
}

func NewVerifier() *Verifier {
	return &Verifier{validate: idtoken.Validate}
}

// NewVerifierWithValidator swaps the validation call, for tests.
func NewVerifierWithValidator(fn ValidateFunc) *Verifier {
	if fn == nil {
		fn = idtoken.Validate
	}
	return &Verifier{validate: fn}
}

func (v *Verifier) Verify(ctx context.Context, credential, audience string) (*craveAuth.GoogleIdentity, error) {
	if credential == "" || audience == "" {
		return nil, errors.New("credential and audience required")
	}
	payload, err := v.validate(ctx, credential, audience)
	if err != nil {
		return nil, fmt.Errorf("validate google id token: %w", err)
	}
	return identityFromPayload(payload)
}

func identityFromPayload(p *idtoken.Payload) (*craveAuth.GoogleIdentity, error) {
	if p == nil {
		return nil, errors.New("empty google payload")
	}
	email := claimString(p.Claims, "email")
	if email == "" {
		return nil, ErrMissingEmail
	}
	return &craveAuth.GoogleIdentity{
		Subject:       p.Subject,
		Email:         email,
		EmailVerified: claimBool(p.Claims, "email_verified"),
		Name:          claimString(p.Claims, "name"),
		Picture:       claimString(p.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

// claimBool accepts the boolean and the "true" string form; Google has
// sent both.
func claimBool(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

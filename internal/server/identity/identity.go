// Package identity verifies external sign-in assertions and turns them into
// a Claim the account linker can trust.
package identity

import "context"

// Claim is a verified external identity. Email and SubjectID are required by
// consumers; the name parts are whatever the provider returned.
type Claim struct {
	Email      string
	SubjectID  string
	GivenName  string
	FamilyName string
	FullName   string
}

// Verifier runs a provider's authorization-code flow.
type Verifier interface {
	// AuthCodeURL is the provider consent page the browser is sent to.
	AuthCodeURL(state string) string

	// VerifyAuthCode exchanges code and returns the claim only after the
	// provider's assertion was checked for our audience. Every failure wraps
	// common.ErrVerificationFailed.
	VerifyAuthCode(ctx context.Context, code string) (*Claim, error)
}

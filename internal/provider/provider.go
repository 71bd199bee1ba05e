package provider

import (
	"context"
	"errors"
)

// Authorization describes one active device login held against a credential.
type Authorization struct {
	Hash    int64  `json:"hash"`
	Current bool   `json:"current"`
	Device  string `json:"device"`
	App     string `json:"app"`
}

var (
	// ErrSecondFactorRequired is returned by RedeemCode when the account has
	// cloud-password protection and the flow must collect the second factor.
	ErrSecondFactorRequired = errors.New("second factor required")

	// ErrStorageBusy marks a transient failure of the provider's session
	// storage (locked/contended), as opposed to a genuine validation failure.
	ErrStorageBusy = errors.New("session storage busy")
)

// IsStorageBusy reports whether err belongs to the transient storage-failure
// class that the reward validator treats as soft.
func IsStorageBusy(err error) bool {
	return errors.Is(err, ErrStorageBusy)
}

// Client is the code/second-factor provider. Every call addresses one
// credential artifact by its on-disk path; the artifact's internal format is
// owned by the gateway, never inspected here.
type Client interface {
	// RequestCode connects a fresh credential at artifactPath and asks the
	// network to deliver a one-time code to the phone. Returns the challenge
	// id needed to redeem the code.
	RequestCode(ctx context.Context, phone, artifactPath string) (string, error)

	// RedeemCode signs in with the delivered code. Returns
	// ErrSecondFactorRequired when the account needs its cloud password.
	RedeemCode(ctx context.Context, artifactPath, phone, challengeID, code string) error

	// RedeemSecondFactor completes a sign-in that required the cloud password.
	RedeemSecondFactor(ctx context.Context, artifactPath, secret string) error

	// SetTwoFactor sets or replaces the account's cloud password.
	SetTwoFactor(ctx context.Context, artifactPath, current, newPassword, hint string) error

	// Authorizations lists the active device logins on the credential.
	Authorizations(ctx context.Context, artifactPath string) ([]Authorization, error)

	// Revoke terminates one device login by its authorization hash.
	Revoke(ctx context.Context, artifactPath string, hash int64) error

	// Validate checks the credential is still usable. May return
	// ErrStorageBusy when the backing session store is contended.
	Validate(ctx context.Context, artifactPath string) error

	// Disconnect releases the gateway's live connection for the credential.
	Disconnect(ctx context.Context, artifactPath string) error
}

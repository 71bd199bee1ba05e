package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/vipreceiver/backend/internal/config"
	"github.com/vipreceiver/backend/internal/models"
	"github.com/vipreceiver/backend/internal/provider"
	"github.com/vipreceiver/backend/pkg/validation"
)

// Session states.
const (
	StateAwaitingCode         = "awaiting_code"
	StateAwaitingSecondFactor = "awaiting_second_factor"
	StateSecured              = "secured"
)

// Submission outcomes.
const (
	OutcomeCodeSent             = "code_sent"
	OutcomeSecondFactorRequired = "second_factor_required"
	OutcomeSecured              = "secured"
	OutcomeRejected             = "rejected"
)

// Rejection reasons surfaced to the transport.
const (
	ReasonInvalidPhone      = "invalid phone number format"
	ReasonNumberConsumed    = "this number has already been used"
	ReasonRegionUnsupported = "this country code is not supported"
	ReasonNoCapacity        = "no capacity left for this country"
	ReasonNoActiveSession   = "no active verification session"
)

// VerificationSession is the transient per-user flow state. At most one
// exists per user; a new phone submission replaces it.
type VerificationSession struct {
	Phone        string
	RegionCode   string
	ArtifactPath string
	ChallengeID  string
	State        string
}

// SubmitResult is the outcome of one state-machine entry point.
type SubmitResult struct {
	Outcome      string
	Reason       string
	Phone        string
	Region       *models.Region
	ArtifactPath string
}

func rejected(reason string) *SubmitResult {
	return &SubmitResult{Outcome: OutcomeRejected, Reason: reason}
}

// RegionSource resolves region configuration for a phone number.
type RegionSource interface {
	Match(phone string) (*models.Region, error)
}

// ConsumptionChecker answers whether a phone number was already paid out.
type ConsumptionChecker interface {
	IsConsumed(phone string) (bool, error)
}

// VerificationService drives a phone number through code submission,
// optional second factor and the secured handoff. Sessions live only in
// memory; a process restart abandons them.
type VerificationService struct {
	cfg       *config.Config
	client    provider.Client
	artifacts *ArtifactService
	regions   RegionSource
	consumed  ConsumptionChecker
	enforcer  *ExclusivityService

	mu       sync.Mutex
	sessions map[int64]*VerificationSession
	locks    map[int64]*sync.Mutex
}

func NewVerificationService(cfg *config.Config, client provider.Client, artifacts *ArtifactService, regions RegionSource, consumed ConsumptionChecker, enforcer *ExclusivityService) *VerificationService {
	return &VerificationService{
		cfg:       cfg,
		client:    client,
		artifacts: artifacts,
		regions:   regions,
		consumed:  consumed,
		enforcer:  enforcer,
		sessions:  make(map[int64]*VerificationSession),
		locks:     make(map[int64]*sync.Mutex),
	}
}

// userLock serializes the three entry points per user, so out-of-order
// transport delivery cannot interleave one user's transitions.
func (s *VerificationService) userLock(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *VerificationService) session(userID int64) *VerificationSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

func (s *VerificationService) setSession(userID int64, sess *VerificationSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess == nil {
		delete(s.sessions, userID)
	} else {
		s.sessions[userID] = sess
	}
}

// State returns the live session state for a user, or "" when none exists.
func (s *VerificationService) State(userID int64) string {
	if sess := s.session(userID); sess != nil {
		return sess.State
	}
	return ""
}

// SubmitPhone starts a verification flow for a phone number. Any prior
// session for the user is discarded and its credential handle released.
func (s *VerificationService) SubmitPhone(ctx context.Context, userID int64, phone string) (*SubmitResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	phone = validation.SanitizeString(phone)
	if !validation.ValidatePhone(phone) {
		return rejected(ReasonInvalidPhone), nil
	}

	used, err := s.consumed.IsConsumed(phone)
	if err != nil {
		return nil, err
	}
	if used {
		return rejected(ReasonNumberConsumed), nil
	}

	region, err := s.regions.Match(phone)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return rejected(ReasonRegionUnsupported), nil
	}
	if region.Capacity <= 0 {
		return rejected(ReasonNoCapacity), nil
	}

	// Replace any prior session; its temp artifact must not leak.
	s.release(ctx, userID)

	temp := s.artifacts.NewTemp(region.Code)
	challengeID, err := s.client.RequestCode(ctx, phone, temp)
	if err != nil {
		if rmErr := s.artifacts.Remove(temp); rmErr != nil {
			log.Printf("Verification: removing temp artifact after failed code request: %v", rmErr)
		}
		return rejected(fmt.Sprintf("could not send code: %v", err)), nil
	}

	s.setSession(userID, &VerificationSession{
		Phone:        phone,
		RegionCode:   region.Code,
		ArtifactPath: temp,
		ChallengeID:  challengeID,
		State:        StateAwaitingCode,
	})

	log.Printf("Verification: started for %s (region %s)", phone, region.Code)
	return &SubmitResult{Outcome: OutcomeCodeSent, Phone: phone, Region: region}, nil
}

// SubmitCode redeems the delivered one-time code. The provider may demand a
// second factor; a genuine redeem failure destroys the session and its
// artifact, leaving the number available for retry.
func (s *VerificationService) SubmitCode(ctx context.Context, userID int64, code string) (*SubmitResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.session(userID)
	if sess == nil || sess.State != StateAwaitingCode {
		return rejected(ReasonNoActiveSession), nil
	}

	err := s.client.RedeemCode(ctx, sess.ArtifactPath, sess.Phone, sess.ChallengeID, code)
	if errors.Is(err, provider.ErrSecondFactorRequired) {
		sess.State = StateAwaitingSecondFactor
		return &SubmitResult{Outcome: OutcomeSecondFactorRequired, Phone: sess.Phone}, nil
	}
	if err != nil {
		s.release(ctx, userID)
		return rejected(fmt.Sprintf("code rejected: %v", err)), nil
	}

	return s.secure(ctx, userID, sess, "")
}

// SubmitSecondFactor completes a flow that required the account's cloud
// password. A wrong secret is rejected but keeps the session alive so the
// user can retry it or restart with a fresh phone submission.
func (s *VerificationService) SubmitSecondFactor(ctx context.Context, userID int64, secret string) (*SubmitResult, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess := s.session(userID)
	if sess == nil || sess.State != StateAwaitingSecondFactor {
		return rejected(ReasonNoActiveSession), nil
	}

	if err := s.client.RedeemSecondFactor(ctx, sess.ArtifactPath, secret); err != nil {
		return rejected("current 2FA password is incorrect"), nil
	}

	return s.secure(ctx, userID, sess, secret)
}

// secure is the shared tail of both successful sign-in paths: take over the
// account's two-factor password, enforce device exclusivity, promote the
// artifact to its durable per-region location and clear the session.
func (s *VerificationService) secure(ctx context.Context, userID int64, sess *VerificationSession, currentSecret string) (*SubmitResult, error) {
	if err := s.client.SetTwoFactor(ctx, sess.ArtifactPath, currentSecret, s.cfg.DefaultTwoFactor, s.cfg.TwoFactorHint); err != nil {
		s.release(ctx, userID)
		return rejected(fmt.Sprintf("2FA setup failed: %v", err)), nil
	}

	if !s.enforcer.Secure(ctx, sess.ArtifactPath) {
		s.release(ctx, userID)
		return rejected("could not reach exclusive device ownership"), nil
	}

	if err := s.artifacts.Promote(sess.ArtifactPath, sess.RegionCode, sess.Phone); err != nil {
		s.release(ctx, userID)
		return rejected(fmt.Sprintf("failed to persist credential: %v", err)), nil
	}
	final := s.artifacts.Path(sess.RegionCode, sess.Phone)

	region, err := s.regions.Match(sess.Phone)
	if err != nil {
		s.setSession(userID, nil)
		return nil, err
	}
	if region == nil {
		// Region vanished mid-flow; the artifact stays but no reward runs.
		s.setSession(userID, nil)
		return rejected(ReasonRegionUnsupported), nil
	}

	sess.State = StateSecured
	s.setSession(userID, nil)

	log.Printf("Verification: secured %s (region %s)", sess.Phone, sess.RegionCode)
	return &SubmitResult{
		Outcome:      OutcomeSecured,
		Phone:        sess.Phone,
		Region:       region,
		ArtifactPath: final,
	}, nil
}

// Release drops the user's live session, disconnects the provider and
// removes the temp artifact. Used on replacement and on cancellation.
func (s *VerificationService) Release(ctx context.Context, userID int64) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	s.release(ctx, userID)
}

func (s *VerificationService) release(ctx context.Context, userID int64) {
	sess := s.session(userID)
	if sess == nil {
		return
	}
	if err := s.client.Disconnect(ctx, sess.ArtifactPath); err != nil {
		log.Printf("Verification: disconnect for user %d: %v", userID, err)
	}
	if sess.State != StateSecured {
		if err := s.artifacts.Remove(sess.ArtifactPath); err != nil {
			log.Printf("Verification: removing artifact for user %d: %v", userID, err)
		}
	}
	s.setSession(userID, nil)
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vipreceiver/backend/internal/config"
)

// GatewayClient talks to the MTProto gateway sidecar over HTTP. The gateway
// owns the live account connections and the session-file format; this client
// only moves requests and artifact paths across.
type GatewayClient struct {
	cfg    *config.Config
	client *http.Client
}

func NewGatewayClient(cfg *config.Config) *GatewayClient {
	return &GatewayClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type gatewayRequest struct {
	Artifact    string `json:"artifact"`
	Phone       string `json:"phone,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
	Code        string `json:"code,omitempty"`
	Password    string `json:"password,omitempty"`
	NewPassword string `json:"new_password,omitempty"`
	Hint        string `json:"hint,omitempty"`
	Hash        int64  `json:"hash,omitempty"`
}

type gatewayResponse struct {
	Ok                   bool            `json:"ok"`
	Error                string          `json:"error,omitempty"`
	StorageBusy          bool            `json:"storage_busy,omitempty"`
	SecondFactorRequired bool            `json:"second_factor_required,omitempty"`
	ChallengeID          string          `json:"challenge_id,omitempty"`
	Authorizations       []Authorization `json:"authorizations,omitempty"`
}

func (g *GatewayClient) call(ctx context.Context, endpoint string, payload gatewayRequest) (*gatewayResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", g.cfg.GatewayURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.GatewayAPIKey != "" {
		req.Header.Set("X-Api-Key", g.cfg.GatewayAPIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("gateway %s: decode response: %w", endpoint, err)
	}
	if !out.Ok {
		if out.SecondFactorRequired {
			return &out, ErrSecondFactorRequired
		}
		if out.StorageBusy || looksLikeStorageError(out.Error) {
			return &out, fmt.Errorf("gateway %s: %s: %w", endpoint, out.Error, ErrStorageBusy)
		}
		return &out, fmt.Errorf("gateway %s: %s", endpoint, out.Error)
	}
	return &out, nil
}

// The gateway keeps sessions in sqlite; contention surfaces as lock errors.
func looksLikeStorageError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database")
}

func (g *GatewayClient) RequestCode(ctx context.Context, phone, artifactPath string) (string, error) {
	resp, err := g.call(ctx, "/sendCode", gatewayRequest{Artifact: artifactPath, Phone: phone})
	if err != nil {
		return "", err
	}
	return resp.ChallengeID, nil
}

func (g *GatewayClient) RedeemCode(ctx context.Context, artifactPath, phone, challengeID, code string) error {
	_, err := g.call(ctx, "/signIn", gatewayRequest{
		Artifact:    artifactPath,
		Phone:       phone,
		ChallengeID: challengeID,
		Code:        code,
	})
	return err
}

func (g *GatewayClient) RedeemSecondFactor(ctx context.Context, artifactPath, secret string) error {
	_, err := g.call(ctx, "/checkPassword", gatewayRequest{Artifact: artifactPath, Password: secret})
	return err
}

func (g *GatewayClient) SetTwoFactor(ctx context.Context, artifactPath, current, newPassword, hint string) error {
	_, err := g.call(ctx, "/editTwoFactor", gatewayRequest{
		Artifact:    artifactPath,
		Password:    current,
		NewPassword: newPassword,
		Hint:        hint,
	})
	return err
}

func (g *GatewayClient) Authorizations(ctx context.Context, artifactPath string) ([]Authorization, error) {
	resp, err := g.call(ctx, "/authorizations", gatewayRequest{Artifact: artifactPath})
	if err != nil {
		return nil, err
	}
	return resp.Authorizations, nil
}

func (g *GatewayClient) Revoke(ctx context.Context, artifactPath string, hash int64) error {
	_, err := g.call(ctx, "/resetAuthorization", gatewayRequest{Artifact: artifactPath, Hash: hash})
	return err
}

func (g *GatewayClient) Validate(ctx context.Context, artifactPath string) error {
	_, err := g.call(ctx, "/validate", gatewayRequest{Artifact: artifactPath})
	return err
}

func (g *GatewayClient) Disconnect(ctx context.Context, artifactPath string) error {
	_, err := g.call(ctx, "/disconnect", gatewayRequest{Artifact: artifactPath})
	return err
}

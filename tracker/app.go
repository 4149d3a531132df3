package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// AppConfig holds GitHub App credentials for installation-token minting.
// Using an App identity instead of a personal token keeps workflow commits
// and PRs attributable to the automation, not a human account.
type AppConfig struct {
	// AppID is the GitHub App identifier.
	AppID int64

	// InstallationID identifies the installation on the target org/repo.
	InstallationID int64

	// PrivateKeyPEM is the App's RSA private key in PEM form.
	PrivateKeyPEM []byte
}

// appJWTTTL is the lifetime of the App JWT. GitHub rejects anything over
// ten minutes.
const appJWTTTL = 9 * time.Minute

// MintAppJWT creates the short-lived RS256 JWT that authenticates as the
// App itself (not an installation).
func MintAppJWT(cfg AppConfig) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("parse app private key: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    fmt.Sprintf("%d", cfg.AppID),
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)), // allow clock skew
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign app JWT: %w", err)
	}
	return signed, nil
}

// NewGitHubFromApp exchanges App credentials for an installation token and
// returns a GitHub client authenticated with it. Installation tokens expire
// after an hour, which comfortably covers a single workflow run.
func NewGitHubFromApp(ctx context.Context, cfg AppConfig, opts ...GitHubOption) (*GitHub, error) {
	appJWT, err := MintAppJWT(cfg)
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: appJWT})
	appClient := github.NewClient(oauth2.NewClient(ctx, ts))

	instToken, _, err := appClient.Apps.CreateInstallationToken(
		ctx, cfg.InstallationID, &github.InstallationTokenOptions{})
	if err != nil {
		return nil, fmt.Errorf("create installation token: %w", err)
	}

	return NewGitHub(instToken.GetToken(), opts...)
}

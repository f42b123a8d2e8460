package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// fetchUserInfo consulta un userinfo endpoint explícito (sin discovery OIDC).
func fetchUserInfo(ctx context.Context, url string, ts oauth2.TokenSource, sess *Session) error {
	client := oauth2.NewClient(ctx, ts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return mapUserInfoError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrExpiredToken
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: userinfo status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &claims); err != nil {
		return fmt.Errorf("%w: userinfo decode: %v", ErrProviderUnavailable, err)
	}
	if claims.Sub == "" {
		return fmt.Errorf("%w: userinfo without sub", ErrExpiredToken)
	}

	sess.SubjectID = claims.Sub
	sess.Email = claims.Email
	sess.Name = claims.Name
	sess.AvatarURL = claims.Picture
	return nil
}

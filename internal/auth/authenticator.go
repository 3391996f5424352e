package auth

import (
	"context"
	"net/http"

	"movie_api/internal/models"
)

// Authenticator is what the router plugs in: local (username/password)
// authentication for the login route and bearer authentication for every
// protected route.
type Authenticator struct {
	verifier *CredentialVerifier
	tokens   *TokenService
}

func NewAuthenticator(verifier *CredentialVerifier, tokens *TokenService) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		tokens:   tokens,
	}
}

func (a *Authenticator) AuthenticateLocal(ctx context.Context, creds Credentials) (*models.User, error) {
	return a.verifier.Verify(ctx, creds.Username, creds.Password)
}

func (a *Authenticator) AuthenticateBearer(r *http.Request) (*models.User, error) {
	raw, err := BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, err
	}
	return a.tokens.Verify(r.Context(), raw)
}

// Issue delegates to the token service so the login route needs one collaborator.
func (a *Authenticator) Issue(user *models.User) (string, error) {
	return a.tokens.Issue(user)
}

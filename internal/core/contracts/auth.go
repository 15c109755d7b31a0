package contracts

//go:generate mockgen -source=auth.go -destination=../../mocks/mock_auth.go -package=mocks

// Authenticator resolves an identity token to a user id.
type Authenticator interface {
	ValidateToken(token string) (string, error)
}

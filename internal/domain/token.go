package domain

// TokenPair is a freshly signed access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the outcome of a successful first-factor login.
//
// When TwoFARequired is true only AuthToken is set: the caller must complete
// second-factor verification before any access token is issued. Otherwise
// AccessToken and RefreshToken are set and AuthToken is empty.
type LoginResult struct {
	TwoFARequired bool
	AuthToken     string
	AccessToken   string
	RefreshToken  string
}

package testutils

import "github.com/nfrund/durian/internal/domain"

// TestUser is a registration fixture for integration tests. Password is kept
// alongside the user because the gateway never returns it.
type TestUser struct {
	domain.User
	Password string `json:"password"`
}

// Registration converts the fixture into a sign-up payload.
func (u TestUser) Registration() domain.Registration {
	return domain.Registration{Name: u.Name, Email: u.Email, Password: u.Password}
}

// Credentials converts the fixture into a sign-in payload.
func (u TestUser) Credentials() domain.Credentials {
	return domain.Credentials{Email: u.Email, Password: u.Password}
}

// Ann is the default fixture.
var Ann = TestUser{
	User:     domain.User{Name: "Ann Lee", Email: "ann@example.com"},
	Password: "correct horse battery staple",
}

package users

import "github.com/rojas-cambio/cambio/internal/model"

// DefaultAdminEmail is the administrator created by `cambio init` when no
// email is given.
const DefaultAdminEmail = "admin@cambio.local"

// DefaultAdmin returns the first administrator of a new data directory.
func DefaultAdmin(name, email, password string) NewUser {
	if name == "" {
		name = "Administrador"
	}
	if email == "" {
		email = DefaultAdminEmail
	}
	return NewUser{Name: name, Email: email, Password: password, Role: model.RoleAdmin}
}

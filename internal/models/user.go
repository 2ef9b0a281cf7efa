package models

// User is a provisioned account. Records are created out of band and are
// read-only to the server.
type User struct {
	ID string `json:"-" yaml:"-"` // taken from the record's file name

	// Password is the plaintext credential of legacy records; PasswordHash
	// holds a bcrypt hash and takes precedence when both are set.
	Password     string `json:"password,omitempty"      yaml:"password,omitempty"`
	PasswordHash string `json:"password_hash,omitempty" yaml:"password_hash,omitempty"`

	// Devices lists owned device identifiers in SYNC order.
	Devices []string `json:"devices" yaml:"devices"`
}

// HasPasswordHash reports whether the record stores a bcrypt hash.
func (u *User) HasPasswordHash() bool {
	return u.PasswordHash != ""
}

package models

import "time"

// AccessToken maps a bearer token to its owner. Only the SHA-256 of the
// token is stored. Tokens carry no expiry; they live until revoked.
type AccessToken struct {
	ID        string `gorm:"primaryKey;size:36"`
	TokenHash string `gorm:"uniqueIndex;not null;size:64"`
	UserID    string `gorm:"not null;index"`
	ClientID  string `gorm:"not null;index"`
	CreatedAt time.Time
}

func (AccessToken) TableName() string {
	return "access_tokens"
}

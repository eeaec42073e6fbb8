package domain

import "time"

// FederatedIdentity contiene los claims verificados de un ID token externo.
// No se persiste; solo el subject queda ligado al User.
type FederatedIdentity struct {
	Subject   string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	ExpiresAt time.Time
}

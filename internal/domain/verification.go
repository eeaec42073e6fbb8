package domain

import "time"

// Channel identifica el canal usado para probar propiedad de un contacto.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// VerificationCode es el codigo vivo para un (usuario, canal).
// Como mucho existe una fila por par; un envio nuevo reemplaza la anterior.
type VerificationCode struct {
	UserID    string
	Channel   Channel
	CodeHash  string
	Attempts  int
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired indica si el codigo ya no es aceptable en el instante dado.
func (c VerificationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

package domain

import "time"

// UserDetail guarda atributos de perfil dependientes del usuario.
// Se elimina en cascada antes de borrar la fila de User.
type UserDetail struct {
	DetailID  string     `json:"detail_id"`
	UserID    string     `json:"user_id"`
	DOB       *time.Time `json:"dob,omitempty"`
	HeightCm  float64    `json:"height_cm,omitempty"`
	WaistCm   float64    `json:"waist_cm,omitempty"`
	WeightKg  float64    `json:"weight_kg,omitempty"`
	Gender    string     `json:"gender,omitempty"`
	Allergen  string     `json:"allergen,omitempty"`
	Disease   string     `json:"disease,omitempty"`
}

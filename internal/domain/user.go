package domain

// User identifica al estudiante que resuelve los casos.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// UserContext es la identidad a la que se atribuye cada request.
type UserContext struct {
	UserID   int64
	Username string
}

const (
	DefaultUsername  = "medstudent"
	DefaultName      = "Dr. Candidate"
	DefaultSpecialty = "General Medicine"
)

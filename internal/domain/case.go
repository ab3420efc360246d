package domain

const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

const CaseStatusAvailable = "available"

// Case es un escenario clinico sembrado al arrancar; es de solo lectura despues.
type Case struct {
	ID                  int64  `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Specialty           string `json:"specialty"`
	Difficulty          string `json:"difficulty"`
	ExpectedDiagnosis   string `json:"expectedDiagnosis"`
	AcceptableDiagnoses string `json:"acceptableDiagnoses"` // separadas por coma
	ImageURL            string `json:"imageUrl,omitempty"`
	Status              string `json:"status"`
}

// Findings agrupa lo que se extrae de la descripcion de un caso.
type Findings struct {
	Presenting   []string `json:"presenting"`
	Absent       []string `json:"absent"`
	ExamFindings []string `json:"examFindings"`
}

package domain

import "time"

// DiagnosisResult clasifica el diagnostico enviado por el estudiante.
type DiagnosisResult string

const (
	ResultCorrect DiagnosisResult = "correct"
	ResultPartial DiagnosisResult = "partial"
	ResultWrong   DiagnosisResult = "wrong"
)

type Completion struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	CaseID      int64           `json:"caseId"`
	ChatID      int64           `json:"chatId"`
	Result      DiagnosisResult `json:"result"`
	Diagnosis   string          `json:"diagnosis"`
	CompletedAt time.Time       `json:"completedAt"`
}

// CompletionResult es lo que devuelve POST /api/completions.
type CompletionResult struct {
	Completion Completion      `json:"completion"`
	Result     DiagnosisResult `json:"result"`
}

// UserStats resume el progreso del usuario.
type UserStats struct {
	Streak      int `json:"streak"`
	CasesSolved int `json:"casesSolved"`
	Accuracy    int `json:"accuracy"`
}

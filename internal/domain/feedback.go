package domain

// Feedback es el tablero que se muestra despues de diagnosticar.
type Feedback struct {
	Score            int             `json:"score"`
	Breakdown        ScoreBreakdown  `json:"breakdown"`
	DecisionTree     DecisionNode    `json:"decisionTree"`
	Clues            []Clue          `json:"clues"`
	Insight          Insight         `json:"insight"`
	UserDiagnosis    string          `json:"userDiagnosis"`
	CorrectDiagnosis string          `json:"correctDiagnosis"`
	Result           DiagnosisResult `json:"result"`
	Source           FeedbackSource  `json:"source"`
}

type ScoreBreakdown struct {
	CorrectDiagnosis      int `json:"correctDiagnosis"`
	KeyQuestions          int `json:"keyQuestions"`
	RightTests            int `json:"rightTests"`
	TimeEfficiency        int `json:"timeEfficiency"`
	RuledOutDifferentials int `json:"ruledOutDifferentials"`
}

// DecisionNode es un nodo del arbol de decision; Type es symptom, test o diagnosis.
type DecisionNode struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Type     string         `json:"type"`
	Asked    bool           `json:"asked"`
	Children []DecisionNode `json:"children"`
}

// Clue es un dato clinico que el estudiante pregunto o paso por alto.
type Clue struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Importance string `json:"importance"` // critical, helpful, minor
	Asked      bool   `json:"asked"`
}

type Insight struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Tip          string   `json:"tip"`
}

type FeedbackSource struct {
	IsAIGenerated bool   `json:"isAiGenerated"`
	Reason        string `json:"reason,omitempty"`
}

package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"medcase/internal/domain"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")

	errNoJSONObject = errors.New("no json object in llm response")
)

// stripJSONFences quita BOM y fences ```json ... ``` de la respuesta del modelo.
func stripJSONFences(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// firstJSONObject devuelve el primer objeto {...} balanceado, ignorando llaves dentro
// de strings. "" si no hay ninguno completo.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// llmFeedback es el formato snake_case que pedimos al modelo. Los punteros distinguen
// campos ausentes de ceros.
type llmFeedback struct {
	Score     *int `json:"score"`
	Breakdown struct {
		CorrectDiagnosis      int `json:"correct_diagnosis"`
		KeyQuestions          int `json:"key_questions"`
		RightTests            int `json:"right_tests"`
		TimeEfficiency        int `json:"time_efficiency"`
		RuledOutDifferentials int `json:"ruled_out_differentials"`
	} `json:"breakdown"`
	DecisionTree *llmNode `json:"decision_tree"`
	Clues        []struct {
		ID         string `json:"id"`
		Text       string `json:"text"`
		Importance string `json:"importance"`
		Asked      bool   `json:"asked"`
	} `json:"clues"`
	Insight struct {
		Summary      string   `json:"summary"`
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
		Tip          string   `json:"tip"`
	} `json:"insight"`
	UserDiagnosis    string `json:"user_diagnosis"`
	CorrectDiagnosis string `json:"correct_diagnosis"`
	Result           string `json:"result"`
}

type llmNode struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     string    `json:"type"`
	Asked    *bool     `json:"asked"`
	Children []llmNode `json:"children"`
}

func (n llmNode) toDomain() domain.DecisionNode {
	out := domain.DecisionNode{
		ID:       orDefault(n.ID, "node"),
		Label:    orDefault(n.Label, "Unknown"),
		Type:     orDefault(n.Type, nodeSymptom),
		Asked:    n.Asked == nil || *n.Asked,
		Children: make([]domain.DecisionNode, 0, len(n.Children)),
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.toDomain())
	}
	return out
}

// parseLLMFeedback decodifica la respuesta del modelo y completa los campos faltantes
// con valores derivados del caso y la completion.
func parseLLMFeedback(raw string, c domain.Case, completion domain.Completion) (domain.Feedback, error) {
	obj := firstJSONObject(stripJSONFences(raw))
	if obj == "" {
		return domain.Feedback{}, errNoJSONObject
	}
	var in llmFeedback
	if err := json.Unmarshal([]byte(obj), &in); err != nil {
		return domain.Feedback{}, fmt.Errorf("decode llm feedback: %w", err)
	}

	fb := domain.Feedback{
		Score: 50,
		Breakdown: domain.ScoreBreakdown{
			CorrectDiagnosis:      in.Breakdown.CorrectDiagnosis,
			KeyQuestions:          in.Breakdown.KeyQuestions,
			RightTests:            in.Breakdown.RightTests,
			TimeEfficiency:        in.Breakdown.TimeEfficiency,
			RuledOutDifferentials: in.Breakdown.RuledOutDifferentials,
		},
		DecisionTree: domain.DecisionNode{ID: "root", Label: "Interview", Type: nodeSymptom, Asked: true, Children: []domain.DecisionNode{}},
		Clues:        make([]domain.Clue, 0, len(in.Clues)),
		Insight: domain.Insight{
			Summary:      orDefault(in.Insight.Summary, "Review your approach to this "+c.Specialty+" case."),
			Strengths:    in.Insight.Strengths,
			Improvements: in.Insight.Improvements,
			Tip:          orDefault(in.Insight.Tip, "Use structured history-taking for consistent results."),
		},
		UserDiagnosis:    orDefault(in.UserDiagnosis, completion.Diagnosis),
		CorrectDiagnosis: orDefault(in.CorrectDiagnosis, c.ExpectedDiagnosis),
		Result:           completion.Result,
		Source:           domain.FeedbackSource{IsAIGenerated: true},
	}
	if in.Score != nil {
		fb.Score = clamp(*in.Score, 0, 100)
	}
	if in.DecisionTree != nil {
		fb.DecisionTree = in.DecisionTree.toDomain()
	}
	for i, cl := range in.Clues {
		fb.Clues = append(fb.Clues, domain.Clue{
			ID:         orDefault(cl.ID, fmt.Sprintf("clue%d", i)),
			Text:       orDefault(cl.Text, "Unknown"),
			Importance: orDefault(cl.Importance, importanceHelpful),
			Asked:      cl.Asked,
		})
	}
	if len(fb.Insight.Strengths) == 0 {
		fb.Insight.Strengths = []string{"Engaged with the patient"}
	}
	if len(fb.Insight.Improvements) == 0 {
		fb.Insight.Improvements = []string{"Consider a more systematic approach"}
	}
	switch r := domain.DiagnosisResult(in.Result); r {
	case domain.ResultCorrect, domain.ResultPartial, domain.ResultWrong:
		fb.Result = r
	}
	return fb, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

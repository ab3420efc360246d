package service

import (
	"strings"

	"medcase/internal/domain"
)

// EvaluateDiagnosis clasifica el diagnostico libre contra el caso. La comparacion es
// insensible a mayusculas y por substring en ambos sentidos: primero contra el
// diagnostico esperado (correct), luego contra cada alternativa aceptable (partial).
// Entradas cortas como "mi" pueden coincidir con textos no relacionados; se acepta.
func EvaluateDiagnosis(diagnosis string, c domain.Case) domain.DiagnosisResult {
	input := normalizeDiagnosis(diagnosis)
	if input == "" {
		return domain.ResultWrong
	}

	if expected := normalizeDiagnosis(c.ExpectedDiagnosis); expected != "" && containsEither(input, expected) {
		return domain.ResultCorrect
	}

	for _, token := range acceptableTokens(c.AcceptableDiagnoses) {
		if containsEither(input, token) {
			return domain.ResultPartial
		}
	}
	return domain.ResultWrong
}

func normalizeDiagnosis(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func acceptableTokens(field string) []string {
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := normalizeDiagnosis(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

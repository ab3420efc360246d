package service

import (
	"strings"

	"medcase/internal/domain"
)

// Patrones por sistema, en el orden en que se reportan.
var symptomPatterns = [][]string{
	{"chest pain", "palpitations", "shortness of breath", "radiating pain", "arm pain", "jaw pain", "sweating"},
	{"headache", "weakness", "numbness", "confusion", "aphasia", "hemiparesis", "dizziness", "vision changes"},
	{"cough", "wheezing", "dyspnea", "sputum", "hemoptysis", "breathing difficulty"},
	{"nausea", "vomiting", "abdominal pain", "diarrhea", "constipation", "bloating"},
	{"fever", "chills", "rash", "fatigue", "malaise", "night sweats"},
	{"joint pain", "stiffness", "swelling", "muscle pain", "back pain"},
}

var examPatterns = []string{"blood pressure", "heart rate", "pulse", "temperature", "tenderness", "swelling"}

// Sintomas que se descartan cuando la descripcion no los menciona.
var ruleOutSymptoms = []string{"fever", "nausea", "vomiting", "headache", "rash"}

const maxRuleOuts = 3

// ExtractFindings recorre la descripcion del caso buscando sintomas presentes, hallazgos
// de examen y sintomas a descartar. Solo hay descartes si hay al menos un sintoma presente.
func ExtractFindings(description string) domain.Findings {
	text := strings.ToLower(description)
	f := domain.Findings{
		Presenting:   []string{},
		Absent:       []string{},
		ExamFindings: []string{},
	}

	seen := make(map[string]bool)
	for _, group := range symptomPatterns {
		for _, s := range group {
			if !seen[s] && strings.Contains(text, s) {
				seen[s] = true
				f.Presenting = append(f.Presenting, s)
			}
		}
	}

	for _, e := range examPatterns {
		if strings.Contains(text, e) {
			f.ExamFindings = append(f.ExamFindings, e)
		}
	}

	if len(f.Presenting) == 0 {
		return f
	}
	for _, s := range ruleOutSymptoms {
		if strings.Contains(text, s) {
			continue
		}
		f.Absent = append(f.Absent, s)
		if len(f.Absent) >= maxRuleOuts {
			break
		}
	}
	return f
}

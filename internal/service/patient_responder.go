package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/llm"
)

const noAnswerReply = "I'm not feeling well, doctor. Can you ask me more specific questions?"

// PatientResponder genera la respuesta del paciente simulado. Con LLM configurado usa
// el modelo y, ante cualquier fallo, responde por reglas a partir de los hallazgos.
type PatientResponder struct {
	logger *zap.Logger
	llm    llm.LLMClient
}

func NewPatientResponder(logger *zap.Logger, client llm.LLMClient) *PatientResponder {
	return &PatientResponder{logger: logger, llm: client}
}

func (r *PatientResponder) Respond(ctx context.Context, c domain.Case, history []domain.Message, studentMessage string) string {
	findings := ExtractFindings(c.Description)
	if r.llm != nil {
		out, err := r.llm.Generate(ctx, patientSystemPrompt, buildPatientPrompt(c, findings, history, studentMessage))
		if err == nil {
			if reply := strings.TrimSpace(out); reply != "" {
				return reply
			}
		}
		r.logger.Warn("patient llm failed, using rule-based reply", zap.Int64("case_id", c.ID), zap.Error(err))
	}
	return fallbackPatientReply(c, findings, studentMessage)
}

type symptomKeywords struct {
	name     string
	keywords []string
}

var patientSymptomKeywords = []symptomKeywords{
	{"pain", []string{"pain", "hurt", "ache", "sore"}},
	{"fever", []string{"fever", "temperature", "hot", "chills"}},
	{"cough", []string{"cough", "coughing"}},
	{"nausea", []string{"nausea", "nauseous", "sick to stomach"}},
	{"vomiting", []string{"vomit", "throw up", "throwing up"}},
	{"diarrhea", []string{"diarrhea", "loose stool", "bowel"}},
	{"headache", []string{"headache", "head hurt", "head pain"}},
	{"tired", []string{"tired", "fatigue", "exhausted", "energy"}},
	{"dizzy", []string{"dizzy", "dizziness", "lightheaded"}},
	{"rash", []string{"rash", "skin", "bumps", "itchy"}},
}

var (
	examWords      = []string{"examine", "check", "look at", "feel", "listen", "blood pressure", "temperature"}
	durationWords  = []string{"how long", "when did", "started", "begin", "days", "hours"}
	severityWords  = []string{"how bad", "scale", "severe", "worse", "better"}
	diagnosisWords = []string{"diagnose", "diagnosis", "think it", "believe it"}
)

// fallbackPatientReply responde por palabras clave. El orden importa: sintomas, examen,
// duracion, severidad, diagnostico y por ultimo la queja principal.
func fallbackPatientReply(c domain.Case, f domain.Findings, studentMessage string) string {
	msg := strings.ToLower(studentMessage)

	for _, sk := range patientSymptomKeywords {
		if !containsAny(msg, sk.keywords) {
			continue
		}
		for _, ps := range f.Presenting {
			if matchesSymptom(ps, sk) {
				return "Yes, I've been having that. " + ps
			}
		}
		for _, ab := range f.Absent {
			if matchesSymptom(ab, sk) {
				return "No, I haven't had that."
			}
		}
		return "I'm not sure about that. I haven't really noticed."
	}

	switch {
	case containsAny(msg, examWords):
		if len(f.ExamFindings) > 0 {
			return "Okay, go ahead. *The examination shows: " + f.ExamFindings[0] + "*"
		}
		return "Okay, go ahead doctor."
	case containsAny(msg, durationWords):
		return "It started a few days ago, I think."
	case containsAny(msg, severityWords):
		return "It's pretty uncomfortable. Maybe a 5 or 6 out of 10?"
	case containsAny(msg, diagnosisWords):
		return "Okay doctor, what do you think it is? I hope it's nothing serious."
	}

	if complaint := strings.TrimSpace(c.Title); complaint != "" {
		return "Well, " + strings.ToLower(complaint) + ". It's been really bothering me."
	}
	return noAnswerReply
}

func matchesSymptom(symptom string, sk symptomKeywords) bool {
	s := strings.ToLower(symptom)
	return strings.Contains(s, sk.name) || containsAny(s, sk.keywords)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

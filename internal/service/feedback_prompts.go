package service

import (
	"fmt"
	"strings"

	"medcase/internal/domain"
)

const feedbackSystemPrompt = `You are a clinical education evaluator reviewing a medical student's diagnostic interview with a simulated patient.
Score the interview out of 100:
- correct_diagnosis 0-40: exact diagnosis 40, minor terminology differences 30-39, right category 20-29, related system 10-19, wrong 0-9.
- key_questions 0-20: onset, duration, severity, associated symptoms, history, medications, red flags.
- right_tests 0-20: appropriate physical examinations requested.
- time_efficiency 0-10: focused questioning without repetition.
- ruled_out_differentials 0-10: evidence of considering and excluding other conditions.
Base every comment on what the student actually asked. Be specific and constructive.
Respond ONLY with a JSON object of this shape:
{"score":0,"breakdown":{"correct_diagnosis":0,"key_questions":0,"right_tests":0,"time_efficiency":0,"ruled_out_differentials":0},
"decision_tree":{"id":"root","label":"","type":"symptom","asked":true,"children":[]},
"clues":[{"id":"","text":"","importance":"critical|helpful|minor","asked":false}],
"insight":{"summary":"","strengths":[],"improvements":[],"tip":""},
"user_diagnosis":"","correct_diagnosis":"","result":"correct|partial|wrong"}
Decision tree node types are symptom, test, ruled_out and diagnosis.`

func buildFeedbackPrompt(c domain.Case, f domain.Findings, messages []domain.Message, completion domain.Completion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Case title: %s\n", c.Title)
	fmt.Fprintf(&b, "Specialty: %s\n", orNotSpecified(c.Specialty))
	fmt.Fprintf(&b, "Difficulty: %s\n", orNotSpecified(c.Difficulty))
	fmt.Fprintf(&b, "Description: %s\n", orNotSpecified(c.Description))
	fmt.Fprintf(&b, "Expected diagnosis: %s\n", c.ExpectedDiagnosis)
	fmt.Fprintf(&b, "Acceptable diagnoses: %s\n\n", orDefault(c.AcceptableDiagnoses, "None specified"))
	writeList(&b, "Presenting symptoms", f.Presenting)
	writeList(&b, "Absent symptoms", f.Absent)
	writeList(&b, "Exam findings", f.ExamFindings)

	b.WriteString("\nCONVERSATION\n")
	b.WriteString(formatTranscript(messages, "No conversation."))
	fmt.Fprintf(&b, "\n\nStudent diagnosis: %s\n", completion.Diagnosis)
	fmt.Fprintf(&b, "Automatic evaluation: %s\n", completion.Result)
	return b.String()
}

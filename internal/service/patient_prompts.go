package service

import (
	"fmt"
	"strings"

	"medcase/internal/domain"
)

const patientSystemPrompt = `You are simulating a patient in a clinical encounter with a medical student.
Rules:
- Only reveal information present in the case data. If asked about anything else, answer with realistic uncertainty ("I'm not sure", "I haven't noticed that").
- Never reveal, hint at or guess the diagnosis. If the student proposes a diagnosis, react like a worried patient ("Okay, what do you think it is?").
- Presenting symptoms: reveal them only when asked, vaguely at first and with more detail on follow-up.
- Absent symptoms: deny them clearly when asked.
- Exam findings: reveal them only when the student says they are examining you.
- Use plain, everyday language. Keep answers short and consistent with what you already said.
Reply with the patient's words only.`

func buildPatientPrompt(c domain.Case, f domain.Findings, history []domain.Message, studentMessage string) string {
	var b strings.Builder
	b.WriteString("CASE DATA\n")
	fmt.Fprintf(&b, "Chief complaint: %s\n", orNotSpecified(c.Title))
	fmt.Fprintf(&b, "Description: %s\n", orNotSpecified(c.Description))
	writeList(&b, "Presenting symptoms (patient HAS them, reveal when asked)", f.Presenting)
	writeList(&b, "Absent symptoms (patient does NOT have them, deny if asked)", f.Absent)
	writeList(&b, "Exam findings (reveal only on examination)", f.ExamFindings)
	fmt.Fprintf(&b, "Diagnosis (NEVER reveal): %s\n\n", c.ExpectedDiagnosis)

	b.WriteString("CONVERSATION SO FAR\n")
	b.WriteString(formatTranscript(history, "No previous conversation. This is the start of the encounter."))
	b.WriteString("\n\nSTUDENT'S NEW MESSAGE\n")
	b.WriteString(studentMessage)
	return b.String()
}

func formatTranscript(messages []domain.Message, empty string) string {
	if len(messages) == 0 {
		return empty
	}
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := "Patient"
		if m.Sender == domain.SenderUser {
			role = "Student"
		}
		lines = append(lines, role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	b.WriteString(title)
	b.WriteString(":\n")
	if len(items) == 0 {
		b.WriteString("- None specified\n")
		return
	}
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

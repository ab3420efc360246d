package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/llm"
	"medcase/internal/repository"
)

const (
	nodeSymptom   = "symptom"
	nodeTest      = "test"
	nodeDiagnosis = "diagnosis"

	importanceCritical = "critical"
	importanceHelpful  = "helpful"

	reasonNoProvider = "no llm provider configured"
)

// FeedbackService arma el tablero de feedback de la ultima completion de un chat.
type FeedbackService struct {
	logger      *zap.Logger
	llm         llm.LLMClient
	cases       repository.CaseRepository
	chats       repository.ChatRepository
	messages    repository.MessageRepository
	completions *CompletionService
}

func NewFeedbackService(logger *zap.Logger, client llm.LLMClient, store repository.Store, completions *CompletionService) *FeedbackService {
	return &FeedbackService{
		logger:      logger,
		llm:         client,
		cases:       store.Cases,
		chats:       store.Chats,
		messages:    store.Messages,
		completions: completions,
	}
}

func (s *FeedbackService) Build(ctx context.Context, chatID int64) (domain.Feedback, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Feedback{}, ErrChatNotFound
		}
		return domain.Feedback{}, fmt.Errorf("get chat: %w", err)
	}
	c, err := s.cases.GetByID(ctx, chat.CaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Feedback{}, ErrCaseNotFound
		}
		return domain.Feedback{}, fmt.Errorf("get case: %w", err)
	}
	completion, err := s.completions.GetLastCompletionForChat(ctx, chatID)
	if err != nil {
		return domain.Feedback{}, err
	}
	messages, err := s.messages.ListByChatID(ctx, chatID)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("list messages: %w", err)
	}
	findings := ExtractFindings(c.Description)

	if s.llm == nil {
		return fallbackFeedback(c, findings, messages, completion, reasonNoProvider), nil
	}

	raw, err := s.llm.Generate(ctx, feedbackSystemPrompt, buildFeedbackPrompt(c, findings, messages, completion))
	if err == nil {
		var fb domain.Feedback
		if fb, err = parseLLMFeedback(raw, c, completion); err == nil {
			return fb, nil
		}
	}
	s.logger.Warn("feedback llm failed, using rule-based feedback", zap.Int64("chat_id", chatID), zap.Error(err))
	return fallbackFeedback(c, findings, messages, completion, err.Error()), nil
}

type feedbackTopic struct {
	name       string
	variations []string
}

var feedbackTopics = []feedbackTopic{
	{"pain", []string{"pain", "hurt", "ache", "sore"}},
	{"fever", []string{"fever", "temperature", "hot", "chills"}},
	{"cough", []string{"cough", "coughing"}},
	{"nausea", []string{"nausea", "nauseous", "sick"}},
	{"vomiting", []string{"vomit", "throw up", "throwing up"}},
	{"fatigue", []string{"tired", "fatigue", "exhausted", "energy"}},
	{"headache", []string{"headache", "head hurt", "head pain"}},
	{"rash", []string{"rash", "skin", "itchy", "itch"}},
	{"breathing", []string{"breath", "breathing", "shortness"}},
	{"swelling", []string{"swell", "swollen", "swelling"}},
	{"duration", []string{"how long", "when did", "started", "began"}},
	{"severity", []string{"how bad", "scale", "worse", "better"}},
	{"medications", []string{"medication", "medicine", "taking", "drugs"}},
	{"allergies", []string{"allergy", "allergic", "allergies"}},
	{"history", []string{"history", "before", "previous", "past"}},
}

var (
	examRequestKeywords = []string{"examine", "check", "look at", "test", "blood pressure", "temperature", "listen", "vital"}
	historyKeywords     = []string{"history", "before", "medication", "allergy", "family", "previous"}
)

var specialtyTips = map[string]string{
	"Cardiology":  "For cardiac cases, always ask about radiation of pain, associated symptoms like sweating or nausea, and risk factors.",
	"Pulmonology": "For respiratory cases, assess onset, character of cough, sputum production, and any breathing difficulties.",
	"Pediatrics":  "For pediatric cases, consider developmental history, immunization status, and how symptoms affect daily activities.",
}

var baseScores = map[domain.DiagnosisResult]int{
	domain.ResultCorrect: 85,
	domain.ResultPartial: 55,
	domain.ResultWrong:   25,
}

// fallbackFeedback deriva el feedback solo de las preguntas del estudiante y los
// hallazgos del caso.
func fallbackFeedback(c domain.Case, f domain.Findings, messages []domain.Message, completion domain.Completion, reason string) domain.Feedback {
	asked, questions := studentText(messages)
	clues, strengths, improvements := analyzeInterview(f, asked, questions)

	score, ok := baseScores[completion.Result]
	if !ok {
		score = 50
	}

	askedClues := 0
	for _, cl := range clues {
		if cl.Asked {
			askedClues++
		}
	}
	breakdown := domain.ScoreBreakdown{
		CorrectDiagnosis:      5,
		KeyQuestions:          8,
		RightTests:            15,
		TimeEfficiency:        8,
		RuledOutDifferentials: 5,
	}
	switch completion.Result {
	case domain.ResultCorrect:
		breakdown.CorrectDiagnosis = 40
		breakdown.RuledOutDifferentials = 10
	case domain.ResultPartial:
		breakdown.CorrectDiagnosis = 20
	}
	if askedClues > 2 {
		breakdown.KeyQuestions = 12
	}

	if len(clues) == 0 {
		clues = []domain.Clue{
			{ID: "c1", Text: "Chief complaint explored", Importance: importanceCritical, Asked: true},
			{ID: "c2", Text: "Duration of symptoms", Importance: importanceHelpful, Asked: true},
		}
	}

	return domain.Feedback{
		Score:        score,
		Breakdown:    breakdown,
		DecisionTree: buildDecisionTree(c, f, asked, completion),
		Clues:        clues,
		Insight: domain.Insight{
			Summary:      fallbackSummary(c, completion),
			Strengths:    strengths,
			Improvements: improvements,
			Tip:          fallbackTip(c, f),
		},
		UserDiagnosis:    completion.Diagnosis,
		CorrectDiagnosis: c.ExpectedDiagnosis,
		Result:           completion.Result,
		Source:           domain.FeedbackSource{IsAIGenerated: false, Reason: reason},
	}
}

func studentText(messages []domain.Message) (string, int) {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Sender == domain.SenderUser {
			parts = append(parts, strings.ToLower(m.Content))
		}
	}
	return strings.Join(parts, " "), len(parts)
}

func topicAsked(text string, t feedbackTopic) bool {
	return containsAny(text, t.variations)
}

// symptomAsked es true si algun tema cuyo nombre aparece en el sintoma fue preguntado.
func symptomAsked(symptom, text string) bool {
	lower := strings.ToLower(symptom)
	for _, t := range feedbackTopics {
		if strings.Contains(lower, t.name) && topicAsked(text, t) {
			return true
		}
	}
	return false
}

func analyzeInterview(f domain.Findings, text string, questions int) ([]domain.Clue, []string, []string) {
	var (
		clues        []domain.Clue
		strengths    []string
		improvements []string
	)

	for i, symptom := range firstN(f.Presenting, 5) {
		asked := symptomAsked(symptom, text)
		importance := importanceHelpful
		if i < 2 {
			importance = importanceCritical
		}
		clues = append(clues, domain.Clue{ID: fmt.Sprintf("p%d", i+1), Text: symptom, Importance: importance, Asked: asked})

		switch {
		case asked && i < 2:
			strengths = append(strengths, "Asked about "+strings.ToLower(symptom))
		case !asked && i < 3:
			improvements = append(improvements, "Missed asking about "+strings.ToLower(symptom)+" - a key symptom")
		}
	}

	askedTopics := make(map[string]bool, len(feedbackTopics))
	for _, t := range feedbackTopics {
		askedTopics[t.name] = topicAsked(text, t)
	}
	if askedTopics["duration"] {
		strengths = append(strengths, "Inquired about symptom duration and timeline")
	} else {
		improvements = append(improvements, "Should ask about when symptoms started and how long they've lasted")
	}
	if askedTopics["medications"] || askedTopics["history"] {
		strengths = append(strengths, "Explored patient's medical history")
	}

	if len(strengths) < 2 {
		if questions >= 3 {
			strengths = append(strengths, fmt.Sprintf("Asked %d questions to explore the patient's condition", questions))
		} else {
			strengths = append(strengths, "Initiated the diagnostic process with the patient")
		}
	}
	if len(strengths) < 2 {
		switch {
		case strings.Contains(text, "how long") || strings.Contains(text, "when"):
			strengths = append(strengths, "Explored the timeline of symptoms")
		case len(f.Presenting) > 0:
			strengths = append(strengths, "Addressed the patient's main concern about "+strings.ToLower(f.Presenting[0]))
		}
	}

	if len(improvements) < 2 {
		if missed := firstMissedSymptom(f.Presenting, text); missed != "" {
			improvements = append(improvements, "Could have asked about "+strings.ToLower(missed)+" - an important symptom in this case")
		} else {
			improvements = append(improvements, "Consider exploring what makes the symptoms better or worse")
		}
	}
	if len(improvements) < 2 {
		switch {
		case len(f.ExamFindings) > 0 && !strings.Contains(text, "examine") && !strings.Contains(text, "check"):
			improvements = append(improvements, "Physical examination would help - key findings include "+strings.ToLower(f.ExamFindings[0]))
		case len(f.Absent) > 0:
			improvements = append(improvements, "Asking about "+strings.ToLower(f.Absent[0])+" would help rule out other conditions")
		}
	}

	return firstN(clues, 6), firstN(strengths, 3), firstN(improvements, 3)
}

// firstMissedSymptom mira las dos primeras palabras de cada uno de los tres primeros
// sintomas.
func firstMissedSymptom(presenting []string, text string) string {
	for _, s := range firstN(presenting, 3) {
		words := firstN(strings.Fields(strings.ToLower(s)), 2)
		if !containsAny(text, words) {
			return s
		}
	}
	return ""
}

func buildDecisionTree(c domain.Case, f domain.Findings, text string, completion domain.Completion) domain.DecisionNode {
	var asked []string
	for _, s := range firstN(f.Presenting, 3) {
		for _, w := range strings.Fields(strings.ToLower(s)) {
			if len(w) > 3 && strings.Contains(text, w) {
				asked = append(asked, s)
				break
			}
		}
	}

	children := make([]domain.DecisionNode, 0, 6)
	for i, s := range firstN(asked, 2) {
		children = append(children, leaf(fmt.Sprintf("sym%d", i+1), truncate(s, 40), nodeSymptom, true))
	}
	if containsAny(text, examRequestKeywords) && len(f.ExamFindings) > 0 {
		children = append(children, leaf("test1", truncate(f.ExamFindings[0], 40), nodeTest, true))
	}
	if containsAny(text, historyKeywords) {
		children = append(children, leaf("hist", "Medical history reviewed", nodeSymptom, true))
	}
	for i, s := range firstN(f.Presenting, 2) {
		if !contains(asked, s) {
			children = append(children, leaf(fmt.Sprintf("missed%d", i), truncate(s, 35), nodeSymptom, false))
		}
	}
	children = append(children, leaf("diag", completion.Diagnosis, nodeDiagnosis, completion.Result == domain.ResultCorrect))

	root := leaf("root", "Patient presents with symptoms", nodeSymptom, true)
	if c.Title != "" {
		root.Label = truncate(c.Title, 60)
	}
	root.Children = children
	return root
}

func leaf(id, label, typ string, asked bool) domain.DecisionNode {
	return domain.DecisionNode{ID: id, Label: label, Type: typ, Asked: asked, Children: []domain.DecisionNode{}}
}

func fallbackSummary(c domain.Case, completion domain.Completion) string {
	switch completion.Result {
	case domain.ResultCorrect:
		return fmt.Sprintf("Excellent work! You correctly diagnosed %s. Your questioning approach led you to the right conclusion.", c.ExpectedDiagnosis)
	case domain.ResultPartial:
		return fmt.Sprintf("You were close with '%s'. The correct diagnosis was %s. Review the distinguishing features between these conditions.", completion.Diagnosis, c.ExpectedDiagnosis)
	default:
		return fmt.Sprintf("The correct diagnosis was %s, not %s. Review the key symptoms that differentiate this condition.", c.ExpectedDiagnosis, completion.Diagnosis)
	}
}

func fallbackTip(c domain.Case, f domain.Findings) string {
	if tip, ok := specialtyTips[c.Specialty]; ok {
		return tip
	}
	if c.Specialty == domain.DefaultSpecialty {
		key := "the presenting complaints"
		if len(f.Presenting) > 0 {
			key = strings.Join(firstN(f.Presenting, 3), ", ")
		}
		return fmt.Sprintf("For %s, key symptoms include: %s. Always explore these thoroughly.", c.ExpectedDiagnosis, key)
	}
	key := "presenting complaints"
	if len(f.Presenting) > 0 {
		key = strings.Join(firstN(f.Presenting, 2), ", ")
	}
	return fmt.Sprintf("For %s, focus on the characteristic symptoms: %s.", c.ExpectedDiagnosis, key)
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

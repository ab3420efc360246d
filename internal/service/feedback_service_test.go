package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/llm"
	"medcase/internal/repository"
)

func newFeedbackFixture(t *testing.T, client llm.LLMClient, result domain.DiagnosisResult) (*FeedbackService, int64) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	c := seedCases(t, store.Cases, chestPainCase)[0]

	chat, _ := store.Chats.Create(ctx, domain.Chat{UserID: 1, CaseID: c.ID, Status: domain.ChatStatusActive})
	for _, m := range []domain.Message{
		{Sender: domain.SenderAI, Content: GreetingMessage},
		{Sender: domain.SenderUser, Content: "Where is the pain?"},
		{Sender: domain.SenderUser, Content: "How long has it been?"},
		{Sender: domain.SenderUser, Content: "Let me check your blood pressure"},
	} {
		m.ChatID = chat.ID
		if _, err := store.Messages.Create(ctx, m); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}
	if result != "" {
		_, _ = store.Completions.Create(ctx, domain.Completion{
			UserID: 1, CaseID: c.ID, ChatID: chat.ID, Result: result, Diagnosis: "myocardial infarction",
		})
	}

	completions := NewCompletionService(zap.NewNop(), store, nil, nil)
	return NewFeedbackService(zap.NewNop(), client, store, completions), chat.ID
}

func TestFeedbackFallbackWithoutProvider(t *testing.T) {
	svc, chatID := newFeedbackFixture(t, nil, domain.ResultCorrect)

	fb, err := svc.Build(context.Background(), chatID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if fb.Source.IsAIGenerated || fb.Source.Reason != reasonNoProvider {
		t.Fatalf("expected rule-based source, got %+v", fb.Source)
	}
	if fb.Score != 85 {
		t.Fatalf("expected base score 85, got %d", fb.Score)
	}
	want := domain.ScoreBreakdown{CorrectDiagnosis: 40, KeyQuestions: 8, RightTests: 15, TimeEfficiency: 8, RuledOutDifferentials: 10}
	if fb.Breakdown != want {
		t.Fatalf("expected breakdown %+v, got %+v", want, fb.Breakdown)
	}
	if fb.CorrectDiagnosis != "Myocardial infarction" || fb.UserDiagnosis != "myocardial infarction" {
		t.Fatalf("unexpected diagnoses %q / %q", fb.UserDiagnosis, fb.CorrectDiagnosis)
	}

	if len(fb.Clues) != 2 {
		t.Fatalf("expected one clue per presenting symptom, got %+v", fb.Clues)
	}
	if !fb.Clues[0].Asked || fb.Clues[0].Text != "chest pain" || fb.Clues[0].Importance != importanceCritical {
		t.Fatalf("unexpected first clue %+v", fb.Clues[0])
	}
	if fb.Clues[1].Asked || fb.Clues[1].Text != "sweating" {
		t.Fatalf("expected sweating to be missed, got %+v", fb.Clues[1])
	}

	if len(fb.Insight.Strengths) != 2 || fb.Insight.Strengths[0] != "Asked about chest pain" {
		t.Fatalf("unexpected strengths %v", fb.Insight.Strengths)
	}
	if len(fb.Insight.Improvements) != 2 || !strings.Contains(fb.Insight.Improvements[0], "sweating") {
		t.Fatalf("unexpected improvements %v", fb.Insight.Improvements)
	}
	if !strings.HasPrefix(fb.Insight.Summary, "Excellent work!") {
		t.Fatalf("unexpected summary %q", fb.Insight.Summary)
	}

	tree := fb.DecisionTree
	if tree.ID != "root" || tree.Label != "Crushing chest pain" {
		t.Fatalf("unexpected root %+v", tree)
	}
	ids := make([]string, 0, len(tree.Children))
	for _, c := range tree.Children {
		ids = append(ids, c.ID)
	}
	if strings.Join(ids, ",") != "sym1,test1,missed1,diag" {
		t.Fatalf("unexpected tree children %v", ids)
	}
	if diag := tree.Children[len(tree.Children)-1]; !diag.Asked || diag.Type != nodeDiagnosis {
		t.Fatalf("expected correct diagnosis node, got %+v", diag)
	}
}

func TestFeedbackFallbackScores(t *testing.T) {
	tests := []struct {
		result    domain.DiagnosisResult
		score     int
		diagnosis int
	}{
		{domain.ResultCorrect, 85, 40},
		{domain.ResultPartial, 55, 20},
		{domain.ResultWrong, 25, 5},
	}
	for _, tt := range tests {
		t.Run(string(tt.result), func(t *testing.T) {
			svc, chatID := newFeedbackFixture(t, nil, tt.result)
			fb, err := svc.Build(context.Background(), chatID)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if fb.Score != tt.score || fb.Breakdown.CorrectDiagnosis != tt.diagnosis {
				t.Fatalf("expected score %d/%d, got %d/%d", tt.score, tt.diagnosis, fb.Score, fb.Breakdown.CorrectDiagnosis)
			}
			if fb.Result != tt.result {
				t.Fatalf("expected result %s, got %s", tt.result, fb.Result)
			}
		})
	}
}

func TestFeedbackFromLLM(t *testing.T) {
	mock := &llm.MockClient{Response: "```json\n" + `{
		"score": 91,
		"breakdown": {"correct_diagnosis": 40, "key_questions": 18, "right_tests": 15, "time_efficiency": 9, "ruled_out_differentials": 9},
		"decision_tree": {"id": "root", "label": "Chest pain {acute}", "children": [{"id": "q1", "label": "Pain location", "asked": false}]},
		"clues": [{"text": "Radiation to arm", "importance": "critical", "asked": true}],
		"insight": {"summary": "Solid interview.", "strengths": ["Focused"], "improvements": ["Ask about risk factors"], "tip": "Think ACS early."},
		"result": "correct"
	}` + "\n```"}
	svc, chatID := newFeedbackFixture(t, mock, domain.ResultCorrect)

	fb, err := svc.Build(context.Background(), chatID)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !fb.Source.IsAIGenerated {
		t.Fatalf("expected ai generated feedback, got %+v", fb.Source)
	}
	if fb.Score != 91 || fb.Breakdown.KeyQuestions != 18 {
		t.Fatalf("unexpected scores %d %+v", fb.Score, fb.Breakdown)
	}
	if fb.DecisionTree.Label != "Chest pain {acute}" || !fb.DecisionTree.Asked {
		t.Fatalf("unexpected root %+v", fb.DecisionTree)
	}
	if len(fb.DecisionTree.Children) != 1 || fb.DecisionTree.Children[0].Asked || fb.DecisionTree.Children[0].Type != nodeSymptom {
		t.Fatalf("unexpected children %+v", fb.DecisionTree.Children)
	}
	if len(fb.Clues) != 1 || fb.Clues[0].ID != "clue0" {
		t.Fatalf("expected default clue id, got %+v", fb.Clues)
	}
	if fb.UserDiagnosis != "myocardial infarction" || fb.CorrectDiagnosis != "Myocardial infarction" {
		t.Fatalf("expected diagnoses filled from completion and case, got %q / %q", fb.UserDiagnosis, fb.CorrectDiagnosis)
	}
	if mock.Calls() != 1 || !strings.Contains(mock.Prompts[0], "Student: Where is the pain?") {
		t.Fatalf("expected transcript in prompt, got %v", mock.Prompts)
	}
}

func TestFeedbackLLMFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		mock *llm.MockClient
	}{
		{"provider error", &llm.MockClient{Err: errors.New("boom")}},
		{"not json", &llm.MockClient{Response: "I cannot grade this."}},
		{"broken json", &llm.MockClient{Response: `{"score": "high"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, chatID := newFeedbackFixture(t, tt.mock, domain.ResultWrong)
			fb, err := svc.Build(context.Background(), chatID)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if fb.Source.IsAIGenerated || fb.Source.Reason == "" {
				t.Fatalf("expected fallback with reason, got %+v", fb.Source)
			}
			if fb.Score != 25 {
				t.Fatalf("expected 25, got %d", fb.Score)
			}
		})
	}
}

func TestFeedbackErrors(t *testing.T) {
	svc, chatID := newFeedbackFixture(t, nil, "")
	ctx := context.Background()

	if _, err := svc.Build(ctx, chatID); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}
	if _, err := svc.Build(ctx, 999); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`noise {"a": {"b": 1}} trailing {"c": 2}`, `{"a": {"b": 1}}`},
		{`{"s": "brace } inside"}`, `{"s": "brace } inside"}`},
		{`{"s": "escaped \" quote }"}`, `{"s": "escaped \" quote }"}`},
		{`{"open": 1`, ""},
		{"no json", ""},
	}
	for _, tt := range tests {
		if got := firstJSONObject(tt.in); got != tt.want {
			t.Fatalf("firstJSONObject(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medcase/internal/config"
	"medcase/internal/db"
	"medcase/internal/domain"
	"medcase/internal/llm"
	"medcase/internal/seed"
	"medcase/internal/service"
)

type services struct {
	cases       *service.CaseService
	chats       *service.ChatService
	completions *service.CompletionService
	stats       *service.StatsService
	feedback    *service.FeedbackService
	scheduler   *service.ReplyScheduler
}

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewNop()
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	store, closeStore, err := db.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	if _, err := seed.Cases(ctx, store.Cases, cfg.SeedFile, logger); err != nil {
		log.Fatal(err)
	}
	user, err := service.NewUserService(logger, store.Users).EnsureDefault(ctx)
	if err != nil {
		log.Fatal(err)
	}

	llmClient, err := llm.NewFromConfig(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	scheduler := service.NewReplyScheduler(logger, cfg.ReplyDelay)
	defer scheduler.Shutdown(ctx)
	chatSvc := service.NewChatService(logger, store, scheduler, service.NewPatientResponder(logger, llmClient))
	statsSvc := service.NewStatsService(logger, store.Completions, nil)
	completionSvc := service.NewCompletionService(logger, store, chatSvc, statsSvc)
	svc := services{
		cases:       service.NewCaseService(logger, store.Cases, store.Completions),
		chats:       chatSvc,
		completions: completionSvc,
		stats:       statsSvc,
		feedback:    service.NewFeedbackService(logger, llmClient, store, completionSvc),
		scheduler:   scheduler,
	}

	for {
		fmt.Println("===== Casos clinicos =====")
		cases, err := svc.cases.List(ctx)
		if err != nil {
			log.Fatalf("listar casos: %v", err)
		}
		solved, _ := svc.stats.GetCompletedCaseIDs(ctx, user.ID)
		done := make(map[int64]bool, len(solved))
		for _, id := range solved {
			done[id] = true
		}
		for _, c := range cases {
			mark := " "
			if done[c.ID] {
				mark = "x"
			}
			fmt.Printf("[%s] %d. %s (%s, %s)\n", mark, c.ID, c.Title, c.Specialty, c.Difficulty)
		}
		fmt.Println("[S] Estadisticas  [Q] Salir")
		fmt.Print("Selecciona un caso: ")

		choice, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		choice = strings.TrimSpace(choice)
		switch strings.ToUpper(choice) {
		case "Q":
			return
		case "S":
			printStats(ctx, svc, user.ID)
			continue
		}

		caseID, err := strconv.ParseInt(choice, 10, 64)
		if err != nil {
			fmt.Println("Seleccion invalida.")
			continue
		}
		if err := chatFlow(ctx, reader, svc, user, caseID); err != nil {
			fmt.Printf("Error en chat: %v\n", err)
		}
	}
}

func chatFlow(ctx context.Context, reader *bufio.Reader, svc services, user domain.User, caseID int64) error {
	chat, err := svc.chats.CreateChat(ctx, user.ID, caseID)
	if err != nil {
		return fmt.Errorf("crear chat: %w", err)
	}
	shown := printNewMessages(ctx, svc.chats, chat.ID, 0)

	fmt.Println("---- Entrevista (/dx <diagnostico>, /undo, /salir) ----")
	for {
		fmt.Print("Dr > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("leer input: %w", err)
		}
		text = strings.TrimSpace(text)
		switch {
		case text == "":
			continue
		case text == "/salir":
			svc.scheduler.CancelChat(chat.ID)
			return nil
		case text == "/undo":
			if err := svc.completions.Retry(ctx, chat.ID); err != nil {
				fmt.Printf("error deshaciendo: %v\n", err)
			}
			msgs, _ := svc.chats.GetMessages(ctx, chat.ID)
			shown = len(msgs)
			fmt.Println("Ultimo mensaje eliminado.")
			continue
		case strings.HasPrefix(text, "/dx "):
			diagnosis := strings.TrimSpace(strings.TrimPrefix(text, "/dx "))
			return diagnose(ctx, svc, user, caseID, chat.ID, diagnosis)
		}

		if _, err := svc.chats.AddMessage(ctx, chat.ID, domain.SenderUser, text); err != nil {
			fmt.Printf("error guardando mensaje: %v\n", err)
			continue
		}
		shown++
		svc.scheduler.Wait()
		shown = printNewMessages(ctx, svc.chats, chat.ID, shown)
	}
}

// printNewMessages imprime los mensajes del paciente a partir de from y devuelve el total.
func printNewMessages(ctx context.Context, chats *service.ChatService, chatID int64, from int) int {
	msgs, err := chats.GetMessages(ctx, chatID)
	if err != nil {
		fmt.Printf("error leyendo mensajes: %v\n", err)
		return from
	}
	for _, m := range msgs[min(from, len(msgs)):] {
		if m.Sender == domain.SenderAI {
			fmt.Printf("Paciente > %s\n", m.Content)
		}
	}
	return len(msgs)
}

func diagnose(ctx context.Context, svc services, user domain.User, caseID, chatID int64, diagnosis string) error {
	res, err := svc.completions.Complete(ctx, user.ID, caseID, chatID, diagnosis)
	if err != nil {
		return fmt.Errorf("registrar diagnostico: %w", err)
	}
	fmt.Printf("\nResultado: %s\n", strings.ToUpper(string(res.Result)))

	fb, err := svc.feedback.Build(ctx, chatID)
	if err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	fmt.Printf("Puntaje: %d/100 (diagnostico correcto: %s)\n", fb.Score, fb.CorrectDiagnosis)
	fmt.Println(fb.Insight.Summary)
	for _, cl := range fb.Clues {
		mark := "-"
		if cl.Asked {
			mark = "+"
		}
		fmt.Printf("  %s %s [%s]\n", mark, cl.Text, cl.Importance)
	}
	for _, s := range fb.Insight.Improvements {
		fmt.Printf("  * %s\n", s)
	}
	fmt.Printf("Tip: %s\n\n", fb.Insight.Tip)
	return nil
}

func printStats(ctx context.Context, svc services, userID int64) {
	stats, err := svc.stats.GetUserStats(ctx, userID)
	if err != nil {
		fmt.Printf("error leyendo estadisticas: %v\n", err)
		return
	}
	fmt.Printf("Racha: %d  Resueltos: %d  Precision: %d%%\n", stats.Streak, stats.CasesSolved, stats.Accuracy)
}

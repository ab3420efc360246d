package domain

import "time"

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chatId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

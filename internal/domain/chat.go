package domain

import "time"

const ChatStatusActive = "active"

// Chat es una sesion diagnostica de un usuario sobre un caso.
type Chat struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	CaseID    int64     `json:"caseId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatWithMessages es la respuesta de GET /api/chats/:id.
type ChatWithMessages struct {
	Chat
	Messages []Message `json:"messages"`
}

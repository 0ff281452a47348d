package repository

import (
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	"github.com/uptrace/bun"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                 string    `bun:"id,pk"`
	Name               string    `bun:"name,notnull"`
	Phone              string    `bun:"phone,notnull,unique"`
	Email              string    `bun:"email"`
	WelcomeMessageSent bool      `bun:"welcome_message_sent,notnull"`
	CreatedAt          time.Time `bun:"created_at,notnull"`
	UpdatedAt          time.Time `bun:"updated_at,notnull"`
}

func (m *userModel) profile() *contractx.UserProfile {
	return &contractx.UserProfile{
		ID:                 m.ID,
		Name:               m.Name,
		Phone:              m.Phone,
		Email:              m.Email,
		WelcomeMessageSent: m.WelcomeMessageSent,
		CreatedAt:          m.CreatedAt,
	}
}

type conversationModel struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID        string    `bun:"id,pk"`
	SessionID string    `bun:"session_id,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type messageModel struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID             string    `bun:"id,pk"`
	ConversationID string    `bun:"conversation_id,notnull"`
	Sequence       int64     `bun:"sequence,notnull"`
	Role           string    `bun:"role,notnull"`
	Content        string    `bun:"content,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
}

func (m *messageModel) turn() contractx.Turn {
	return contractx.Turn{
		Role:      contractx.Role(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

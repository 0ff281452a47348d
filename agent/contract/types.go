package contract

import (
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// AgentID is the opaque routing code the classifier emits, e.g. "#1".
type AgentID string

func (id AgentID) String() string {
	return string(id)
}

const (
	AgentIDItinerary  AgentID = "#1"
	AgentIDWebSearch  AgentID = "#4"
	AgentIDQueueTimes AgentID = "#5"
)

type Role string

const (
	RoleUser         Role = "user"
	RoleAssistant    Role = "assistant"
	RoleSystem       Role = "system"
	RoleFunctionCall Role = "function_call"
)

// Turn is one entry of the ordered, append-only conversation context.
// Structured content (function calls) is carried as JSON in Content.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// LastUserMessage returns the content of the latest user turn.
func LastUserMessage(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return strings.TrimSpace(turns[i].Content)
		}
	}
	return ""
}

type Status string

const (
	StatusOK          Status = "ok"
	StatusError       Status = "error"
	StatusAskUser     Status = "ask_user"
	StatusToolCall    Status = "tool_call"
	StatusFinalAnswer Status = "final_answer"
)

// AgentResponse is returned by every agent; the transport decides how to
// render it based on Status.
type AgentResponse struct {
	AgentID AgentID        `json:"agent_id"`
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ErrorResponse(message string, payload map[string]any) AgentResponse {
	return AgentResponse{Status: StatusError, Message: message, Payload: payload}
}

type UserProfile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email,omitempty"`
	WelcomeMessageSent bool      `json:"welcome_message_sent"`
	CreatedAt          time.Time `json:"created_at"`
}

type AgentRequest struct {
	Turns      []Turn       `json:"turns"`
	SessionKey string       `json:"session_key"`
	User       *UserProfile `json:"user,omitempty"`
}

type CompletionRequest struct {
	SystemPrompt string
	Messages     []Turn
	Tools        []*schema.ToolInfo
	Temperature  *float32
	MaxTokens    *int
}

type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Completion carries either free text or a single structured tool call.
type Completion struct {
	Content  string    `json:"content,omitempty"`
	ToolCall *ToolCall `json:"tool_call,omitempty"`
}

type Document struct {
	Filename string
	Caption  string
	MIMEType string
	Data     []byte
}

// SessionKeyPrefix prefixes the phone number to form the conversation key.
const SessionKeyPrefix = "session_"

func SessionKeyForPhone(phone string) string {
	return SessionKeyPrefix + strings.TrimSpace(phone)
}

// PhoneFromSessionKey reverses SessionKeyForPhone; other keys are returned as is.
func PhoneFromSessionKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), SessionKeyPrefix)
}

// Phone returns the profile phone when known, otherwise the one encoded in
// the session key.
func (r AgentRequest) Phone() string {
	if r.User != nil && strings.TrimSpace(r.User.Phone) != "" {
		return strings.TrimSpace(r.User.Phone)
	}
	return PhoneFromSessionKey(r.SessionKey)
}

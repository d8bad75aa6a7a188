package llm

import (
	"context"

	"github.com/kmit-fdms/fdms/internal/models"
)

type Provider interface {
	// Answer replies to question given the prior turns of the conversation.
	Answer(ctx context.Context, history []models.ChatTurn, question string) (string, error)
	Close() error
}

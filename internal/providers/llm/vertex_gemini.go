package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/kmit-fdms/fdms/internal/models"
)

const SystemPrompt = "You are a helpful assistant for a Faculty Dashboard Management System. Keep responses professional and focused on academic matters."

type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(SystemPrompt)}}
	m.SetTemperature(0.7)
	m.SetMaxOutputTokens(150)
	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Answer(ctx context.Context, history []models.ChatTurn, question string) (string, error) {
	cs := v.model.StartChat()
	for _, turn := range history {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &vertexgenai.Content{
			Role:  role,
			Parts: []vertexgenai.Part{vertexgenai.Text(turn.Content)},
		})
	}

	var out strings.Builder
	it := cs.SendMessageStream(ctx, vertexgenai.Text(question))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", err
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					out.WriteString(string(t))
				}
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

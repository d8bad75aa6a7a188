package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/kmit-fdms/fdms/internal/cache"
	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/providers/llm"
	mongorepo "github.com/kmit-fdms/fdms/internal/repositories/mongo"
	pgrepo "github.com/kmit-fdms/fdms/internal/repositories/postgres"
	"github.com/kmit-fdms/fdms/internal/utils"
)

const (
	historyTTL   = time.Hour
	historyTurns = 10
	maxChatRunes = 2000

	defaultLogLimit = 50
	maxLogLimit     = 200
)

type ChatReply struct {
	SessionID string            `json:"session_id"`
	Reply     string            `json:"reply"`
	Source    models.ChatSource `json:"source"`
}

type ChatService interface {
	Ask(ctx context.Context, sessionID, message string) (*ChatReply, error)
	Logs(ctx context.Context, sessionID string, limit int) ([]models.ChatLog, error)
}

// ChatDeps wires the chat service. History, LLM and Logs may be nil.
type ChatDeps struct {
	Profiles mongorepo.ProfileRepository
	History  cache.Cache
	LLM      llm.Provider
	Logs     pgrepo.ChatLogRepository
	Logger   *logrus.Logger
	Now      func() time.Time
}

type chatService struct {
	profiles mongorepo.ProfileRepository
	history  cache.Cache
	model    llm.Provider
	logs     pgrepo.ChatLogRepository
	log      *logrus.Logger
	now      func() time.Time
}

func NewChatService(d ChatDeps) ChatService {
	s := &chatService{
		profiles: d.Profiles,
		history:  d.History,
		model:    d.LLM,
		logs:     d.Logs,
		log:      d.Logger,
		now:      d.Now,
	}
	if s.log == nil {
		s.log = logrus.New()
		s.log.SetOutput(io.Discard)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func historyKey(sessionID string) string { return "chat:history:" + sessionID }

// Ask answers from the FAQ, then from faculty profiles, then from the language
// model.
func (s *chatService) Ask(ctx context.Context, sessionID, message string) (*ChatReply, error) {
	const op = "ChatService.Ask"

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is required", nil)
	}
	if len([]rune(message)) > maxChatRunes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is too long", nil)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := s.now()
	var (
		reply   string
		source  models.ChatSource
		matched []string
	)

	if r, ok := answerFAQ(message, now); ok {
		reply, source = r, models.SourceFAQ
	} else if p, ok := s.lookupFaculty(ctx, message, now); ok {
		reply, source = facultyReply(p, requestedDetail(message)), models.SourceFaculty
		matched = []string{p.ID.Hex()}
	} else {
		reply, source = s.askModel(ctx, sessionID, message)
	}

	s.remember(ctx, sessionID, message, reply)
	s.record(ctx, sessionID, message, reply, source, matched, now)

	return &ChatReply{SessionID: sessionID, Reply: reply, Source: source}, nil
}

func (s *chatService) Logs(ctx context.Context, sessionID string, limit int) ([]models.ChatLog, error) {
	const op = "ChatService.Logs"

	if strings.TrimSpace(sessionID) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if s.logs == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "chat log store is not configured", nil)
	}
	switch {
	case limit <= 0:
		limit = defaultLogLimit
	case limit > maxLogLimit:
		limit = maxLogLimit
	}
	rows, err := s.logs.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list chat logs", err)
	}
	return rows, nil
}

func (s *chatService) lookupFaculty(ctx context.Context, message string, now time.Time) (*models.Profile, bool) {
	if s.profiles == nil {
		return nil, false
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		s.log.WithError(err).Warn("chat: failed to load profiles")
		return nil, false
	}
	p, ok := matchFaculty(message, profiles)
	if !ok {
		return nil, false
	}
	p.Derive(now)
	return p, true
}

func (s *chatService) askModel(ctx context.Context, sessionID, message string) (string, models.ChatSource) {
	if s.model == nil {
		return replyNotUnderstood, models.SourceFallback
	}

	var turns []models.ChatTurn
	if s.history != nil {
		if err := s.history.ListJSON(ctx, historyKey(sessionID), &turns); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("chat: failed to load history")
			turns = nil
		}
	}

	answer, err := s.model.Answer(ctx, turns, message)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Error("chat: language model failed")
		return replyModelError, models.SourceFallback
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return replyNotUnderstood, models.SourceFallback
	}
	return answer, models.SourceLLM
}

func (s *chatService) remember(ctx context.Context, sessionID, message, reply string) {
	if s.history == nil {
		return
	}
	key := historyKey(sessionID)
	for _, turn := range []models.ChatTurn{
		{Role: "user", Content: message},
		{Role: "assistant", Content: reply},
	} {
		if err := s.history.AppendJSON(ctx, key, turn, 2*historyTurns, historyTTL); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Warn("chat: failed to store history")
			return
		}
	}
}

func (s *chatService) record(ctx context.Context, sessionID, message, reply string, source models.ChatSource, matched []string, now time.Time) {
	if s.logs == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{"message_length": len(message)})
	ts := now.UTC()
	err := s.logs.Insert(ctx,
		&models.ChatLog{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      "user",
			Content:   message,
			Timestamp: ts,
			Metadata:  datatypes.JSON(meta),
		},
		&models.ChatLog{
			ID:              uuid.NewString(),
			SessionID:       sessionID,
			Role:            "assistant",
			Content:         reply,
			Source:          source,
			MatchedProfiles: matched,
			Timestamp:       ts.Add(time.Millisecond),
		},
	)
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("chat: failed to write chat log")
	}
}

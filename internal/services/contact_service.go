package services

import (
	"context"
	"strings"
	"time"

	"github.com/kmit-fdms/fdms/internal/models"
	mongorepo "github.com/kmit-fdms/fdms/internal/repositories/mongo"
	"github.com/kmit-fdms/fdms/internal/utils"
)

type ContactService interface {
	Submit(ctx context.Context, m *models.ContactMessage) (*models.ContactMessage, error)
}

type contactService struct {
	contacts mongorepo.ContactRepository
	now      func() time.Time
}

func NewContactService(contacts mongorepo.ContactRepository) ContactService {
	return &contactService{contacts: contacts, now: time.Now}
}

func (s *contactService) Submit(ctx context.Context, m *models.ContactMessage) (*models.ContactMessage, error) {
	const op = "ContactService.Submit"

	if m == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "message is required", nil)
	}
	m.FullName = strings.TrimSpace(m.FullName)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Feedback = strings.TrimSpace(m.Feedback)
	if m.FullName == "" || m.Email == "" || m.Feedback == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "fullName, email and feedback are required", nil)
	}

	m.Date = s.now().UTC()
	if err := s.contacts.Insert(ctx, m); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save contact message", err)
	}
	return m, nil
}

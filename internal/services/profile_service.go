package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kmit-fdms/fdms/internal/events"
	"github.com/kmit-fdms/fdms/internal/models"
	mongorepo "github.com/kmit-fdms/fdms/internal/repositories/mongo"
	pgrepo "github.com/kmit-fdms/fdms/internal/repositories/postgres"
	"github.com/kmit-fdms/fdms/internal/storage"
	"github.com/kmit-fdms/fdms/internal/utils"
)

const msgEmailTaken = "a profile with this email already exists"

type ProfileService interface {
	Create(ctx context.Context, p *models.Profile, uploads []Upload) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	FindByName(ctx context.Context, name string) (*models.Profile, error)
	Update(ctx context.Context, id string, patch models.ProfilePatch) (*models.Profile, error)
	Delete(ctx context.Context, id string) error
	AttachDocuments(ctx context.Context, id string, uploads []Upload) (*models.Profile, error)
	ListDocuments(ctx context.Context, id string) ([]models.ProfileDocument, error)
}

// ProfileDeps wires the profile service. Documents and Events may be nil.
type ProfileDeps struct {
	Profiles       mongorepo.ProfileRepository
	Documents      pgrepo.DocumentRepository
	Uploader       storage.Uploader
	Events         events.Publisher
	Logger         *logrus.Logger
	MaxUploadBytes int64
	Now            func() time.Time
}

type profileService struct {
	profiles  mongorepo.ProfileRepository
	documents pgrepo.DocumentRepository
	uploader  storage.Uploader
	events    events.Publisher
	log       *logrus.Logger
	maxBytes  int64
	now       func() time.Time
}

func NewProfileService(d ProfileDeps) ProfileService {
	s := &profileService{
		profiles:  d.Profiles,
		documents: d.Documents,
		uploader:  d.Uploader,
		events:    d.Events,
		log:       d.Logger,
		maxBytes:  d.MaxUploadBytes,
		now:       d.Now,
	}
	if s.events == nil {
		s.events = events.NoopPublisher{}
	}
	if s.log == nil {
		s.log = logrus.New()
		s.log.SetOutput(io.Discard)
	}
	if s.maxBytes <= 0 || s.maxBytes > DefaultMaxUploadBytes {
		s.maxBytes = DefaultMaxUploadBytes
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *profileService) Create(ctx context.Context, p *models.Profile, uploads []Upload) (*models.Profile, error) {
	const op = "ProfileService.Create"

	if p == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "profile is required", nil)
	}
	if err := validateNewProfile(op, p); err != nil {
		return nil, err
	}
	files, err := inspectUploads(op, uploads, s.maxBytes)
	if err != nil {
		return nil, err
	}
	if err := s.checkEmailFree(ctx, op, p.PersonalDetails.Email, primitive.NilObjectID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	// document paths only come from uploads
	p.Certificates = models.Certificates{}
	p.PersonalDetails.PanDocument = ""
	p.PersonalDetails.AadharDocument = ""
	if p.Education == nil {
		p.Education = []models.Education{}
	}
	if p.ProfessionalExperience == nil {
		p.ProfessionalExperience = []models.Experience{}
	}

	paths, docs, err := s.storeUploads(ctx, p.ID.Hex(), files, now)
	if err != nil {
		s.warnOrphans(p.ID.Hex(), paths, "upload failed before profile was saved")
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store uploaded file", err)
	}
	for kind, path := range paths {
		kind.Apply(p, path)
	}

	if err := s.profiles.Insert(ctx, p); err != nil {
		s.warnOrphans(p.ID.Hex(), paths, "profile insert failed after upload")
		if errors.Is(err, utils.ErrDuplicate) {
			return nil, utils.E(utils.CodeConflict, op, msgEmailTaken, err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to save profile", err)
	}

	s.recordDocuments(ctx, docs)
	s.publish(ctx, models.ProfileCreated, p.ID.Hex(), p.PersonalDetails.Email)

	p.Derive(now)
	return p, nil
}

func (s *profileService) List(ctx context.Context) ([]models.Profile, error) {
	const op = "ProfileService.List"

	out, err := s.profiles.List(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list profiles", err)
	}
	now := s.now()
	for i := range out {
		out[i].Derive(now)
	}
	return out, nil
}

func (s *profileService) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	const op = "ProfileService.GetByID"

	oid, err := parseProfileID(op, id)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.GetByID(ctx, oid)
	if err != nil {
		return nil, repoErr(op, err, "failed to get profile")
	}
	p.Derive(s.now())
	return p, nil
}

func (s *profileService) FindByName(ctx context.Context, name string) (*models.Profile, error) {
	const op = "ProfileService.FindByName"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "name is required", nil)
	}
	p, err := s.profiles.FindByName(ctx, name)
	if err != nil {
		return nil, repoErr(op, err, "failed to find profile")
	}
	p.Derive(s.now())
	return p, nil
}

func (s *profileService) Update(ctx context.Context, id string, patch models.ProfilePatch) (*models.Profile, error) {
	const op = "ProfileService.Update"

	oid, err := parseProfileID(op, id)
	if err != nil {
		return nil, err
	}
	if err := validatePatch(op, &patch); err != nil {
		return nil, err
	}
	if patch.Certificates != nil || patch.PersonalDetails != nil {
		current, err := s.profiles.GetByID(ctx, oid)
		if err != nil {
			return nil, repoErr(op, err, "failed to get profile")
		}
		if err := checkDocumentPaths(op, current, &patch); err != nil {
			return nil, err
		}
	}
	if patch.PersonalDetails != nil {
		if err := s.checkEmailFree(ctx, op, patch.PersonalDetails.Email, oid); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	p, err := s.profiles.Update(ctx, oid, patch, now)
	if err != nil {
		return nil, repoErr(op, err, "failed to update profile")
	}

	s.publish(ctx, models.ProfileUpdated, p.ID.Hex(), p.PersonalDetails.Email)
	p.Derive(now)
	return p, nil
}

func (s *profileService) Delete(ctx context.Context, id string) error {
	const op = "ProfileService.Delete"

	oid, err := parseProfileID(op, id)
	if err != nil {
		return err
	}
	if err := s.profiles.Delete(ctx, oid); err != nil {
		return repoErr(op, err, "failed to delete profile")
	}
	s.publish(ctx, models.ProfileDeleted, oid.Hex(), "")
	return nil
}

func (s *profileService) AttachDocuments(ctx context.Context, id string, uploads []Upload) (*models.Profile, error) {
	const op = "ProfileService.AttachDocuments"

	oid, err := parseProfileID(op, id)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no files uploaded", nil)
	}
	files, err := inspectUploads(op, uploads, s.maxBytes)
	if err != nil {
		return nil, err
	}
	if _, err := s.profiles.GetByID(ctx, oid); err != nil {
		return nil, repoErr(op, err, "failed to get profile")
	}

	now := s.now().UTC()
	paths, docs, err := s.storeUploads(ctx, oid.Hex(), files, now)
	if err != nil {
		s.warnOrphans(oid.Hex(), paths, "upload failed before profile was updated")
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store uploaded file", err)
	}

	p, err := s.profiles.SetDocuments(ctx, oid, paths, now)
	if err != nil {
		s.warnOrphans(oid.Hex(), paths, "profile update failed after upload")
		return nil, repoErr(op, err, "failed to update profile")
	}

	s.recordDocuments(ctx, docs)
	s.publish(ctx, models.ProfileUpdated, p.ID.Hex(), p.PersonalDetails.Email)
	p.Derive(now)
	return p, nil
}

func (s *profileService) ListDocuments(ctx context.Context, id string) ([]models.ProfileDocument, error) {
	const op = "ProfileService.ListDocuments"

	oid, err := parseProfileID(op, id)
	if err != nil {
		return nil, err
	}
	if s.documents == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "document ledger is not configured", nil)
	}
	docs, err := s.documents.ListByProfile(ctx, oid.Hex())
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list documents", err)
	}
	return docs, nil
}

func (s *profileService) recordDocuments(ctx context.Context, docs []models.ProfileDocument) {
	if s.documents == nil || len(docs) == 0 {
		return
	}
	if err := s.documents.InsertMany(ctx, docs); err != nil {
		s.log.WithError(err).WithField("profile_id", docs[0].ProfileID).Warn("failed to record document ledger rows")
	}
}

func (s *profileService) publish(ctx context.Context, typ models.ProfileEventType, profileID, email string) {
	ev := &models.ProfileEvent{
		EventType: typ,
		ProfileID: profileID,
		Email:     email,
		Timestamp: s.now().UTC(),
	}
	if err := s.events.PublishProfileEvent(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_type": typ,
			"profile_id": profileID,
		}).Warn("failed to publish profile event")
	}
}

func (s *profileService) warnOrphans(profileID string, paths map[models.DocumentKind]string, reason string) {
	if len(paths) == 0 {
		return
	}
	stored := make([]string, 0, len(paths))
	for _, p := range paths {
		stored = append(stored, p)
	}
	s.log.WithFields(logrus.Fields{
		"profile_id": profileID,
		"paths":      stored,
	}).Warn("orphaned uploaded files: " + reason)
}

// checkEmailFree rejects email when a profile other than self already uses it.
func (s *profileService) checkEmailFree(ctx context.Context, op, email string, self primitive.ObjectID) error {
	if email == "" {
		return nil
	}
	taken, err := s.profiles.EmailTaken(ctx, email, self)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to check profile email", err)
	}
	if taken {
		return utils.E(utils.CodeConflict, op, msgEmailTaken, utils.ErrDuplicate)
	}
	return nil
}

func parseProfileID(op, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, utils.E(utils.CodeInvalidArgument, op, "invalid profile id", err)
	}
	return oid, nil
}

func repoErr(op string, err error, msg string) error {
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return utils.E(utils.CodeNotFound, op, "profile not found", err)
	case errors.Is(err, utils.ErrDuplicate):
		return utils.E(utils.CodeConflict, op, msgEmailTaken, err)
	}
	return utils.E(utils.CodeInternal, op, msg, err)
}

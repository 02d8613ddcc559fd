package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"startlist/internal/dto"
	"startlist/internal/model"
	"startlist/internal/store"
	"startlist/internal/uploads"
	"startlist/pkg/validator"
)

type Service interface {
	ListEvents(ctx *ginext.Context)
	CreateEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
	UploadEventLogo(ctx *ginext.Context)

	ListUsers(ctx *ginext.Context)
	CreateUser(ctx *ginext.Context)
	UpdateUser(ctx *ginext.Context)
	DeleteUser(ctx *ginext.Context)
	UploadUserAvatar(ctx *ginext.Context)

	ListRegistrations(ctx *ginext.Context)
	UpsertRegistration(ctx *ginext.Context)
}

// Notifier is the optional registration change feed; nil disables it.
type Notifier interface {
	Publish(message []byte) error
}

type service struct {
	store    store.Store
	files    *uploads.Storage
	log      *zerolog.Logger
	notifier Notifier
}

func NewService(st store.Store, files *uploads.Storage, logger *zerolog.Logger, notifier Notifier) Service {
	return &service{
		store:    st,
		files:    files,
		log:      logger,
		notifier: notifier,
	}
}

func pathID(ctx *ginext.Context) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid id")
		return 0, false
	}
	return id, true
}

func eventResponse(e model.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:       e.ID,
		Name:     e.Name,
		Date:     e.Date,
		Location: e.Location,
		URL:      e.URL,
		LogoURL:  e.LogoURL,
	}
}

func userResponse(u model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Gender:    u.Gender,
		AvatarURL: u.AvatarURL,
	}
}

func registrationResponse(r model.Registration) dto.RegistrationResponse {
	return dto.RegistrationResponse{
		ID:       r.ID,
		UserID:   r.UserID,
		EventID:  r.EventID,
		Selected: string(r.Selected),
	}
}

func (s *service) ListEvents(ctx *ginext.Context) {
	events, err := s.store.ListEvents(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, eventResponse(e))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.store.CreateEvent(ctx.Request.Context(), model.EventDraft{
		Name:     req.Name,
		Date:     req.Date,
		Location: req.Location,
		URL:      req.URL,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyName), errors.Is(err, store.ErrBadDate):
			dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
		default:
			s.log.Error().Err(err).Msg("failed to create event")
			dto.InternalServerError(ctx)
		}
		return
	}

	s.log.Info().Int("event_id", event.ID).Str("date", event.Date).Msg("event created")
	dto.SuccessCreatedResponse(ctx, eventResponse(event))
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.store.UpdateEvent(ctx.Request.Context(), id, model.EventDraft{
		Name:     req.Name,
		Date:     req.Date,
		Location: req.Location,
		URL:      req.URL,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEventNotFound):
			dto.EventNotFoundError(ctx)
		case errors.Is(err, store.ErrEmptyName), errors.Is(err, store.ErrBadDate):
			dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
		default:
			s.log.Error().Err(err).Msg("failed to update event")
			dto.InternalServerError(ctx)
		}
		return
	}

	dto.SuccessResponse(ctx, eventResponse(event))
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := s.store.DeleteEvent(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to delete event")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int("event_id", id).Msg("event deleted")
	dto.SuccessResponse(ctx, nil)
}

func (s *service) UploadEventLogo(ctx *ginext.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("logo")
	if err != nil {
		dto.BadResponseError(ctx, dto.FileMissing, "Logo file is required")
		return
	}

	diskPath, ref, err := s.files.Place("logo", file.Filename)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, err.Error())
		return
	}
	if err := ctx.SaveUploadedFile(file, diskPath); err != nil {
		s.log.Error().Err(err).Msg("failed to save logo file")
		dto.InternalServerError(ctx)
		return
	}

	event, err := s.store.SetEventLogo(ctx.Request.Context(), id, ref)
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to set event logo")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int("event_id", id).Str("ref", ref).Msg("event logo updated")
	dto.SuccessResponse(ctx, eventResponse(event))
}

func (s *service) ListUsers(ctx *ginext.Context) {
	users, err := s.store.ListUsers(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list users")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse(u))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) CreateUser(ctx *ginext.Context) {
	var req dto.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create user request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	user, err := s.store.CreateUser(ctx.Request.Context(), model.UserDraft{
		Name:      req.Name,
		Gender:    req.Gender,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyName), errors.Is(err, store.ErrBadGender):
			dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
		default:
			s.log.Error().Err(err).Msg("failed to create user")
			dto.InternalServerError(ctx)
		}
		return
	}

	s.log.Info().Int("user_id", user.ID).Msg("user created")
	dto.SuccessCreatedResponse(ctx, userResponse(user))
}

func (s *service) UpdateUser(ctx *ginext.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	user, err := s.store.UpdateUser(ctx.Request.Context(), id, model.UserDraft{
		Name:      req.Name,
		Gender:    req.Gender,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			dto.UserNotFoundError(ctx)
		case errors.Is(err, store.ErrEmptyName), errors.Is(err, store.ErrBadGender):
			dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
		default:
			s.log.Error().Err(err).Msg("failed to update user")
			dto.InternalServerError(ctx)
		}
		return
	}

	dto.SuccessResponse(ctx, userResponse(user))
}

func (s *service) DeleteUser(ctx *ginext.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	if err := s.store.DeleteUser(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			dto.UserNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to delete user")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int("user_id", id).Msg("user deleted")
	dto.SuccessResponse(ctx, nil)
}

func (s *service) UploadUserAvatar(ctx *ginext.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}

	file, err := ctx.FormFile("avatar")
	if err != nil {
		dto.BadResponseError(ctx, dto.FileMissing, "Avatar file is required")
		return
	}

	diskPath, ref, err := s.files.Place("avatar", file.Filename)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldBadFormat, err.Error())
		return
	}
	if err := ctx.SaveUploadedFile(file, diskPath); err != nil {
		s.log.Error().Err(err).Msg("failed to save avatar file")
		dto.InternalServerError(ctx)
		return
	}

	user, err := s.store.SetAvatar(ctx.Request.Context(), id, ref)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			dto.UserNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to set avatar")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int("user_id", id).Str("ref", ref).Msg("avatar updated")
	dto.SuccessResponse(ctx, userResponse(user))
}

func (s *service) ListRegistrations(ctx *ginext.Context) {
	regs, err := s.store.ListRegistrations(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list registrations")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		resp = append(resp, registrationResponse(r))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) UpsertRegistration(ctx *ginext.Context) {
	var req dto.UpsertRegistrationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	reg, err := s.store.UpsertRegistration(
		ctx.Request.Context(),
		req.UserID,
		req.EventID,
		model.Selected(req.Selected),
	)
	if err != nil {
		if errors.Is(err, store.ErrBadSelected) {
			dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("failed to upsert registration")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().
		Int("registration_id", reg.ID).
		Int("user_id", reg.UserID).
		Int("event_id", reg.EventID).
		Str("selected", string(reg.Selected)).
		Msg("registration upserted")

	s.publishChange(reg)
	dto.SuccessResponse(ctx, registrationResponse(reg))
}

// publishChange feeds the change to the notifier. The request already
// succeeded, so a broker hiccup is only logged.
func (s *service) publishChange(reg model.Registration) {
	if s.notifier == nil {
		return
	}

	msg := dto.RegistrationChangedMessage{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		EventID:        reg.EventID,
		Selected:       string(reg.Selected),
		ChangedAt:      time.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal registration change message")
		return
	}
	if err := s.notifier.Publish(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to publish registration change")
	}
}

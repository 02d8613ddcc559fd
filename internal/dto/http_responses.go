package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	UserNotFound  = "USER_NOT_FOUND"
	EventNotFound = "EVENT_NOT_FOUND"
	FileMissing   = "FILE_MISSING"
)

type CreateUserRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	Gender    string `json:"gender" validate:"omitempty,gender"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,max=1024"`
}

type UpdateUserRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	Gender    string `json:"gender" validate:"omitempty,gender"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,max=1024"`
}

type UserResponse struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type CreateEventRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Date     string `json:"date" validate:"required,shortdate"`
	Location string `json:"location" validate:"omitempty,max=255"`
	URL      string `json:"url" validate:"omitempty,url"`
}

type UpdateEventRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Date     string `json:"date" validate:"required,shortdate"`
	Location string `json:"location" validate:"omitempty,max=255"`
	URL      string `json:"url" validate:"omitempty,url"`
}

type EventResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Location string `json:"location,omitempty"`
	URL      string `json:"url,omitempty"`
	LogoURL  string `json:"logo_url,omitempty"`
}

type UpsertRegistrationRequest struct {
	UserID   int    `json:"user_id" validate:"required,gt=0"`
	EventID  int    `json:"event_id" validate:"required,gt=0"`
	Selected string `json:"selected" validate:"required,regselect"`
}

type RegistrationResponse struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	EventID  int    `json:"event_id"`
	Selected string `json:"selected"`
}

type UploadResponse struct {
	Ref string `json:"ref"`
}

// RegistrationChangedMessage is the payload published to the notification
// exchange after a successful registration upsert.
type RegistrationChangedMessage struct {
	RegistrationID int       `json:"registration_id"`
	UserID         int       `json:"user_id"`
	EventID        int       `json:"event_id"`
	Selected       string    `json:"selected"`
	ChangedAt      time.Time `json:"changed_at"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func UserNotFoundError(c *ginext.Context) {
	NotFoundError(c, UserNotFound, "User not found")
}

func EventNotFoundError(c *ginext.Context) {
	NotFoundError(c, EventNotFound, "Event not found")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}

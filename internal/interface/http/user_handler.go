package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/user-registry/internal/application"
	"github.com/oksasatya/user-registry/internal/domain/apperror"
	"github.com/oksasatya/user-registry/internal/domain/entity"
	"github.com/oksasatya/user-registry/pkg/response"
	"github.com/oksasatya/user-registry/pkg/validation"
)

// UserService is the application surface the handler drives.
type UserService interface {
	CreateUser(ctx context.Context, in userapp.UserInput) (int64, error)
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	ListUsers(ctx context.Context) ([]*entity.User, error)
	UpdateUser(ctx context.Context, id int64, in userapp.UserInput) error
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

type UserHandler struct {
	Svc    UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// Field rules live in entity.ValidateUser; binding only bounds payload size.
type userRequest struct {
	Name  string `json:"name" binding:"max=1024"`
	Email string `json:"email" binding:"max=320"`
	Age   *int   `json:"age"`
}

type userIDParam struct {
	ID string `uri:"id" binding:"userid"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *entity.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Age: u.Age, CreatedAt: u.CreatedAt}
}

func (r userRequest) input() userapp.UserInput {
	return userapp.UserInput{Name: r.Name, Email: r.Email, Age: r.Age}
}

func (h *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ctx := c.Request.Context()
	id, err := h.Svc.CreateUser(ctx, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Svc.GetUser(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		// removed between create and read-back
		response.Fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.OK(c, http.StatusCreated, toUserResponse(u), "user created", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	response.OK(c, http.StatusOK, out, "users", map[string]any{"count": len(out)})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	u, err := h.Svc.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		response.Fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.OK(c, http.StatusOK, toUserResponse(u), "user", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	ctx := c.Request.Context()
	if err := h.Svc.UpdateUser(ctx, id, req.input()); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Svc.GetUser(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if u == nil {
		response.Fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.OK(c, http.StatusOK, toUserResponse(u), "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	deleted, err := h.Svc.DeleteUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		response.Fail(c, http.StatusNotFound, "user not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) bindID(c *gin.Context) (int64, bool) {
	var p userIDParam
	if err := c.ShouldBindUri(&p); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid user id", validation.ToDetails(err))
		return 0, false
	}
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid user id", map[string]string{"id": "must be a 64-bit integer"})
		return 0, false
	}
	return id, true
}

// fail maps application error kinds onto HTTP statuses.
func (h *UserHandler) fail(c *gin.Context, err error) {
	msg := apperror.MessageOf(err)
	switch apperror.KindOf(err) {
	case apperror.KindInvalidField, apperror.KindInvalidArgument:
		response.Fail(c, http.StatusBadRequest, msg, string(apperror.KindOf(err)))
	case apperror.KindNotFound:
		response.Fail(c, http.StatusNotFound, msg, string(apperror.KindNotFound))
	case apperror.KindDuplicateEmail:
		response.Fail(c, http.StatusConflict, msg, string(apperror.KindDuplicateEmail))
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("user request failed")
		}
		response.Fail(c, http.StatusInternalServerError, "internal error", nil)
	}
}

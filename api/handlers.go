package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskman-api/domain"
)

const maxBodySize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, tokens TokenService, logger *log.Logger) {
	policy := NewPolicy(store)

	e.POST("/register", registerUser(store, logger))
	e.POST("/login", loginUser(store, tokens, logger))

	tasks := e.Group("/tasks", RequireAuth(tokens))
	tasks.GET("", listTasks(policy, logger))
	tasks.POST("", createTask(policy))
	tasks.GET("/:id", getTask(policy))
	tasks.PUT("/:id", updateTask(policy))
	tasks.DELETE("/:id", deleteTask(policy))

	e.GET("/healthz", healthz(store))
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updatedTaskResponse mirrors the historical update response, which never
// echoed the owner back.
type updatedTaskResponse struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

func decodeBody(c echo.Context, v any, strict bool) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(v)
}

func registerUser(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := decodeBody(c, &req, false); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if req.Username == "" || req.Email == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Username, email, and password are required."})
		}
		role := req.Role
		if role == "" {
			role = domain.RoleUser
		}

		user := domain.User{
			ID:       uuid.New(),
			Username: req.Username,
			Email:    req.Email,
			Role:     role,
		}
		if err := user.SetPassword(req.Password); err != nil {
			logger.WithError(err).Error("hash password")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error creating user."})
		}

		if err := store.CreateUser(c.Request().Context(), &user); err != nil {
			if errors.Is(err, domain.ErrDuplicateEmail) {
				return c.JSON(http.StatusConflict, errorResponse{Error: "Email already registered."})
			}
			logger.WithError(err).Error("create user")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error creating user."})
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "User registered."})
	}
}

func loginUser(store Storage, tokens TokenService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req, false); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		user, err := store.UserByEmail(c.Request().Context(), req.Email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid credentials."})
			}
			logger.WithError(err).Error("fetch user")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error logging in."})
		}
		if !user.CheckPassword(req.Password) {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid credentials."})
		}

		token, err := tokens.IssueToken(user)
		if err != nil {
			logger.WithError(err).Error("issue token")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error logging in."})
		}
		return c.JSON(http.StatusOK, tokenResponse{Token: token})
	}
}

func listTasks(policy Policy, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		ident, ok := IdentityFrom(c)
		if !ok {
			metrics.SetErrorStage("identity")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return err
		}
		metrics.SetAdminScope(ident.IsAdmin())

		fetchStart := time.Now()
		tasks, fetchErr := policy.List(ctx, ident)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error getting tasks."})
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		if tasks == nil {
			tasks = []domain.Task{}
		}
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(policy Policy) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := IdentityFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		}
		var in taskInput
		if err := decodeBody(c, &in, true); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := policy.Create(c.Request().Context(), ident, in)
		if err != nil {
			if errors.Is(err, errMissingTaskFields) {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "Title and status are required."})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error creating task."})
		}
		return c.JSON(http.StatusOK, task)
	}
}

func getTask(policy Policy) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := IdentityFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		}
		id, err := taskIDParam(c)
		if err != nil {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Task not found."})
		}
		task, err := policy.Get(c.Request().Context(), ident, id)
		if err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "Task not found."})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error getting task."})
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(policy Policy) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := IdentityFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		}
		id, err := taskIDParam(c)
		if err != nil {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Task not found."})
		}
		var in taskInput
		if err := decodeBody(c, &in, true); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		task, err := policy.Update(c.Request().Context(), ident, id, in)
		if err != nil {
			switch {
			case errors.Is(err, errMissingTaskFields):
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "Title and status are required."})
			case errors.Is(err, domain.ErrTaskNotFound):
				return c.JSON(http.StatusNotFound, errorResponse{Error: "Task not found."})
			default:
				c.Logger().Error(err)
				return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error updating task."})
			}
		}
		return c.JSON(http.StatusOK, updatedTaskResponse{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Status:      task.Status,
		})
	}
}

func deleteTask(policy Policy) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := IdentityFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		}
		id, err := taskIDParam(c)
		if err != nil {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Task not found."})
		}
		if err := policy.Delete(c.Request().Context(), ident, id); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "Task not found."})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Error deleting task."})
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	}
}

// taskIDParam parses the :id path segment. A non-numeric id addresses no row
// and is reported the same way as an absent one.
func taskIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, domain.ErrTaskNotFound
	}
	return uint(id), nil
}

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/kashishh18/bachelor-league/internal/domain"
	apperrors "github.com/kashishh18/bachelor-league/internal/errors"
)

func (s *Server) handleListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"tasks": s.runner.TaskStatuses(),
	})
}

func (s *Server) handleTaskResults(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return apperrors.ValidationError("limit must be a non-negative integer")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, map[string]any{
		"results": s.runner.Results(limit),
	})
}

func (s *Server) handleRunTask(c echo.Context) error {
	id := c.Param("id")
	switch err := s.runner.RunNow(id); {
	case errors.Is(err, domain.ErrTaskNotFound):
		return apperrors.NotFoundError("task not found")
	case errors.Is(err, domain.ErrTaskRunning):
		return apperrors.ConflictError("task is already running")
	case err != nil:
		return apperrors.InternalError("failed to trigger task", err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "triggered", "task_id": id})
}

func (s *Server) handleEnableTask(c echo.Context) error {
	id := c.Param("id")
	if err := s.runner.Enable(id); err != nil {
		return apperrors.NotFoundError("task not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "enabled", "task_id": id})
}

func (s *Server) handleDisableTask(c echo.Context) error {
	id := c.Param("id")
	if err := s.runner.Disable(id); err != nil {
		return apperrors.NotFoundError("task not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "disabled", "task_id": id})
}

package api

import (
	"encoding/json"
	"errors"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/mudler/xlog"
	"github.com/netagent/netagent/core/scheduler"
)

type taskRequest struct {
	Name          string                 `json:"name"`
	Prompt        string                 `json:"prompt"`
	ScheduleType  scheduler.ScheduleType `json:"schedule_type"`
	ScheduleValue string                 `json:"schedule_value"`
}

func taskError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scheduler.ErrTaskNotFound):
		return errorJSONMessage(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrTaskRunning):
		return errorJSONMessage(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, scheduler.ErrNotStarted):
		return errorJSONMessage(c, fiber.StatusServiceUnavailable, err.Error())
	}
	return errorJSONMessage(c, fiber.StatusInternalServerError, err.Error())
}

func (a *App) ListTasks() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		tasks, err := a.config.Scheduler.GetAllTasks()
		if err != nil {
			return taskError(c, err)
		}
		return c.JSON(tasks)
	}
}

func (a *App) CreateTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		var req taskRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}

		task, err := scheduler.NewTask(req.Name, req.Prompt, req.ScheduleType, req.ScheduleValue)
		if err != nil {
			return errorJSONMessage(c, fiber.StatusBadRequest, err.Error())
		}
		if err := a.config.Scheduler.CreateTask(task); err != nil {
			return taskError(c, err)
		}

		xlog.Info("Task created", "id", task.ID, "schedule", task.ScheduleValue)
		return c.Status(fiber.StatusCreated).JSON(task)
	}
}

func (a *App) GetTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		task, err := a.config.Scheduler.GetTask(c.Params("id"))
		if err != nil {
			return taskError(c, err)
		}
		return c.JSON(task)
	}
}

func (a *App) GetTaskRuns() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		runs, err := a.config.Scheduler.GetTaskRuns(c.Params("id"), limit)
		if err != nil {
			return taskError(c, err)
		}
		return c.JSON(runs)
	}
}

func (a *App) DeleteTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := a.config.Scheduler.DeleteTask(c.Params("id")); err != nil {
			return taskError(c, err)
		}
		return statusJSONMessage(c, "ok")
	}
}

func (a *App) PauseTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := a.config.Scheduler.PauseTask(c.Params("id")); err != nil {
			return taskError(c, err)
		}
		return statusJSONMessage(c, "ok")
	}
}

func (a *App) ResumeTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := a.config.Scheduler.ResumeTask(c.Params("id")); err != nil {
			return taskError(c, err)
		}
		return statusJSONMessage(c, "ok")
	}
}

// RunTask starts a task now. The run is asynchronous; its outcome shows up
// in the task runs.
func (a *App) RunTask() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := a.config.Scheduler.TriggerTask(c.Params("id")); err != nil {
			return taskError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
	}
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tasklet-labs/tasklet/backend/internal/todo"
)

type listPayload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type taskPayload struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Reminder    *time.Time `json:"reminder"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func listPayloadFrom(list todo.List) listPayload {
	return listPayload{
		ID:        list.ID,
		UserID:    list.OwnerID,
		Name:      list.Name,
		Color:     list.Color,
		CreatedAt: list.CreatedAt,
		UpdatedAt: list.UpdatedAt,
	}
}

func taskPayloadFrom(task todo.Task) taskPayload {
	return taskPayload{
		ID:          task.ID,
		ListID:      task.ListID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		Reminder:    task.Reminder,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func listPayloads(lists []todo.List) []listPayload {
	payloads := make([]listPayload, 0, len(lists))
	for _, list := range lists {
		payloads = append(payloads, listPayloadFrom(list))
	}
	return payloads
}

func taskPayloads(tasks []todo.Task) []taskPayload {
	payloads := make([]taskPayload, 0, len(tasks))
	for _, task := range tasks {
		payloads = append(payloads, taskPayloadFrom(task))
	}
	return payloads
}

type createListRequest struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	CreatedAt *time.Time `json:"created_at"`
}

type updateListRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type createTaskRequest struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Reminder    *time.Time `json:"reminder"`
	CreatedAt   *time.Time `json:"created_at"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Completed   *bool      `json:"completed"`
	Reminder    *time.Time `json:"reminder"`
}

func (h *httpHandler) entityIDParam(c *gin.Context) (todo.EntityID, bool) {
	id, err := todo.NewEntityID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return "", false
	}
	return id, true
}

func (h *httpHandler) handleListLists(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	lists, err := h.todoService.ListLists(c.Request.Context(), owner)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lists": listPayloads(lists)})
}

func (h *httpHandler) handleCreateList(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	var request createListRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	list, err := h.todoService.CreateList(c.Request.Context(), owner, todo.ListChange{
		ID:        request.ID,
		Name:      request.Name,
		Color:     request.Color,
		CreatedAt: request.CreatedAt,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listPayloadFrom(list))
}

func (h *httpHandler) handleGetList(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	id, ok := h.entityIDParam(c)
	if !ok {
		return
	}
	list, err := h.todoService.GetList(c.Request.Context(), owner, id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listPayloadFrom(list))
}

func (h *httpHandler) handleUpdateList(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	id, ok := h.entityIDParam(c)
	if !ok {
		return
	}
	var request updateListRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	list, err := h.todoService.UpdateList(c.Request.Context(), owner, id, todo.ListUpdate{
		Name:  request.Name,
		Color: request.Color,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listPayloadFrom(list))
}

func (h *httpHandler) handleDeleteList(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	id, ok := h.entityIDParam(c)
	if !ok {
		return
	}
	if err := h.todoService.DeleteList(c.Request.Context(), owner, id); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id.String()})
}

func (h *httpHandler) handleTasksByList(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	id, ok := h.entityIDParam(c)
	if !ok {
		return
	}
	tasks, err := h.todoService.TasksByList(c.Request.Context(), owner, id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": taskPayloads(tasks)})
}

func (h *httpHandler) handleListTasks(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	tasks, err := h.todoService.ListTasks(c.Request.Context(), owner)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": taskPayloads(tasks)})
}

func (h *httpHandler) handleCreateTask(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	var request createTaskRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	task, err := h.todoService.CreateTask(c.Request.Context(), owner, todo.TaskChange{
		ID:          request.ID,
		ListID:      request.ListID,
		Title:       request.Title,
		Description: request.Description,
		Completed:   request.Completed,
		Reminder:    request.Reminder,
		CreatedAt:   request.CreatedAt,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskPayloadFrom(task))
}

func (h *httpHandler) handleGetTask(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	id, ok := h.entityIDParam(c)
	if !ok {
		return
	}
	task, err := h.todoService.GetTask(c.Request.Context(), owner, id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskPayloadFrom(task))
}

func (h *httpHandler) handleUpdateTask(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	id, ok := h.entityIDParam(c)
	if !ok {
		return
	}
	var request updateTaskRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	task, err := h.todoService.UpdateTask(c.Request.Context(), owner, id, todo.TaskUpdate{
		Title:       request.Title,
		Description: request.Description,
		Completed:   request.Completed,
		Reminder:    request.Reminder,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskPayloadFrom(task))
}

func (h *httpHandler) handleDeleteTask(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}
	id, ok := h.entityIDParam(c)
	if !ok {
		return
	}
	if err := h.todoService.DeleteTask(c.Request.Context(), owner, id); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id.String()})
}

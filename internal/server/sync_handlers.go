package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tasklet-labs/tasklet/backend/internal/todo"
)

type syncListItem struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	CreatedAt *time.Time `json:"created_at"`
}

type syncTaskItem struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Reminder    *time.Time `json:"reminder"`
	CreatedAt   *time.Time `json:"created_at"`
}

type syncPushRequest struct {
	Lists        []syncListItem `json:"lists"`
	Tasks        []syncTaskItem `json:"tasks"`
	DeletedLists []string       `json:"deleted_lists"`
	DeletedTasks []string       `json:"deleted_tasks"`
}

type syncPushResponse struct {
	SyncedLists  int       `json:"synced_lists"`
	SyncedTasks  int       `json:"synced_tasks"`
	DeletedLists int       `json:"deleted_lists"`
	DeletedTasks int       `json:"deleted_tasks"`
	ServerTime   time.Time `json:"server_time"`
}

type syncPullRequest struct {
	LastSync string `json:"last_sync"`
}

type syncPullResponse struct {
	Lists        []listPayload `json:"lists"`
	Tasks        []taskPayload `json:"tasks"`
	DeletedLists []string      `json:"deleted_lists"`
	DeletedTasks []string      `json:"deleted_tasks"`
	ServerTime   time.Time     `json:"server_time"`
}

type syncFullResponse struct {
	Lists      []listPayload `json:"lists"`
	Tasks      []taskPayload `json:"tasks"`
	ServerTime time.Time     `json:"server_time"`
}

func (h *httpHandler) handleSyncPush(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}

	var request syncPushRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	batch := todo.PushBatch{
		Lists:          make([]todo.ListChange, 0, len(request.Lists)),
		Tasks:          make([]todo.TaskChange, 0, len(request.Tasks)),
		DeletedListIDs: request.DeletedLists,
		DeletedTaskIDs: request.DeletedTasks,
	}
	for _, item := range request.Lists {
		batch.Lists = append(batch.Lists, todo.ListChange{
			ID:        item.ID,
			Name:      item.Name,
			Color:     item.Color,
			CreatedAt: item.CreatedAt,
		})
	}
	for _, item := range request.Tasks {
		batch.Tasks = append(batch.Tasks, todo.TaskChange{
			ID:          item.ID,
			ListID:      item.ListID,
			Title:       item.Title,
			Description: item.Description,
			Completed:   item.Completed,
			Reminder:    item.Reminder,
			CreatedAt:   item.CreatedAt,
		})
	}

	result, err := h.todoService.Push(c.Request.Context(), owner, batch)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, syncPushResponse{
		SyncedLists:  result.SyncedLists,
		SyncedTasks:  result.SyncedTasks,
		DeletedLists: result.DeletedLists,
		DeletedTasks: result.DeletedTasks,
		ServerTime:   result.ServerTime,
	})
}

func (h *httpHandler) handleSyncPull(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}

	var request syncPullRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	// An absent watermark means full snapshot; a present but unparsable
	// one is a malformed request, never treated as absent.
	var since *time.Time
	if request.LastSync != "" {
		parsed, err := time.Parse(time.RFC3339, request.LastSync)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_last_sync"})
			return
		}
		utc := parsed.UTC()
		since = &utc
	}

	delta, err := h.todoService.Pull(c.Request.Context(), owner, since)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, syncPullResponse{
		Lists:        listPayloads(delta.Lists),
		Tasks:        taskPayloads(delta.Tasks),
		DeletedLists: delta.DeletedListIDs,
		DeletedTasks: delta.DeletedTaskIDs,
		ServerTime:   delta.ServerTime,
	})
}

func (h *httpHandler) handleSyncFull(c *gin.Context) {
	owner, ok := h.ownerFromContext(c)
	if !ok {
		return
	}

	snapshot, err := h.todoService.FullSync(c.Request.Context(), owner)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, syncFullResponse{
		Lists:      listPayloads(snapshot.Lists),
		Tasks:      taskPayloads(snapshot.Tasks),
		ServerTime: snapshot.ServerTime,
	})
}

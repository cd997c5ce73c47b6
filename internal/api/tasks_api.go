package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/traction-app/traction/internal/app/tasks"
	"github.com/traction-app/traction/internal/domain"
)

// ─── Task CRUD ──────────────────────────────────────────────────────────────

type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Type        domain.TaskType `json:"type"`
	Status      domain.Status   `json:"status"`
	Priority    int             `json:"priority"`
	DueDate     *time.Time      `json:"due_date"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.tasks.Create(s.owner(r), tasks.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(s.owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	list, err := s.tasks.List(s.owner(r), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if list == nil {
		list = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": list,
	})
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tasks.History(s.owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.StatusHistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
	})
}

func (s *Server) handleTimeEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.tasks.TimeEntries(s.owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.TimeEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"time_entries": entries,
	})
}

// ─── Status & Ordering ──────────────────────────────────────────────────────

type updateStatusRequest struct {
	Status domain.Status `json:"status"`
	Note   string        `json:"note"`
	// Position, when present, inserts the task at that index in the
	// destination column (clamped); the whole move is one operation.
	Position *int `json:"position"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	var task *domain.Task
	var err error
	if req.Position != nil {
		task, err = s.tasks.TransitionWithPosition(s.owner(r), id, req.Status, req.Position, req.Note)
	} else {
		task, err = s.tasks.Transition(s.owner(r), id, req.Status, req.Note)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type moveRequest struct {
	Position *int `json:"position"` // nil moves to the front
}

func (s *Server) handleMoveToPosition(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.tasks.MoveToPosition(s.owner(r), chi.URLParam(r, "id"), req.Position)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type reorderRequest struct {
	TaskIDs []string      `json:"task_ids"`
	Status  domain.Status `json:"status"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := s.tasks.Reorder(s.owner(r), req.TaskIDs, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"updated_count": n,
	})
}

// ─── Timers ─────────────────────────────────────────────────────────────────

type timerRequest struct {
	Description string `json:"description"`
}

func decodeTimerRequest(r *http.Request) timerRequest {
	var req timerRequest
	// Body is optional for timer operations.
	_ = json.NewDecoder(r.Body).Decode(&req)
	return req
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	req := decodeTimerRequest(r)
	res, err := s.tasks.StartTimer(s.owner(r), chi.URLParam(r, "id"), req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePauseTimer(w http.ResponseWriter, r *http.Request) {
	req := decodeTimerRequest(r)
	res, err := s.tasks.PauseTimer(s.owner(r), chi.URLParam(r, "id"), req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	req := decodeTimerRequest(r)
	res, err := s.tasks.StopTimer(s.owner(r), chi.URLParam(r, "id"), req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Journal & Settings ─────────────────────────────────────────────────────

func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	j, err := s.journal.Get(s.owner(r), chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.journal.Settings(s.owner(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.UserSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.journal.UpdateSettings(s.owner(r), settings)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// ─── Scheduler ──────────────────────────────────────────────────────────────

func (s *Server) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) handleSchedulerRunNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.runner.RunNow(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"job":    id,
		"status": "completed",
	})
}

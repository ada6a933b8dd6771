package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// sessionResponse is a session view with the intent waiting for the client.
type sessionResponse struct {
	session.View
	Intent *Intent `json:"intent,omitempty"`
}

type openRequest struct {
	RoutineID int64 `json:"routine_id"`
}

type recoveryRequest struct {
	Decision session.RecoveryDecision `json:"decision"`
}

// target addresses an exercise either by ref or by its position in the
// composed list.
type target struct {
	Ref           *session.ExerciseRef `json:"ref,omitempty"`
	ExerciseIndex *int                 `json:"exercise_index,omitempty"`
}

type editRequest struct {
	target
	SetIndex int           `json:"set_index"`
	Field    session.Field `json:"field"`
	Value    string        `json:"value"`
}

type addExercisesRequest struct {
	Exercises []models.WorkoutExercise `json:"exercises"`
}

type finishRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.RoutineID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "routine_id required"})
		return
	}

	sess, err := s.sessions.Open(r.Context(), userIDFromContext(r), req.RoutineID)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.response(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.response(sess))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.intents.Complete(sess.ID())
	s.sessions.Close(sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req recoveryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	switch req.Decision {
	case session.DecisionContinue, session.DecisionDiscard:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decision must be continue or discard"})
		return
	}
	if err := sess.ResolveRecovery(r.Context(), req.Decision); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(sess))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.RefreshTemplate(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(sess))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	ref, ok := s.resolveTarget(w, sess, req.target)
	if !ok {
		return
	}
	edit := session.Edit{Ref: ref, SetIndex: req.SetIndex, Field: req.Field, Raw: req.Value}
	if err := sess.ApplyEdit(r.Context(), edit); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(sess))
}

func (s *Server) handleAppendSet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req target
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	ref, ok := s.resolveTarget(w, sess, req)
	if !ok {
		return
	}
	if err := sess.AppendSet(r.Context(), ref); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(sess))
}

func (s *Server) handlePicker(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.OpenExercisePicker(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(sess))
}

func (s *Server) handleAddExercises(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req addExercisesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	added, err := sess.AddTemporaryExercises(r.Context(), req.Exercises)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	// The picker is closed once its selection arrives.
	if it, ok := s.intents.Peek(sess.ID()); ok && it.Kind == IntentExercisePicker {
		s.intents.Complete(sess.ID())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":   added,
		"session": s.response(sess),
	})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req finishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	conf, err := sess.Finish(r.Context(), req.Notes)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.RequestExit(ctx)
	})
}

func (s *Server) handleExitConfirm(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(ctx context.Context, sess *session.Session) error {
		return sess.ConfirmExit(ctx)
	})
}

func (s *Server) handleExitCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(_ context.Context, sess *session.Session) error {
		return sess.CancelExit()
	})
}

// handleCompleteTransition acknowledges the pending intent. Leaving the
// session screen, by confirmation or back, releases the session.
func (s *Server) handleCompleteTransition(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	it, ok := s.intents.Complete(sess.ID())
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no pending transition"})
		return
	}
	if it.Kind == IntentConfirmation || it.Kind == IntentBack {
		s.sessions.Close(sess.ID())
	}
	writeJSON(w, http.StatusOK, map[string]any{"completed": it.Kind})
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session) error) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), sess); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.response(sess))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return nil, false
	}
	sess, err := s.sessions.Get(id, userIDFromContext(r))
	if err != nil {
		s.writeSessionError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) response(sess *session.Session) sessionResponse {
	resp := sessionResponse{View: sess.View()}
	if it, ok := s.intents.Peek(sess.ID()); ok {
		resp.Intent = &it
	}
	return resp
}

func (s *Server) resolveTarget(w http.ResponseWriter, sess *session.Session, t target) (session.ExerciseRef, bool) {
	switch {
	case t.Ref != nil:
		return *t.Ref, true
	case t.ExerciseIndex != nil:
		ref, err := sess.RefAt(*t.ExerciseIndex)
		if err != nil {
			s.writeSessionError(w, err)
			return session.ExerciseRef{}, false
		}
		return ref, true
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ref or exercise_index required"})
		return session.ExerciseRef{}, false
	}
}

// writeSessionError maps engine errors to responses. Only a failed commit
// carries its retry hint; the cause stays in the log.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	var ce *session.CommitError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":     "saving the workout failed",
			"retryable": ce.Retryable,
		})
	case errors.Is(err, session.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "routine not found"})
	case errors.Is(err, session.ErrInvalidEdit):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrRecoveryPending),
		errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrRoutineMissing):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrLoadFailed):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "routine could not be loaded"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "request canceled"})
	default:
		s.log.Error("session request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v zero.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

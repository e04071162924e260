package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crimson-sun/moodlens/internal/assist"
	"github.com/crimson-sun/moodlens/internal/chat"
	"github.com/crimson-sun/moodlens/internal/engine"
	"github.com/crimson-sun/moodlens/internal/model"
	"github.com/crimson-sun/moodlens/internal/server/middleware"
	"github.com/crimson-sun/moodlens/internal/server/respond"
)

type textRequest struct {
	Text string `json:"text"`
}

type sessionResponse struct {
	SessionID string       `json:"sessionId"`
	Messages  []model.Turn `json:"messages"`
}

type speechResponse struct {
	Transcript string `json:"transcript"`
	chat.Reply
}

type formView struct {
	Text     string
	Error    string
	Analysis *model.Analysis
}

func (s *Server) handleHealth(c *gin.Context) {
	respond.OK(c, gin.H{"status": "ok"})
}

func (s *Server) handleForm(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		c.HTML(http.StatusOK, "index.html", formView{})
		return
	}

	text := strings.TrimSpace(c.PostForm("user_text"))
	view := formView{Text: text}
	a, err := s.analyzer.Analyze(c.Request.Context(), text)
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		view.Error = verr.Message
	case err != nil:
		slog.Error("form analysis failed", "request_id", middleware.RequestIDFromContext(c), "error", err)
		c.HTML(http.StatusInternalServerError, "index.html", formView{Text: text, Error: "Something went wrong. Please try again."})
		return
	default:
		c.Set("analysisId", a.ID)
		s.record(c.Request.Context(), a)
		view.Analysis = &a
	}
	c.HTML(http.StatusOK, "index.html", view)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeBadRequest, "Request body must be JSON with a text field.", err.Error())
		return
	}
	a, err := s.analyzer.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set("analysisId", a.ID)
	s.record(c.Request.Context(), a)
	respond.OK(c, a)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	id, turns, err := s.chat.Start(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set("sessionId", id)
	respond.JSON(c, http.StatusCreated, sessionResponse{SessionID: id, Messages: turns})
}

func (s *Server) handleListMessages(c *gin.Context) {
	id := c.Param("id")
	c.Set("sessionId", id)
	turns, err := s.chat.History(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond.OK(c, sessionResponse{SessionID: id, Messages: turns})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	id := c.Param("id")
	c.Set("sessionId", id)
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeBadRequest, "Request body must be JSON with a text field.", err.Error())
		return
	}
	reply, err := s.send(c.Request.Context(), id, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set("analysisId", reply.Analysis.ID)
	respond.OK(c, reply)
}

func (s *Server) handleSpeech(c *gin.Context) {
	id := c.Param("id")
	c.Set("sessionId", id)
	if s.speech == nil {
		respond.Error(c, http.StatusServiceUnavailable, respond.CodeUnavailable, assist.MsgUnavailable, nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	fh, err := c.FormFile("audio")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeBadRequest, "Multipart field \"audio\" is required.", err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeBadRequest, "Could not read uploaded audio.", err.Error())
		return
	}
	defer f.Close()

	text, err := s.speech.Transcribe(c.Request.Context(), f, fh.Filename)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply, err := s.send(c.Request.Context(), id, text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Set("analysisId", reply.Analysis.ID)
	respond.OK(c, speechResponse{Transcript: text, Reply: reply})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	c.Set("sessionId", id)
	if err := s.chat.End(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) send(ctx context.Context, id, text string) (chat.Reply, error) {
	reply, err := s.chat.Send(ctx, id, text)
	if err != nil {
		return chat.Reply{}, err
	}
	s.record(ctx, reply.Analysis)
	return reply, nil
}

// fail maps domain errors onto HTTP error responses.
func (s *Server) fail(c *gin.Context, err error) {
	status, body := errorBody(err)
	respond.Error(c, status, body.Code, body.Message, body.Details)
}

func errorBody(err error) (int, respond.ErrorBody) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, respond.ErrorBody{Code: respond.CodeNotMeaningful, Message: verr.Message}
	case chat.IsNotFound(err):
		return http.StatusNotFound, respond.ErrorBody{Code: respond.CodeNotFound, Message: "Session not found."}
	case errors.Is(err, assist.ErrNotUnderstood):
		return http.StatusUnprocessableEntity, respond.ErrorBody{Code: respond.CodeNotUnderstood, Message: assist.SpeechMessage(err)}
	case errors.Is(err, assist.ErrUnavailable):
		return http.StatusServiceUnavailable, respond.ErrorBody{Code: respond.CodeUnavailable, Message: assist.SpeechMessage(err)}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, respond.ErrorBody{Code: respond.CodeUnavailable, Message: "Request was cancelled."}
	}
	return http.StatusInternalServerError, respond.ErrorBody{Code: respond.CodeInternal, Message: "Unexpected server error"}
}

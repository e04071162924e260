package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/crimson-sun/moodlens/internal/assist"
	"github.com/crimson-sun/moodlens/internal/chat"
	"github.com/crimson-sun/moodlens/internal/engine"
	"github.com/crimson-sun/moodlens/internal/engine/validate"
	"github.com/crimson-sun/moodlens/internal/model"
	"github.com/crimson-sun/moodlens/internal/session"
)

// stubAnalyzer labels text containing "scared" as fear/High and everything
// else as happy.
type stubAnalyzer struct {
	validator validate.Validator
	err       error
}

func (a stubAnalyzer) Validate(text string) error {
	if !a.validator.Meaningful(text) {
		return &engine.ValidationError{Message: engine.ValidationMessage}
	}
	return nil
}

func (a stubAnalyzer) Analyze(_ context.Context, text string) (model.Analysis, error) {
	if err := a.Validate(text); err != nil {
		return model.Analysis{}, err
	}
	if a.err != nil {
		return model.Analysis{}, a.err
	}
	if strings.Contains(text, "scared") {
		return model.Analysis{
			ID: "a-fear", Text: text, Emotion: "fear", Category: model.Negative, Severity: model.High,
			Recommendations: []string{"Consider exposure therapy with a licensed therapist."},
		}, nil
	}
	return model.Analysis{ID: "a-happy", Text: text, Emotion: "happy", Category: model.Positive}, nil
}

type stubSuggester struct{}

func (stubSuggester) Suggest(_ context.Context, _ string, emotion model.Emotion, _ model.Severity) string {
	return "reply for " + string(emotion)
}

type stubSpeech struct {
	text string
	err  error
}

func (s stubSpeech) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	io.Copy(io.Discard, audio)
	return s.text, s.err
}

type auditRecorder struct {
	mu  sync.Mutex
	got []model.Analysis
}

func (r *auditRecorder) Write(_ context.Context, a model.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, a)
	return nil
}

func (r *auditRecorder) Close() error { return nil }

func (r *auditRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type fixture struct {
	router *gin.Engine
	audit  *auditRecorder
}

func newFixture(t *testing.T, speech Transcriber) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	an := stubAnalyzer{validator: validate.New(3)}
	audit := &auditRecorder{}
	srv, err := New(Config{
		Analyzer: an,
		Chat:     chat.New(session.NewMemory(), an, stubSuggester{}),
		Speech:   speech,
		Audit:    audit,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fixture{router: srv.Router(), audit: audit}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestNewRequiresAnalyzer(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without analyzer")
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestFormGet(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `name="user_text"`) {
		t.Fatalf("form = %d %s", w.Code, w.Body.String())
	}
}

func postForm(f fixture, text string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"user_text": {text}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestFormPostValidationMessage(t *testing.T) {
	f := newFixture(t, nil)
	w := postForm(f, "ok")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), engine.ValidationMessage) {
		t.Fatalf("validation message missing: %s", w.Body.String())
	}
	if f.audit.len() != 0 {
		t.Error("rejected input should not be audited")
	}
}

func TestFormPostNegative(t *testing.T) {
	f := newFixture(t, nil)
	body := postForm(f, "  I am so scared  ").Body.String()
	for _, want := range []string{"Emotion: fear", "Severity: High", "Consider exposure therapy"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if f.audit.len() != 1 {
		t.Errorf("audit records = %d, want 1", f.audit.len())
	}
}

func TestFormPostPositiveHasNoSeverity(t *testing.T) {
	f := newFixture(t, nil)
	body := postForm(f, "what a lovely day").Body.String()
	if !strings.Contains(body, "Emotion: happy") {
		t.Fatalf("page = %s", body)
	}
	if strings.Contains(body, "Severity:") || strings.Contains(body, "Recommendations") {
		t.Error("positive result should not show severity or recommendations")
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/api/v1/analyze", textRequest{Text: "I am scared"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	a := decode[model.Analysis](t, w)
	if a.Emotion != "fear" || a.Severity != model.High || len(a.Recommendations) == 0 {
		t.Errorf("analysis = %+v", a)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"not meaningful", `{"text":"12345"}`, http.StatusUnprocessableEntity, "not_meaningful"},
		{"empty", `{}`, http.StatusUnprocessableEntity, "not_meaningful"},
		{"bad json", `{"text":`, http.StatusBadRequest, "bad_request"},
	}
	f := newFixture(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if env := decode[errorEnvelope](t, w); env.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.code)
			}
		})
	}
}

func TestAnalyzeInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, _ := New(Config{Analyzer: stubAnalyzer{validator: validate.New(3), err: errors.New("onnx crashed")}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"text":"hello there"}`))
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestChatRoutesAbsentWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, _ := New(Config{Analyzer: stubAnalyzer{validator: validate.New(3)}})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d", w.Code)
	}
	created := decode[sessionResponse](t, w)
	if created.SessionID == "" || len(created.Messages) != 1 || created.Messages[0].Content != chat.Greeting {
		t.Fatalf("created = %+v", created)
	}
	base := "/api/v1/sessions/" + created.SessionID

	w = f.do(t, http.MethodPost, base+"/messages", textRequest{Text: "I am scared of tomorrow"})
	if w.Code != http.StatusOK {
		t.Fatalf("send = %d %s", w.Code, w.Body.String())
	}
	reply := decode[chat.Reply](t, w)
	if reply.Turn.Content != "reply for fear" || reply.Turn.Severity != model.High {
		t.Errorf("reply = %+v", reply)
	}

	w = f.do(t, http.MethodPost, base+"/messages", textRequest{Text: "ok"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("meaningless send = %d, want 422", w.Code)
	}

	w = f.do(t, http.MethodGet, base+"/messages", nil)
	history := decode[sessionResponse](t, w)
	if len(history.Messages) != 3 {
		t.Fatalf("history = %d turns, want 3", len(history.Messages))
	}
	if f.audit.len() != 1 {
		t.Errorf("audit records = %d, want 1", f.audit.len())
	}

	if w = f.do(t, http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = f.do(t, http.MethodGet, base+"/messages", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("after delete = %d, want 404", w.Code)
	}
	if env := decode[errorEnvelope](t, w); env.Error.Code != "not_found" {
		t.Errorf("code = %q", env.Error.Code)
	}
}

func speechRequest(t *testing.T, path string, withFile bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if withFile {
		fw, err := mw.CreateFormFile("audio", "clip.wav")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("RIFF...."))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSpeech(t *testing.T) {
	tests := []struct {
		name     string
		speech   Transcriber
		withFile bool
		status   int
		message  string
	}{
		{"transcribed", stubSpeech{text: "I feel scared"}, true, http.StatusOK, ""},
		{"not understood", stubSpeech{err: assist.ErrNotUnderstood}, true, http.StatusUnprocessableEntity, assist.MsgNotUnderstood},
		{"service down", stubSpeech{err: assist.ErrUnavailable}, true, http.StatusServiceUnavailable, assist.MsgUnavailable},
		{"not configured", nil, true, http.StatusServiceUnavailable, assist.MsgUnavailable},
		{"missing file", stubSpeech{text: "x"}, false, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.speech)
			created := decode[sessionResponse](t, f.do(t, http.MethodPost, "/api/v1/sessions", nil))

			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, speechRequest(t, "/api/v1/sessions/"+created.SessionID+"/speech", tt.withFile))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if tt.message != "" {
				if env := decode[errorEnvelope](t, w); env.Error.Message != tt.message {
					t.Errorf("message = %q, want %q", env.Error.Message, tt.message)
				}
			}
			if tt.status == http.StatusOK {
				resp := decode[speechResponse](t, w)
				if resp.Transcript != "I feel scared" || resp.Turn.Emotion != "fear" {
					t.Errorf("response = %+v", resp)
				}
			}
		})
	}
}

func TestChatSocket(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello ChatFrame
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read session frame: %v", err)
	}
	if hello.Type != FrameSession || hello.SessionID == "" || len(hello.Messages) != 1 {
		t.Fatalf("session frame = %+v", hello)
	}

	conn.WriteJSON(textRequest{Text: "I am scared"})
	var reply ChatFrame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply.Type != FrameReply || reply.Turn == nil || reply.Turn.Content != "reply for fear" {
		t.Fatalf("reply frame = %+v", reply)
	}

	conn.WriteJSON(textRequest{Text: "?"})
	var bad ChatFrame
	if err := conn.ReadJSON(&bad); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if bad.Type != FrameError || bad.Error == nil || bad.Error.Message != engine.ValidationMessage {
		t.Fatalf("error frame = %+v", bad)
	}

	// Reconnecting to the same session replays its history.
	again, _, err := websocket.DefaultDialer.Dial(wsURL+"?session="+hello.SessionID, nil)
	if err != nil {
		t.Fatalf("redial: %v", err)
	}
	defer again.Close()
	again.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resumed ChatFrame
	if err := again.ReadJSON(&resumed); err != nil {
		t.Fatalf("read resumed: %v", err)
	}
	if resumed.SessionID != hello.SessionID || len(resumed.Messages) != 3 {
		t.Fatalf("resumed = %+v", resumed)
	}
}

func TestChatSocketUnknownSession(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.router)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/chat?session=nope"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %v", resp)
	}
}

func closeSocket(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("write close: %v", err)
	}
	conn.Close()
}

func waitForStatus(t *testing.T, f fixture, path string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		code := f.do(t, http.MethodGet, path, nil).Code
		if code == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET %s = %d, want %d", path, code, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChatSocketDiscardsOwnSessionOnClose(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.router)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/chat"

	var ids []string
	for i := 0; i < 5; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var hello ChatFrame
		if err := conn.ReadJSON(&hello); err != nil {
			t.Fatalf("read session frame: %v", err)
		}
		ids = append(ids, hello.SessionID)
		closeSocket(t, conn)
	}
	for _, id := range ids {
		waitForStatus(t, f, "/api/v1/sessions/"+id+"/messages", http.StatusNotFound)
	}
}

func TestChatSocketKeepsCreatedSessionOnClose(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.router)
	defer ts.Close()

	created := decode[sessionResponse](t, f.do(t, http.MethodPost, "/api/v1/sessions", nil))
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/chat?session=" + created.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello ChatFrame
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read session frame: %v", err)
	}
	conn.WriteJSON(textRequest{Text: "I am scared"})
	var reply ChatFrame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	closeSocket(t, conn)

	time.Sleep(50 * time.Millisecond)
	w := f.do(t, http.MethodGet, "/api/v1/sessions/"+created.SessionID+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session created over REST was discarded: %d", w.Code)
	}
}

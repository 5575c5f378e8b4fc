package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-go-golems/agentverse/pkg/ai"
	"github.com/go-go-golems/agentverse/pkg/events"
	"github.com/go-go-golems/agentverse/pkg/flows"
	"github.com/go-go-golems/agentverse/pkg/history"
	"github.com/go-go-golems/agentverse/pkg/kv"
	"github.com/go-go-golems/agentverse/pkg/persona"
	"github.com/go-go-golems/agentverse/pkg/tasks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	fail   *atomic.Bool
	toasts chan events.Toast
}

func scriptedEngine(fail *atomic.Bool) ai.Engine {
	return ai.EngineFunc(func(ctx context.Context, req *ai.Request) (*ai.Response, error) {
		if fail.Load() {
			return nil, errors.New("model down")
		}
		var v interface{}
		switch req.JSONSchema.Name {
		case "chat_reply":
			v = map[string]string{"message": "reply to " + req.Prompt, "code": "<b>hi</b>"}
		case "generated_code":
			v = map[string]string{"code": "<p>generated</p>"}
		case "plan":
			v = map[string]string{"plan": "1. Research\n2. Build"}
		case "refined_approach":
			v = map[string]string{"refinedApproach": "Try harder."}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return &ai.Response{Text: string(b), Model: "scripted"}, nil
	})
}

// brokenKV serves reads from memory and fails every write once broken is set.
type brokenKV struct {
	*kv.InMemoryStore
	broken atomic.Bool
}

func (b *brokenKV) Set(ctx context.Context, key, value string) error {
	if b.broken.Load() {
		return errors.New("disk full")
	}
	return b.InMemoryStore.Set(ctx, key, value)
}

func (b *brokenKV) Remove(ctx context.Context, key string) error {
	if b.broken.Load() {
		return errors.New("disk full")
	}
	return b.InMemoryStore.Remove(ctx, key)
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithStore(t, kv.NewInMemoryStore())
}

func newTestServerWithStore(t *testing.T, store kv.Store) *testServer {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	fail := &atomic.Bool{}
	f, err := flows.New(scriptedEngine(fail), ai.FakeSpeaker{})
	require.NoError(t, err)

	toasts := make(chan events.Toast, 16)
	notifier := events.NotifierFunc(func(t events.Toast) { toasts <- t })

	s, err := New(Deps{
		History: history.NewStore(ctx, store),
		Persona: persona.NewStore(store),
		Flows:   f,
		Dashboard: tasks.NewDashboard(f,
			tasks.WithDashboardNotifier(notifier),
			tasks.WithRunnerOptions(tasks.WithDelays(time.Millisecond, 2*time.Millisecond)),
		),
		Notifier: notifier,
	})
	require.NoError(t, err)
	return &testServer{Server: s, fail: fail, toasts: toasts}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, path, nil)
	case string:
		r = httptest.NewRequest(method, path, strings.NewReader(b))
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(buf))
	}
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) startChat(t *testing.T) string {
	w := ts.do(t, http.MethodPost, "/api/conversations", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[startConversationResponse](t, w)
	assert.Equal(t, "/chat/"+resp.ID, resp.Path)
	return resp.ID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestConversationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startChat(t)

	w := ts.do(t, http.MethodPost, "/chat/"+id+"/messages", messageRequest{Input: "Hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	msg := decode[messageResponse](t, w)
	assert.Equal(t, history.RoleAssistant, msg.Message.Role)
	assert.Equal(t, "reply to Hello", msg.Message.Content)
	assert.Equal(t, "<b>hi</b>", msg.Message.Code)
	assert.Equal(t, "/sandbox?code=%3Cb%3Ehi%3C%2Fb%3E", msg.SandboxURL)
	require.Len(t, msg.Conversation.Messages, 2)
	assert.Equal(t, "Hello", msg.Conversation.Title)

	w = ts.do(t, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[conversationsResponse](t, w)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, history.Summary{ID: id, Title: "Hello"}, list.Conversations[0])
	assert.Equal(t, id, list.ActiveID)

	w = ts.do(t, http.MethodPost, "/chat/"+id+"/messages/"+msg.Message.ID+"/audio", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "data:audio/wav;base64,UklGRg==", decode[audioResponse](t, w).AudioSrc)

	w = ts.do(t, http.MethodGet, "/chat/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	conv := decode[history.Conversation](t, w)
	assert.Equal(t, "data:audio/wav;base64,UklGRg==", conv.Messages[1].AudioSrc)

	w = ts.do(t, http.MethodDelete, "/api/conversations/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/chat/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/conversations/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessagesAreRoutedToTheirConversation(t *testing.T) {
	ts := newTestServer(t)
	first := ts.startChat(t)
	second := ts.startChat(t)

	w := ts.do(t, http.MethodPost, "/chat/"+first+"/messages", messageRequest{Input: "one"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodPost, "/chat/"+second+"/messages", messageRequest{Input: "two"})
	require.Equal(t, http.StatusOK, w.Code)

	c1, ok := ts.deps.History.Get(first)
	require.True(t, ok)
	c2, ok := ts.deps.History.Get(second)
	require.True(t, ok)
	assert.Equal(t, "one", c1.Messages[0].Content)
	assert.Equal(t, "two", c2.Messages[0].Content)
}

func TestConcurrentMessagesStayInTheirConversation(t *testing.T) {
	ts := newTestServer(t)
	ids := map[string]string{"A": ts.startChat(t), "B": ts.startChat(t)}

	const n = 50
	var wg sync.WaitGroup
	codes := make(chan int, 2*n)
	for name, id := range ids {
		wg.Add(1)
		go func(name, id string) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				buf, _ := json.Marshal(messageRequest{Input: fmt.Sprintf("%s-%d", name, i)})
				r := httptest.NewRequest(http.MethodPost, "/chat/"+id+"/messages", bytes.NewReader(buf))
				r.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				ts.Handler().ServeHTTP(w, r)
				codes <- w.Code
			}
		}(name, id)
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		require.Equal(t, http.StatusOK, code)
	}

	for name, id := range ids {
		conv, ok := ts.deps.History.Get(id)
		require.True(t, ok)
		require.Len(t, conv.Messages, 2*n, name)
		assert.Equal(t, name+"-0", conv.Title)
		for i, m := range conv.Messages {
			assert.True(t, strings.HasPrefix(strings.TrimPrefix(m.Content, "reply to "), name+"-"),
				"%s message %d holds %q", name, i, m.Content)
		}
	}
}

func TestConversationRoutesSucceedWhenStorageFails(t *testing.T) {
	store := &brokenKV{InMemoryStore: kv.NewInMemoryStore()}
	ts := newTestServerWithStore(t, store)
	kept := ts.startChat(t)
	store.broken.Store(true)

	id := ts.startChat(t)
	list := decode[conversationsResponse](t, ts.do(t, http.MethodGet, "/api/conversations", nil))
	assert.Len(t, list.Conversations, 2)

	w := ts.do(t, http.MethodDelete, "/api/conversations/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	list = decode[conversationsResponse](t, ts.do(t, http.MethodGet, "/api/conversations", nil))
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, kept, list.Conversations[0].ID)

	w = ts.do(t, http.MethodDelete, "/api/conversations", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	list = decode[conversationsResponse](t, ts.do(t, http.MethodGet, "/api/conversations", nil))
	assert.Empty(t, list.Conversations)
}

func TestClearConversations(t *testing.T) {
	ts := newTestServer(t)
	ts.startChat(t)
	ts.startChat(t)

	w := ts.do(t, http.MethodDelete, "/api/conversations", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, decode[conversationsResponse](t, ts.do(t, http.MethodGet, "/api/conversations", nil)).Conversations)
}

func TestMessageErrors(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startChat(t)

	w := ts.do(t, http.MethodPost, "/chat/"+id+"/messages", messageRequest{Input: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/chat/"+id+"/messages", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/chat/chat-0/messages", messageRequest{Input: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.fail.Store(true)
	w = ts.do(t, http.MethodPost, "/chat/"+id+"/messages", messageRequest{Input: "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Error, "model down")

	toast := <-ts.toasts
	assert.Equal(t, "Failed to get a response. Please try again.", toast.Description)

	conv, ok := ts.deps.History.Get(id)
	require.True(t, ok)
	assert.Empty(t, conv.Messages)
}

func TestMetricsCountRequests(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/healthz", nil)
	ts.fail.Store(true)
	ts.do(t, http.MethodPost, "/api/flows/plan", flows.FormulatePlanInput{Objective: "x"})

	w := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `agentverse_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, body, `agentverse_model_errors_total{route="/api/flows/plan"} 1`)
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/settings/agent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, persona.DefaultAgentSettings(), decode[persona.AgentSettings](t, w))

	w = ts.do(t, http.MethodPut, "/api/settings/agent", map[string]string{"agentName": "Ada"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[persona.AgentSettings](t, w)
	assert.Equal(t, "Ada", got.AgentName)
	assert.Equal(t, persona.RoleHelpfulAssistant, got.AgentRole)

	w = ts.do(t, http.MethodPut, "/api/settings/agent", map[string]string{"agentRole": "wizard"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Ada", ts.deps.Persona.LoadAgentSettings(context.Background()).AgentName)

	w = ts.do(t, http.MethodPut, "/api/settings/profile", persona.UserProfile{Name: "Grace"})
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/settings/profile", nil)
	assert.Equal(t, "Grace", decode[persona.UserProfile](t, w).Name)
}

func TestSandbox(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/sandbox?code=%3Cp%3Ehi%3C%2Fp%3E", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<p>hi</p>", decode[sandboxResponse](t, w).Code)

	w = ts.do(t, http.MethodPost, "/api/sandbox/generate", generateRequest{Prompt: "a paragraph"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<p>generated</p>", decode[sandboxResponse](t, w).Code)

	w = ts.do(t, http.MethodPost, "/api/sandbox/generate", generateRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanRunAndFeedback(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/tasks/run", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/plan", planRequest{Objective: "launch"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	plan := decode[planResponse](t, w)
	assert.Equal(t, "launch", plan.Objective)
	require.Len(t, plan.Tasks, 2)
	assert.Equal(t, "Research", plan.Tasks[0].Description)

	w = ts.do(t, http.MethodPost, "/api/tasks/"+plan.Tasks[0].ID+"/feedback", feedbackRequest{Feedback: "more"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/tasks/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode[tasksResponse](t, w)
	for _, task := range run.Tasks {
		assert.Equal(t, tasks.StatusCompleted, task.Status)
		assert.Equal(t, tasks.CompletionResult(task.Description), task.Result)
	}

	w = ts.do(t, http.MethodPost, "/api/tasks/"+plan.Tasks[0].ID+"/feedback", feedbackRequest{Feedback: "more"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	task := decode[tasks.Task](t, w)
	assert.Equal(t, "more", task.Feedback)
	assert.Equal(t, "Try harder.", task.RefinedApproach)

	w = ts.do(t, http.MethodPost, "/api/tasks/missing/feedback", feedbackRequest{Feedback: "more"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetTasks(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPut, "/api/tasks", tasksRequest{Tasks: []string{"a", "b"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/tasks", nil)
	got := decode[tasksResponse](t, w)
	require.Len(t, got.Tasks, 2)
	assert.Equal(t, tasks.StatusPending, got.Tasks[1].Status)
}

func TestRawFlows(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/flows/chat", flows.ChatInput{Message: "hi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "reply to hi", decode[flows.ChatOutput](t, w).Message)

	w = ts.do(t, http.MethodPost, "/api/flows/chat", flows.ChatInput{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/flows/tts", flows.TextToSpeechInput{Text: "say"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data:audio/wav;base64,UklGRg==", decode[flows.TextToSpeechOutput](t, w).AudioDataURI)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Run(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

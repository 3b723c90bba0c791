package alert

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	name  string
	kinds []Kind
	err   error
}

func (r *recordingNotifier) Send(ctx context.Context, kind Kind, payload map[string]any) error {
	r.kinds = append(r.kinds, kind)
	return r.err
}

func (r *recordingNotifier) Name() string { return r.name }

func TestServiceFansOut(t *testing.T) {
	t.Parallel()

	a := &recordingNotifier{name: "a"}
	b := &recordingNotifier{name: "b"}
	s := NewService(slog.Default(), a, b)

	require.NoError(t, s.Send(context.Background(), KindFill, map[string]any{"order_id": "o1"}))
	assert.Equal(t, []Kind{KindFill}, a.kinds)
	assert.Equal(t, []Kind{KindFill}, b.kinds)
}

func TestServiceSwallowsFailures(t *testing.T) {
	t.Parallel()

	bad := &recordingNotifier{name: "bad", err: errors.New("boom")}
	good := &recordingNotifier{name: "good"}
	s := NewService(slog.Default(), bad, good)

	// A failing channel must never bubble up, and later channels still run.
	require.NoError(t, s.Send(context.Background(), KindError, nil))
	assert.Len(t, good.kinds, 1)
}

func TestTelegramSend(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/bot123:abc/sendMessage"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tg, err := NewTelegram("123:abc", "42")
	require.NoError(t, err)
	tg.baseURL = server.URL

	err = tg.Send(context.Background(), KindRiskRejection, map[string]any{
		"symbol": "EURUSD",
		"reason": "daily_risk_exhausted",
	})
	require.NoError(t, err)

	assert.Equal(t, "42", got["chat_id"])
	text, _ := got["text"].(string)
	assert.Contains(t, text, "Risk rejection")
	assert.Contains(t, text, "daily_risk_exhausted")
}

func TestTelegramRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewTelegram("", "42")
	assert.Error(t, err)
	_, err = NewTelegram("tok", "")
	assert.Error(t, err)
}

func TestTelegramNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tg, err := NewTelegram("123:abc", "42")
	require.NoError(t, err)
	tg.baseURL = server.URL

	assert.Error(t, tg.Send(context.Background(), KindSignal, nil))
}

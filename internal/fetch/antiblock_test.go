package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// page returns a body comfortably above the minimum-length threshold.
func page(content string) string {
	return "<html><body>" + content + strings.Repeat(" filler", 100) + "</body></html>"
}

func newTestClient(opts ...Option) *Client {
	base := []Option{WithDelayRange(0, 0), WithAttempts(4)}
	return NewClient(nil, append(base, opts...)...)
}

func TestGet_BlockedThenOK(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(page("conteudo esperado")))
	}))
	defer server.Close()

	client := newTestClient()
	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "conteudo esperado")
	// The ok response short-circuits the remaining attempt budget.
	assert.Equal(t, int32(3), hits.Load())
}

func TestGet_Exhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(WithAttempts(3))
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "3 attempts")
}

func TestGet_ShortBodyTreatedAsBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tiny"))
	}))
	defer server.Close()

	client := newTestClient(WithAttempts(2))
	_, err := client.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestGet_BlockMarkerDetected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page("Atenção: você foi BLOQUEADO por excesso de requisições")))
	}))
	defer server.Close()

	client := newTestClient(WithAttempts(2), WithBlockMarkers([]string{"bloqueado"}))
	_, err := client.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestGet_MissingContentMarkerRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(page("pagina generica sem a listagem")))
			return
		}
		_, _ = w.Write([]byte(page(`<div class="row-list">empresas</div>`)))
	}))
	defer server.Close()

	client := newTestClient()
	body, err := client.Get(context.Background(), server.URL, "row-list")
	require.NoError(t, err)
	assert.Contains(t, body, "row-list")
	assert.Equal(t, int32(2), hits.Load())
}

func TestGet_NetworkErrorCountsAsAttempt(t *testing.T) {
	// Closed server: every attempt is a connection error, none propagate.
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	client := newTestClient(WithAttempts(2))
	_, err := client.Get(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestGet_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient()
	_, err := client.Get(ctx, "http://irrelevant.example/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGet_SleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(nil, WithDelayRange(time.Minute, time.Minute), WithAttempts(1))
	start := time.Now()
	_, err := client.Get(ctx, "http://irrelevant.example/")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClassify(t *testing.T) {
	client := newTestClient()
	long := strings.Repeat("x", DefaultMinBodyLen)

	tests := []struct {
		name    string
		status  int
		body    string
		markers []string
		want    classification
	}{
		{"ok", 200, long, nil, classOK},
		{"blocked status", 403, long, nil, classBlocked},
		{"server error rotates", 503, long, nil, classBlocked},
		{"other non-200", 404, long, nil, classTransient},
		{"short body", 200, "oi", nil, classBlocked},
		{"block marker", 200, long + " CAPTCHA ", nil, classBlocked},
		{"marker present", 200, long + " empresas", []string{"empresas"}, classOK},
		{"marker absent", 200, long, []string{"empresas"}, classTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.classify(tt.status, tt.body, tt.markers))
		})
	}
}

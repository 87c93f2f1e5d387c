package notify

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowToast_OrderAndUniqueIDs(t *testing.T) {
	c := NewCenter(time.Minute)
	defer c.Close()

	first := c.ShowToast("primeiro", ports.SeverityInfo)
	second := c.ShowToast("segundo", ports.SeverityError)

	assert.NotEqual(t, first, second)
	toasts := c.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, "primeiro", toasts[0].Message)
	assert.Equal(t, ports.SeverityError, toasts[1].Severity)
	assert.False(t, toasts[0].CreatedAt.IsZero())
}

func TestShowToast_ExpiresAfterTTL(t *testing.T) {
	c := NewCenter(20 * time.Millisecond)
	defer c.Close()

	c.ShowToast("some", ports.SeveritySuccess)
	require.Len(t, c.Toasts(), 1)

	assert.Eventually(t, func() bool { return len(c.Toasts()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestDismiss(t *testing.T) {
	c := NewCenter(time.Minute)
	defer c.Close()

	a := c.ShowToast("a", ports.SeverityInfo)
	b := c.ShowToast("b", ports.SeverityInfo)

	assert.True(t, c.Dismiss(a))
	assert.False(t, c.Dismiss(a))

	toasts := c.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, b, toasts[0].ID)
}

func TestModalSlot_LastWriteWins(t *testing.T) {
	c := NewCenter(time.Minute)
	defer c.Close()

	_, open := c.Modal()
	assert.False(t, open)

	c.OpenModal(Modal{Kind: "confirm", Title: "Excluir?"})
	c.OpenModal(Modal{Kind: "info", Title: "Pronto"})

	m, open := c.Modal()
	require.True(t, open)
	assert.Equal(t, "Pronto", m.Title)

	c.CloseModal()
	_, open = c.Modal()
	assert.False(t, open)
}

func TestSubscribe(t *testing.T) {
	c := NewCenter(time.Minute)
	defer c.Close()

	var mu sync.Mutex
	var got []EventType
	unsubscribe := c.Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev.Type)
	})

	id := c.ShowToast("oi", ports.SeverityInfo)
	c.Dismiss(id)
	c.OpenModal(Modal{Kind: "info"})
	c.CloseModal()
	c.SetLoading(true)
	c.SetLoading(true)

	unsubscribe()
	c.ShowToast("ignorado", ports.SeverityInfo)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{
		EventToastAdded, EventToastRemoved, EventModalOpened, EventModalClosed, EventLoadingChanged,
	}, got)
}

func TestClose_StopsTimers(t *testing.T) {
	c := NewCenter(10 * time.Millisecond)
	c.ShowToast("fica", ports.SeverityInfo)
	c.Close()

	time.Sleep(40 * time.Millisecond)
	assert.Len(t, c.Toasts(), 1)
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		toast string
	}{
		{"unauthenticated", errors.Unauthenticated("sem token"), "Você não está autenticado. Por favor, faça login novamente."},
		{"network", errors.NetworkError(stderrors.New("dial tcp")), "Não foi possível conectar ao servidor."},
		{"backend message", &errors.HTTPError{Status: 403, Message: "Proibido"}, "Proibido"},
		{"other", stderrors.New("boom"), "Algo deu errado"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCenter(time.Minute)
			defer c.Close()

			assert.Equal(t, tt.err, ReportError(c, tt.err, "Algo deu errado"))
			toasts := c.Toasts()
			require.Len(t, toasts, 1)
			assert.Equal(t, tt.toast, toasts[0].Message)
			assert.Equal(t, ports.SeverityError, toasts[0].Severity)
		})
	}
}

func TestReportError_ValidationStaysInline(t *testing.T) {
	c := NewCenter(time.Minute)
	defer c.Close()

	err := ReportError(c, errors.ValidationError("título curto"), "x")
	assert.Error(t, err)
	assert.Empty(t, c.Toasts())
}

package hubs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/creds"
	"github.com/Sprinter05/duochat/server/msglog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* FAKES */

type fakeCreds struct {
	mut   sync.Mutex
	names map[string]uint
	pswds map[uint]string
	byID  map[uint]string
	fail  error
}

func newFakeCreds() *fakeCreds {
	return &fakeCreds{
		names: make(map[string]uint),
		pswds: make(map[uint]string),
		byID:  make(map[uint]string),
	}
}

func (f *fakeCreds) Register(_ context.Context, username string, password string) (uint, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	if f.fail != nil {
		return 0, f.fail
	}

	name := creds.Normalize(username)
	if name == "" || password == "" {
		return 0, spec.Errorf(spec.ErrorValidation, "username & password required")
	}
	if _, ok := f.names[name]; ok {
		return 0, spec.ErrorDuplicate
	}

	id := uint(len(f.names) + 1)
	f.names[name] = id
	f.byID[id] = name
	f.pswds[id] = password
	return id, nil
}

func (f *fakeCreds) Authenticate(_ context.Context, username string, password string) (uint, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	id, ok := f.names[creds.Normalize(username)]
	if !ok {
		return 0, spec.ErrorNotFound
	}
	if f.pswds[id] != password {
		return 0, spec.ErrorCredentials
	}
	return id, nil
}

func (f *fakeCreds) Lookup(_ context.Context, username string) (creds.User, bool, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	id, ok := f.names[creds.Normalize(username)]
	if !ok {
		return creds.User{}, false, nil
	}
	return creds.User{ID: id, Username: f.byID[id]}, true, nil
}

func (f *fakeCreds) Get(_ context.Context, id uint) (creds.User, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	name, ok := f.byID[id]
	if !ok {
		return creds.User{}, spec.ErrorNotFound
	}
	return creds.User{ID: id, Username: name}, nil
}

func (f *fakeCreds) ListOthers(_ context.Context, excluding uint) ([]string, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	others := make([]string, 0)
	for id := uint(1); id <= uint(len(f.byID)); id++ {
		if id != excluding {
			others = append(others, f.byID[id])
		}
	}
	return others, nil
}

type fakeMessages struct {
	mut  sync.Mutex
	msgs []msglog.Message
	fail error
}

func (f *fakeMessages) Append(_ context.Context, sender uint, receiver uint, body string) (msglog.Message, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	if f.fail != nil {
		return msglog.Message{}, f.fail
	}

	m := msglog.Message{
		ID:         uint64(len(f.msgs) + 1),
		SenderID:   sender,
		ReceiverID: receiver,
		Text:       strings.TrimSpace(body),
		CreatedAt:  time.Date(2024, 5, 1, 10, 0, len(f.msgs), 0, time.UTC),
	}
	f.msgs = append(f.msgs, m)
	return m, nil
}

func (f *fakeMessages) History(_ context.Context, a uint, b uint, limit int) ([]msglog.Message, error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	out := make([]msglog.Message, 0)
	for _, m := range f.msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

/* HELPERS */

func testHub(t *testing.T) (*Hub, *fakeCreds, *fakeMessages) {
	t.Helper()
	c := newFakeCreds()
	m := &fakeMessages{}
	h := NewHub(context.Background(), c, m, 0)
	t.Cleanup(h.Shutdown)
	return h, c, m
}

// Attaches a connection and discards the greeting.
func attach(t *testing.T, h *Hub, id string) *Conn {
	t.Helper()
	cl := NewConn(id, nil, id+"-addr")
	h.Attach(cl)

	op, _ := next(t, cl)
	require.Equal(t, spec.SERVER_EVENT, op)
	return cl
}

// Returns the next queued event of a connection.
func next(t *testing.T, cl *Conn) (spec.Action, json.RawMessage) {
	t.Helper()
	select {
	case frame, ok := <-cl.Outbox():
		require.True(t, ok, "connection closed")
		op, data, err := spec.ReadPacket(frame)
		require.NoError(t, err)
		return op, data
	case <-time.After(time.Second):
		t.Fatal("no event queued")
		return spec.NullOp, nil
	}
}

// Checks that nothing else was queued.
func quiet(t *testing.T, cl *Conn) {
	t.Helper()
	select {
	case frame := <-cl.Outbox():
		t.Fatalf("unexpected event %s", frame)
	default:
	}
}

func decode[T any](t *testing.T, data json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func expectError(t *testing.T, cl *Conn, op spec.Action, text string) {
	t.Helper()
	got, data := next(t, cl)
	require.Equal(t, op, got)
	assert.Equal(t, text, decode[spec.ErrorPayload](t, data).Error)
}

func run(h *Hub, cl *Conn, op spec.Action, args any) {
	Process(h, Request{Conn: cl, Command: spec.Command{Op: op, Args: args}})
}

/* TESTS */

func TestAttachGreets(t *testing.T) {
	h, _, _ := testHub(t)

	cl := NewConn("sid-1", nil, "addr")
	h.Attach(cl)

	op, data := next(t, cl)
	require.Equal(t, spec.SERVER_EVENT, op)
	ev := decode[spec.ServerEventPayload](t, data)
	assert.Equal(t, "Connected", ev.Message)
	assert.Equal(t, "sid-1", ev.SID)

	found, ok := h.FindConn("sid-1")
	assert.True(t, ok)
	assert.Same(t, cl, found)
	assert.Equal(t, 1, h.Online())
}

func TestRegisterAndLogin(t *testing.T) {
	h, _, _ := testHub(t)
	a := attach(t, h, "a")

	run(h, a, spec.REGISTER, spec.RegisterArgs{Username: "Ahmed", Password: "pw1"})
	op, data := next(t, a)
	require.Equal(t, spec.REGISTER_OK, op)
	roster := decode[spec.RosterPayload](t, data)
	assert.Equal(t, "ahmed", roster.Me)
	assert.Empty(t, roster.Others)

	_, ok := h.Session(a)
	assert.True(t, ok)

	run(h, a, spec.REGISTER, spec.RegisterArgs{Username: "ahmed", Password: "x"})
	expectError(t, a, spec.REGISTER_ERROR, "username already exists")

	m := attach(t, h, "m")
	run(h, m, spec.REGISTER, spec.RegisterArgs{Username: "mona", Password: "pw2"})
	op, data = next(t, m)
	require.Equal(t, spec.REGISTER_OK, op)
	assert.Equal(t, []string{"ahmed"}, decode[spec.RosterPayload](t, data).Others)

	other := attach(t, h, "o")
	run(h, other, spec.LOGIN, spec.LoginArgs{Username: "ahmed", Password: "pw1"})
	op, data = next(t, other)
	require.Equal(t, spec.LOGIN_OK, op)
	roster = decode[spec.RosterPayload](t, data)
	assert.Equal(t, "ahmed", roster.Me)
	assert.Equal(t, []string{"mona"}, roster.Others)
}

func TestLoginErrorsLookTheSame(t *testing.T) {
	h, _, _ := testHub(t)
	a := attach(t, h, "a")

	run(h, a, spec.REGISTER, spec.RegisterArgs{Username: "ahmed", Password: "pw1"})
	next(t, a)

	c := attach(t, h, "c")
	run(h, c, spec.LOGIN, spec.LoginArgs{Username: "ahmed", Password: "bad"})
	expectError(t, c, spec.LOGIN_ERROR, "invalid username or password")

	run(h, c, spec.LOGIN, spec.LoginArgs{Username: "ghost", Password: "pw1"})
	expectError(t, c, spec.LOGIN_ERROR, "invalid username or password")

	_, ok := h.Session(c)
	assert.False(t, ok)
}

func TestAnonymousRequests(t *testing.T) {
	h, _, m := testHub(t)
	c := attach(t, h, "c")

	run(h, c, spec.OPEN_DIALOG, spec.OpenDialogArgs{With: "mona"})
	expectError(t, c, spec.LOGIN_ERROR, "not logged in")

	run(h, c, spec.CHAT_MESSAGE, spec.ChatMessageArgs{To: "mona", Text: "hi"})
	expectError(t, c, spec.LOGIN_ERROR, "not logged in")

	assert.Empty(t, m.msgs)
	quiet(t, c)
}

func TestInvalidOperation(t *testing.T) {
	h, _, _ := testHub(t)
	c := attach(t, h, "c")

	run(h, c, spec.HISTORY, nil)
	expectError(t, c, spec.SERVER_ERROR, "invalid operation performed")

	run(h, c, spec.LOGIN, nil)
	expectError(t, c, spec.LOGIN_ERROR, "malformed request")
}

// Registers a user on a new connection.
func login(t *testing.T, h *Hub, id string, name string) *Conn {
	t.Helper()
	cl := attach(t, h, id)
	run(h, cl, spec.REGISTER, spec.RegisterArgs{Username: name, Password: "pw-" + name})
	op, _ := next(t, cl)
	if op != spec.REGISTER_OK {
		run(h, cl, spec.LOGIN, spec.LoginArgs{Username: name, Password: "pw-" + name})
		op, _ = next(t, cl)
	}
	require.Contains(t, []spec.Action{spec.REGISTER_OK, spec.LOGIN_OK}, op)
	return cl
}

func TestChatScenario(t *testing.T) {
	h, _, _ := testHub(t)
	a := login(t, h, "a", "ahmed")
	m := login(t, h, "m", "mona")

	run(h, a, spec.CHAT_MESSAGE, spec.ChatMessageArgs{To: "mona", Text: " hi "})

	for _, cl := range []*Conn{a, m} {
		op, data := next(t, cl)
		require.Equal(t, spec.CHAT_MESSAGE, op)
		msg := decode[spec.ChatPayload](t, data)
		assert.Equal(t, "ahmed", msg.From)
		assert.Equal(t, "mona", msg.To)
		assert.Equal(t, "hi", msg.Text)
		assert.Equal(t, "2024-05-01T10:00:00Z", msg.At)
	}

	run(h, m, spec.OPEN_DIALOG, spec.OpenDialogArgs{With: "ahmed"})
	op, data := next(t, m)
	require.Equal(t, spec.HISTORY, op)
	hist := decode[spec.HistoryPayload](t, data)
	assert.Equal(t, "ahmed", hist.With)
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, spec.FromThem, hist.Messages[0].From)
	assert.Equal(t, "hi", hist.Messages[0].Text)

	run(h, a, spec.OPEN_DIALOG, spec.OpenDialogArgs{With: "MONA"})
	op, data = next(t, a)
	require.Equal(t, spec.HISTORY, op)
	hist = decode[spec.HistoryPayload](t, data)
	assert.Equal(t, "mona", hist.With)
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, spec.FromMe, hist.Messages[0].From)
}

func TestChatFanOut(t *testing.T) {
	h, _, _ := testHub(t)
	a1 := login(t, h, "a1", "ahmed")
	a2 := login(t, h, "a2", "ahmed")
	m := login(t, h, "m", "mona")
	s := login(t, h, "s", "sara")

	run(h, a1, spec.CHAT_MESSAGE, spec.ChatMessageArgs{To: "mona", Text: "hi"})

	for _, cl := range []*Conn{a1, a2, m} {
		op, _ := next(t, cl)
		assert.Equal(t, spec.CHAT_MESSAGE, op)
		quiet(t, cl)
	}
	quiet(t, s)
}

func TestChatOfflineRecipient(t *testing.T) {
	h, _, msgs := testHub(t)
	a := login(t, h, "a", "ahmed")
	m := login(t, h, "m", "mona")
	h.Cleanup(m)

	run(h, a, spec.CHAT_MESSAGE, spec.ChatMessageArgs{To: "mona", Text: "later"})
	op, _ := next(t, a)
	assert.Equal(t, spec.CHAT_MESSAGE, op)
	assert.Len(t, msgs.msgs, 1)
}

func TestChatErrors(t *testing.T) {
	h, _, msgs := testHub(t)
	a := login(t, h, "a", "ahmed")

	tests := []struct {
		args spec.ChatMessageArgs
		text string
	}{
		{spec.ChatMessageArgs{To: "", Text: "hi"}, "both 'to' and 'text' required"},
		{spec.ChatMessageArgs{To: "mona", Text: "   "}, "both 'to' and 'text' required"},
		{spec.ChatMessageArgs{To: "ghost", Text: "hi"}, "recipient not found"},
		{spec.ChatMessageArgs{To: "Ahmed", Text: "hi"}, "cannot message yourself"},
	}

	for _, tt := range tests {
		run(h, a, spec.CHAT_MESSAGE, tt.args)
		expectError(t, a, spec.SEND_ERROR, tt.text)
	}

	assert.Empty(t, msgs.msgs)
}

func TestChatStorageFailure(t *testing.T) {
	h, _, msgs := testHub(t)
	a := login(t, h, "a", "ahmed")
	m := login(t, h, "m", "mona")

	msgs.fail = errors.Join(spec.ErrorStorage, errors.New("disk full"))
	run(h, a, spec.CHAT_MESSAGE, spec.ChatMessageArgs{To: "mona", Text: "hi"})

	expectError(t, a, spec.SEND_ERROR, "message could not be sent")
	quiet(t, m)
}

func TestUnexpectedError(t *testing.T) {
	h, c, _ := testHub(t)
	cl := attach(t, h, "c")

	c.fail = errors.New("boom")
	run(h, cl, spec.REGISTER, spec.RegisterArgs{Username: "x", Password: "y"})
	expectError(t, cl, spec.REGISTER_ERROR, "internal server error")
}

func TestOpenDialogUnknown(t *testing.T) {
	h, _, _ := testHub(t)
	a := login(t, h, "a", "ahmed")

	run(h, a, spec.OPEN_DIALOG, spec.OpenDialogArgs{With: "ghost"})
	expectError(t, a, spec.DIALOG_ERROR, "user not found")

	run(h, a, spec.OPEN_DIALOG, spec.OpenDialogArgs{With: ""})
	expectError(t, a, spec.DIALOG_ERROR, "user not found")
}

func TestRelogin(t *testing.T) {
	h, _, _ := testHub(t)
	login(t, h, "m", "mona")
	a := login(t, h, "a", "ahmed")

	run(h, a, spec.LOGIN, spec.LoginArgs{Username: "mona", Password: "pw-mona"})
	op, _ := next(t, a)
	require.Equal(t, spec.LOGIN_OK, op)

	id, ok := h.Session(a)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"m", "a"}, h.sessions.ConnectionsFor(id))
	assert.Empty(t, h.sessions.ConnectionsFor(2))
}

func TestCleanup(t *testing.T) {
	h, _, _ := testHub(t)
	a := login(t, h, "a", "ahmed")

	h.Cleanup(a)
	h.Cleanup(a)

	_, ok := h.Session(a)
	assert.False(t, ok)
	_, ok = h.FindConn("a")
	assert.False(t, ok)
	assert.True(t, a.Closed())
	assert.False(t, a.Push([]byte("x")))
}

func TestCleanupBeforeQueuedLogin(t *testing.T) {
	h, _, _ := testHub(t)
	a := login(t, h, "a", "ahmed")
	id, ok := h.Session(a)
	require.True(t, ok)

	gone := attach(t, h, "gone")
	req := make(chan Request, spec.MaxUserRequests)
	req <- Request{Conn: gone, Command: spec.Command{
		Op:   spec.LOGIN,
		Args: spec.LoginArgs{Username: "ahmed", Password: "pw-ahmed"},
	}}
	close(req)

	// The reader is gone before the queue is drained
	h.Cleanup(gone)
	for r := range req {
		Process(h, r)
	}

	_, ok = h.Session(gone)
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, h.sessions.ConnectionsFor(id))
	assert.Equal(t, 1, h.sessions.Len())
	_, ok = h.FindConn("gone")
	assert.False(t, ok)
}

func TestSlowConnectionIsClosed(t *testing.T) {
	cl := NewConn("slow", nil, "addr")

	for i := 0; i < spec.OutboxSize; i++ {
		require.True(t, cl.Push([]byte("x")))
	}

	assert.False(t, cl.Push([]byte("overflow")))
	assert.True(t, cl.Closed())
}

func TestShutdown(t *testing.T) {
	h, _, _ := testHub(t)
	a := attach(t, h, "a")

	h.Shutdown()

	select {
	case <-h.Done():
	default:
		t.Fatal("hub not done")
	}
	assert.True(t, a.Closed())
}

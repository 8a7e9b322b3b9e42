package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

type fakeModule struct {
	name    string
	rec     *recorder
	initErr error
	quit    chan struct{}
}

func newFake(name string, rec *recorder) *fakeModule {
	return &fakeModule{name: name, rec: rec, quit: make(chan struct{})}
}

func (m *fakeModule) OnInit() error {
	m.rec.add("init " + m.name)
	return m.initErr
}

func (m *fakeModule) Run() {
	m.rec.add("run " + m.name)
	<-m.quit
}

func (m *fakeModule) Destroy() {
	m.rec.add("destroy " + m.name)
	close(m.quit)
}

func (m *fakeModule) Name() string { return m.name }

func TestRunAndStopOrder(t *testing.T) {
	rec := &recorder{}
	a := NewApp()
	done := make(chan error, 1)
	go func() { done <- a.Run(newFake("a", rec), newFake("b", rec)) }()

	require.Eventually(t, func() bool { return a.GetState() == AppStateRun }, time.Second, time.Millisecond)
	a.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("app did not stop")
	}

	ev := rec.events()
	assert.Equal(t, []string{"init a", "init b"}, ev[:2])
	assert.Equal(t, []string{"destroy b", "destroy a"}, ev[len(ev)-2:])
	assert.EqualValues(t, AppStateNone, a.GetState())
}

func TestInitFailureDestroysInited(t *testing.T) {
	rec := &recorder{}
	bad := newFake("bad", rec)
	bad.initErr = errors.New("no")
	a := NewApp()
	err := a.Run(newFake("a", rec), bad, newFake("c", rec))
	require.Error(t, err)
	assert.Equal(t, []string{"init a", "init bad", "destroy a"}, rec.events())
	assert.EqualValues(t, AppStateNone, a.GetState())
}

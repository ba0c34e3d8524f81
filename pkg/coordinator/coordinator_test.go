// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package coordinator

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/taimurislamkhan/ushs-link/pkg/api/models"
	"github.com/taimurislamkhan/ushs-link/pkg/link"
	"github.com/taimurislamkhan/ushs-link/pkg/store"
	"github.com/taimurislamkhan/ushs-link/pkg/wire"
)

type memPort struct {
	reads     chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	mu     sync.Mutex
	writes [][]byte
}

func newMemPort() *memPort {
	return &memPort{
		reads:  make(chan []byte, 32),
		closed: make(chan struct{}),
	}
}

func (p *memPort) Read(b []byte) (int, error) {
	select {
	case data := <-p.reads:
		return copy(b, data), nil
	case <-p.closed:
		return 0, context.Canceled
	}
}

func (p *memPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	p.writes = append(p.writes, cp)
	return len(b), nil
}

func (p *memPort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *memPort) SetReadTimeout(time.Duration) error { return nil }

func (p *memPort) written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.writes))
	for i, w := range p.writes {
		out[i] = string(w)
	}
	return out
}

func newTestCoordinator(t *testing.T, clk clockwork.Clock) (*Coordinator, *store.Store, *memPort, chan models.Notification) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "tip_states.json"))
	require.NoError(t, err)

	port := newMemPort()
	factory := func(string, *serial.Mode) (link.Port, error) { return port, nil }
	lk := link.NewManager(factory, clk)

	ns := make(chan models.Notification, 64)
	return New(st, lk, clk, ns), st, port, ns
}

func waitNotification(t *testing.T, ns <-chan models.Notification, method string) models.Notification {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-ns:
			if n.Method == method {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for notification %q", method)
		}
	}
}

func assertNoNotification(t *testing.T, ns <-chan models.Notification, method string) {
	t.Helper()
	for {
		select {
		case n := <-ns:
			if n.Method == method {
				t.Fatalf("unexpected notification %q", method)
			}
		default:
			return
		}
	}
}

func TestDispatch_CycleProgress(t *testing.T) {
	c, st, _, ns := newTestCoordinator(t, clockwork.NewFakeClock())

	c.dispatch([]byte("CP:3\n"))

	doc := st.Snapshot()
	assert.Equal(t, store.StageDone, doc.CycleProgress.Home)
	assert.Equal(t, store.StageDone, doc.CycleProgress.EncoderZero)
	assert.Equal(t, store.StageActive, doc.CycleProgress.Heat)
	assert.Equal(t, store.StageInactive, doc.CycleProgress.Cool)

	n := waitNotification(t, ns, models.NotificationCycleProgressChanged)
	assert.Equal(t, doc.CycleProgress, n.Params)
}

func TestDispatch_TipDataUpdatesLiveFields(t *testing.T) {
	c, st, _, ns := newTestCoordinator(t, clockwork.NewFakeClock())

	c.dispatch([]byte(`TD:{"tips":[{"tip_number":1,"joules":12,"distance":0.4,"heat_percentage":50}]}` + "\n"))

	doc := st.Snapshot()
	assert.Equal(t, 12.0, doc.Tips[0].Joules)
	assert.Equal(t, 50.0, doc.Tips[0].HeatPercentage)
	waitNotification(t, ns, models.NotificationTipDataChanged)
}

func TestDispatch_TipDataHomeScreen(t *testing.T) {
	c, st, _, ns := newTestCoordinator(t, clockwork.NewFakeClock())

	c.dispatch([]byte(`TD:{"home_screen":{"banner_text":"Heating","spinner_active":true,"percentage":40}}` + "\n"))

	assert.Equal(t, "Heating", st.Snapshot().HomeScreen.BannerText)
	waitNotification(t, ns, models.NotificationHomeScreenChanged)
}

func TestDispatch_InvalidTipNumberRejectsWholeFrame(t *testing.T) {
	c, st, _, ns := newTestCoordinator(t, clockwork.NewFakeClock())

	c.dispatch([]byte(`TD:{"tips":[{"tip_number":1,"joules":12},{"tip_number":9,"joules":1}]}` + "\n"))

	assert.Zero(t, st.Snapshot().Tips[0].Joules, "valid entry must not apply when the frame is rejected")
	assertNoNotification(t, ns, models.NotificationTipDataChanged)
}

func TestDispatch_UnknownTagDropped(t *testing.T) {
	c, st, _, ns := newTestCoordinator(t, clockwork.NewFakeClock())
	before := st.Snapshot()

	c.dispatch([]byte("ZZZ:{}\n"))
	c.dispatch([]byte("garbage\n"))

	assert.Equal(t, before, st.Snapshot())
	select {
	case n := <-ns:
		t.Fatalf("unexpected notification %q", n.Method)
	default:
	}
}

func TestDispatch_WorkPositionDebounce(t *testing.T) {
	c, st, _, ns := newTestCoordinator(t, clockwork.NewFakeClock())

	sp := 12.5
	require.NoError(t, st.UpdateWorkPositionTarget(&sp, nil))

	lines := []string{
		`WP:{"current_position":1.0}`,
		`WP:{"current_position":2.0}`,
		`WP:{"current_position":3.0}`,
		`WP:{"current_position":4.0}`,
		`WP:{"current_position":5.0,"tip_distances":{"1":2.5}}`,
	}
	c.dispatch([]byte(lines[0] + "\n"))
	require.NotNil(t, c.wpTimer)
	for _, l := range lines[1:] {
		c.dispatch([]byte(l + "\n"))
	}

	// nothing merged or notified until the window closes
	assert.Zero(t, st.Snapshot().WorkPosition.CurrentPosition)
	assertNoNotification(t, ns, models.NotificationWorkPositionChanged)

	c.flushWorkPosition()

	doc := st.Snapshot()
	assert.Equal(t, 5.0, doc.WorkPosition.CurrentPosition, "last payload wins")
	assert.Equal(t, 2.5, doc.WorkPosition.TipDistances[1])
	assert.Equal(t, 12.5, doc.WorkPosition.Setpoint, "absent setpoint is retained")

	waitNotification(t, ns, models.NotificationWorkPositionChanged)
	assertNoNotification(t, ns, models.NotificationWorkPositionChanged)

	c.flushWorkPosition()
	assertNoNotification(t, ns, models.NotificationWorkPositionChanged)
}

func TestDispatch_WorkPositionExpiredTickDoesNotShortenWindow(t *testing.T) {
	clk := clockwork.NewFakeClock()
	c, _, _, _ := newTestCoordinator(t, clk)

	c.dispatch([]byte(`WP:{"current_position":1.0}` + "\n"))
	clk.Advance(debounceWindow) // first window expires with its tick unread

	c.dispatch([]byte(`WP:{"current_position":2.0}` + "\n"))
	select {
	case <-c.wpTimer.Chan():
		t.Fatal("new frame must restart the window, not inherit the expired tick")
	default:
	}

	clk.Advance(debounceWindow)
	select {
	case <-c.wpTimer.Chan():
	default:
		t.Fatal("restarted window did not expire")
	}
}

func TestRun_DebounceCollapsesBurst(t *testing.T) {
	c, st, port, ns := newTestCoordinator(t, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.NoError(t, c.Connect("/tmp/ttyV0", 0))
	waitNotification(t, ns, models.NotificationLinkConnected)

	for i := 1; i <= 5; i++ {
		port.reads <- []byte(`WP:{"current_position":` + string(rune('0'+i)) + `.0}` + "\n")
	}

	waitNotification(t, ns, models.NotificationWorkPositionChanged)
	assert.Equal(t, 5.0, st.Snapshot().WorkPosition.CurrentPosition)

	time.Sleep(250 * time.Millisecond)
	assertNoNotification(t, ns, models.NotificationWorkPositionChanged)
}

func TestRun_WakeupAnswersWithSettings(t *testing.T) {
	c, st, port, ns := newTestCoordinator(t, clockwork.NewRealClock())

	sp := 7.5
	require.NoError(t, st.UpdateWorkPositionTarget(&sp, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.NoError(t, c.Connect("/tmp/ttyV0", 0))
	waitNotification(t, ns, models.NotificationLinkConnected)

	port.reads <- []byte("WAKEUP:\n")

	require.Eventually(t, func() bool {
		return len(port.written()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	frame, err := wire.Decode([]byte(port.written()[0]))
	require.NoError(t, err)
	assert.Equal(t, wire.TagSettings, frame.Tag)

	var got wire.Settings
	require.NoError(t, frame.Object(&got))
	assert.Equal(t, 7.5, got.WorkPosition.Setpoint)
	assert.Len(t, got.Tips, wire.TipCount)
}

func TestUpdateTips_PushesToController(t *testing.T) {
	c, _, port, ns := newTestCoordinator(t, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.NoError(t, c.Connect("/tmp/ttyV0", 0))
	waitNotification(t, ns, models.NotificationLinkConnected)

	require.NoError(t, c.UpdateTips([]wire.TipSetting{
		{TipNumber: 3, Active: true, EnergySetpoint: 2.5},
	}))

	waitNotification(t, ns, models.NotificationTipDataChanged)
	require.Eventually(t, func() bool {
		return len(port.written()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, strings.HasPrefix(port.written()[0], "TIPS:"))
}

func TestUpdateConfiguration_UnknownKeyRejected(t *testing.T) {
	c, st, _, _ := newTestCoordinator(t, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	err := c.UpdateConfiguration(map[string]float64{"bogus": 1})
	require.Error(t, err)
	assert.Zero(t, st.Snapshot().Configuration.WeldTime)
}

func TestUpdateWorkPosition_ValidatesSpeedMode(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	bad := "turbo"
	err := c.UpdateWorkPosition(nil, &bad)
	require.ErrorIs(t, err, wire.ErrBadSpeedMode)
}

func TestJog_FailsWhileDisconnected(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t, clockwork.NewRealClock())

	err := c.Jog("up", true)
	require.ErrorIs(t, err, link.ErrNotOpen)

	err = c.Jog("sideways", true)
	require.ErrorIs(t, err, wire.ErrBadButton)
}

func TestSnapshot(t *testing.T) {
	c, st, _, _ := newTestCoordinator(t, clockwork.NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, st.Snapshot(), c.Snapshot())
}

package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sfxd/pkg/config"
	"sfxd/pkg/overlay"
	"sfxd/pkg/prompt"
	"sfxd/pkg/resolver"
	"sfxd/pkg/sfx"
)

type call struct {
	method string
	args   []any
}

// fakeAutomation records every OBS call and lets tests script failures.
type fakeAutomation struct {
	mu        sync.Mutex
	calls     []call
	connected bool

	failConnect   bool
	sceneItems    map[string]int
	enableErr     error
	inputErrs     map[string]error
	currentScene  string
	connectsCount int
}

func newFakeAutomation() *fakeAutomation {
	return &fakeAutomation{
		currentScene: "Main",
		sceneItems:   map[string]int{"SFX": 42},
		inputErrs:    map[string]error{},
	}
}

func (f *fakeAutomation) record(method string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, args: args})
}

func (f *fakeAutomation) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.method
	}
	return out
}

func (f *fakeAutomation) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectsCount++
	if f.failConnect {
		return assert.AnError
	}
	f.connected = true
	return nil
}

func (f *fakeAutomation) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeAutomation) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeAutomation) CurrentProgramScene(ctx context.Context) (string, error) {
	f.record("CurrentProgramScene")
	return f.currentScene, nil
}

func (f *fakeAutomation) SetInputSettings(ctx context.Context, input string, settings map[string]any) error {
	f.record("SetInputSettings", input, settings)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inputErrs[input]
}

func (f *fakeAutomation) SceneItemID(ctx context.Context, scene, source string) (int, bool, error) {
	f.record("SceneItemID", scene, source)
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.sceneItems[source]
	return id, ok, nil
}

func (f *fakeAutomation) SetSceneItemEnabled(ctx context.Context, scene string, itemID int, enabled bool) error {
	f.record("SetSceneItemEnabled", scene, itemID, enabled)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enableErr
}

func (f *fakeAutomation) RestartMedia(ctx context.Context, input string) error {
	f.record("RestartMedia", input)
	return nil
}

func testProvider() *config.Provider {
	cfg := config.DefaultConfig()
	cfg.Overlay = config.OverlayConfig{
		Enabled:                   true,
		ShowPrompt:                true,
		ShowSender:                true,
		DisplayDurationAfterAudio: config.Duration(2 * time.Second),
	}
	cfg.OBS.Enabled = true
	cfg.OBS.GuardMargin = config.Duration(20 * time.Millisecond)
	return config.NewProvider("", cfg)
}

func localResult(d time.Duration) resolver.Result {
	return resolver.Result{
		Source:   resolver.SourceLocal,
		Name:     "thunder.mp3",
		Path:     "testdata/thunder.mp3",
		Duration: d,
	}
}

func TestPlayRefusesFailedResolution(t *testing.T) {
	auto := newFakeAutomation()
	o := New(overlay.NewRegistry(), auto, testProvider())

	res := resolver.Failed(sfx.NewError(sfx.CodeQuotaExceeded, "out of credits"))
	_, err := o.Play(context.Background(), res, prompt.New("thunder"), "alice")
	require.Error(t, err)
	assert.Empty(t, auto.methods(), "a failed resolution must produce no side effects")
}

func TestPlayBroadcastsAndCyclesScene(t *testing.T) {
	auto := newFakeAutomation()
	reg := overlay.NewRegistry()
	conn := &recordingConn{}
	reg.Add(conn)
	o := New(reg, auto, testProvider())

	out, err := o.Play(context.Background(), localResult(30*time.Millisecond), prompt.New("Thunder"), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, out.OverlayClients)
	assert.True(t, out.SceneShown)

	methods := auto.methods()
	assert.Contains(t, methods, "SetSceneItemEnabled")
	assert.Contains(t, methods, "RestartMedia")

	// The deactivation fires after duration + guard margin without Play
	// ever having blocked on it.
	assert.Eventually(t, func() bool {
		for _, c := range auto.snapshot() {
			if c.method == "SetSceneItemEnabled" && c.args[2] == false {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, string(conn.last()), `"play_sfx"`)
	assert.Contains(t, string(conn.last()), "Thunder")
}

func TestPlayMissingGroupStillPlays(t *testing.T) {
	auto := newFakeAutomation()
	auto.sceneItems = map[string]int{}
	o := New(overlay.NewRegistry(), auto, testProvider())

	out, err := o.Play(context.Background(), localResult(time.Second), prompt.New("thunder"), "")
	require.NoError(t, err, "scene automation failure must not fail the play")
	assert.False(t, out.SceneShown)
	assert.NotContains(t, auto.methods(), "SetSceneItemEnabled")
}

func TestPlayTextLabelFailureIsBestEffort(t *testing.T) {
	auto := newFakeAutomation()
	auto.inputErrs["SFX Prompt Text"] = assert.AnError
	o := New(overlay.NewRegistry(), auto, testProvider())

	out, err := o.Play(context.Background(), localResult(time.Second), prompt.New("thunder"), "bob")
	require.NoError(t, err)
	assert.True(t, out.SceneShown, "a broken text source must not block the sound")
}

func TestPlayObsDisabled(t *testing.T) {
	auto := newFakeAutomation()
	prov := testProvider()
	prov.Current().OBS.Enabled = false
	o := New(overlay.NewRegistry(), auto, prov)

	out, err := o.Play(context.Background(), localResult(time.Second), prompt.New("thunder"), "")
	require.NoError(t, err)
	assert.False(t, out.SceneShown)
	assert.Empty(t, auto.methods())
}

func TestRetriggerReplacesPendingHide(t *testing.T) {
	auto := newFakeAutomation()
	o := New(overlay.NewRegistry(), auto, testProvider())
	defer o.Close()

	_, err := o.Play(context.Background(), localResult(60*time.Millisecond), prompt.New("rain"), "")
	require.NoError(t, err)
	_, err = o.Play(context.Background(), localResult(60*time.Millisecond), prompt.New("rain"), "")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		hides := 0
		for _, c := range auto.snapshot() {
			if c.method == "SetSceneItemEnabled" && c.args[2] == false {
				hides++
			}
		}
		return hides == 1
	}, time.Second, 10*time.Millisecond)

	// Give a second hide a chance to fire; it must not.
	time.Sleep(150 * time.Millisecond)
	hides := 0
	for _, c := range auto.snapshot() {
		if c.method == "SetSceneItemEnabled" && c.args[2] == false {
			hides++
		}
	}
	assert.Equal(t, 1, hides, "retrigger must replace the pending hide, not stack one")
}

func (f *fakeAutomation) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

// recordingConn captures broadcast frames for assertions.
type recordingConn struct {
	mu   sync.Mutex
	data [][]byte
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = append(c.data, data)
	return nil
}

func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }
func (c *recordingConn) Close() error                     { return nil }

func (c *recordingConn) last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.data) == 0 {
		return nil
	}
	return c.data[len(c.data)-1]
}

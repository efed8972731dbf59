package workbench

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mmstudio/internal/actions"
	"mmstudio/internal/config"
	"mmstudio/internal/logging"
)

type fakeContainer struct {
	key     actions.WidgetAction
	visible bool
	raised  int
	onClose func()
}

func (c *fakeContainer) SetVisible(visible bool) { c.visible = visible }
func (c *fakeContainer) Visible() bool           { return c.visible }
func (c *fakeContainer) Raise()                  { c.raised++ }
func (c *fakeContainer) OnCloseIntercept(fn func()) {
	c.onClose = fn
}

type fakeHost struct {
	placed     []actions.WidgetAction
	containers map[actions.WidgetAction]*fakeContainer

	geometry []byte
	state    []byte

	restoredGeometry [][]byte
	restoredState    [][]byte
	// widgets realized at the time of each RestoreState call
	widgetsAtRestore []int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		containers: map[actions.WidgetAction]*fakeContainer{},
		geometry:   []byte("geom"),
		state:      []byte("state"),
	}
}

func (h *fakeHost) Place(key actions.WidgetAction, title string, w Widget, p Placement) Container {
	h.placed = append(h.placed, key)
	c := &fakeContainer{key: key, visible: true}
	h.containers[key] = c
	return c
}

func (h *fakeHost) SaveGeometry() []byte { return h.geometry }
func (h *fakeHost) SaveState() []byte    { return h.state }

func (h *fakeHost) RestoreGeometry(data []byte) error {
	h.restoredGeometry = append(h.restoredGeometry, data)
	return nil
}

func (h *fakeHost) RestoreState(data []byte) error {
	h.restoredState = append(h.restoredState, data)
	h.widgetsAtRestore = append(h.widgetsAtRestore, len(h.placed))
	return nil
}

type stubWidget struct {
	key  actions.WidgetAction
	text string
}

func newTestWorkbench(t *testing.T) (*Workbench, *fakeHost, map[actions.WidgetAction]int) {
	t.Helper()
	host := newFakeHost()
	built := map[actions.WidgetAction]int{}
	factories := map[actions.WidgetAction]WidgetFactory{}
	for _, key := range actions.WidgetActions() {
		key := key
		factories[key] = func() (Widget, error) {
			built[key]++
			return &stubWidget{key: key}, nil
		}
	}
	logger := logging.New(false)
	logger.SetTerminalOutputEnabled(false)
	return New(host, logger, factories), host, built
}

func TestActionIdentityStable(t *testing.T) {
	wb, _, _ := newTestWorkbench(t)

	first, err := wb.Action(actions.Console)
	if err != nil {
		t.Fatal(err)
	}
	second, err := wb.Action(actions.Console)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("repeated Action calls returned different commands")
	}

	if _, err := wb.Action(actions.WidgetAction("bogus")); err == nil {
		t.Error("expected error for undeclared key")
	}
}

func TestLookupActionDoesNotCreate(t *testing.T) {
	wb, _, _ := newTestWorkbench(t)

	if _, err := wb.LookupAction(actions.Console); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := wb.Action(actions.Console); err != nil {
		t.Fatal(err)
	}
	if _, err := wb.LookupAction(actions.Console); err != nil {
		t.Errorf("lookup after create: %v", err)
	}
}

func TestWidgetSingletonAndPlacedBeforeReturn(t *testing.T) {
	wb, host, built := newTestWorkbench(t)

	first, err := wb.Widget(actions.CRISP)
	if err != nil {
		t.Fatal(err)
	}
	if len(host.placed) != 1 || host.placed[0] != actions.CRISP {
		t.Errorf("widget not placed in host: %v", host.placed)
	}

	second, err := wb.Widget(actions.CRISP)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("repeated Widget calls returned different instances")
	}
	if built[actions.CRISP] != 1 {
		t.Errorf("factory invoked %d times, want 1", built[actions.CRISP])
	}

	cmd, err := wb.LookupAction(actions.CRISP)
	if err != nil {
		t.Fatal(err)
	}
	if !cmd.Checked() {
		t.Error("creating a widget should check its command")
	}
}

func TestToggleHidesButDoesNotDestroy(t *testing.T) {
	wb, host, built := newTestWorkbench(t)

	cmd, err := wb.Action(actions.Console)
	if err != nil {
		t.Fatal(err)
	}
	cmd.Trigger(true)
	widget, err := wb.LookupWidget(actions.Console)
	if err != nil {
		t.Fatalf("toggle on did not realize the widget: %v", err)
	}
	container := host.containers[actions.Console]
	if !container.visible || container.raised != 1 {
		t.Errorf("visible=%v raised=%d after toggle on", container.visible, container.raised)
	}

	cmd.Trigger(false)
	if container.visible {
		t.Error("toggle off should hide the container")
	}

	cmd.Trigger(true)
	again, err := wb.LookupWidget(actions.Console)
	if err != nil {
		t.Fatal(err)
	}
	if again != widget {
		t.Error("toggle back on returned a different widget instance")
	}
	if built[actions.Console] != 1 {
		t.Errorf("factory invoked %d times across hide/show, want 1", built[actions.Console])
	}
}

func TestCloseGestureHidesAndUnchecks(t *testing.T) {
	wb, host, _ := newTestWorkbench(t)

	cmd, err := wb.Action(actions.MDA)
	if err != nil {
		t.Fatal(err)
	}
	cmd.Trigger(true)

	container := host.containers[actions.MDA]
	if container.onClose == nil {
		t.Fatal("close interception not wired")
	}
	container.onClose()

	if container.visible {
		t.Error("close gesture should hide the container")
	}
	if cmd.Checked() {
		t.Error("close gesture should uncheck the command")
	}
	if _, err := wb.LookupWidget(actions.MDA); err != nil {
		t.Error("close gesture must not destroy the widget")
	}
}

func TestLayoutRoundTrip(t *testing.T) {
	wb, _, _ := newTestWorkbench(t)

	for _, key := range []actions.WidgetAction{actions.Console, actions.CRISP} {
		cmd, err := wb.Action(key)
		if err != nil {
			t.Fatal(err)
		}
		cmd.Trigger(true)
	}
	// CRISP is open but hidden widgets must not be recorded.
	cmdStage, err := wb.Action(actions.StageControl)
	if err != nil {
		t.Fatal(err)
	}
	cmdStage.Trigger(true)
	cmdStage.Trigger(false)

	var settings config.StudioSettings
	wb.SnapshotLayout(&settings)

	want := []string{string(actions.Console), string(actions.CRISP)}
	if diff := cmp.Diff(want, settings.InitialWidgets); diff != "" {
		t.Errorf("open widgets mismatch (-want +got):\n%s", diff)
	}
	if string(settings.WindowGeometry) != "geom" || string(settings.WindowState) != "state" {
		t.Errorf("blobs not captured: %q %q", settings.WindowGeometry, settings.WindowState)
	}

	// Restore into a fresh workbench.
	wb2, host2, built2 := newTestWorkbench(t)
	if err := wb2.RestoreLayout(&settings); err != nil {
		t.Fatal(err)
	}
	for _, key := range []actions.WidgetAction{actions.Console, actions.CRISP} {
		if built2[key] != 1 {
			t.Errorf("%s: factory invoked %d times during restore", key, built2[key])
		}
		cmd, err := wb2.LookupAction(key)
		if err != nil {
			t.Fatal(err)
		}
		if !cmd.Checked() {
			t.Errorf("%s: command not re-checked after restore", key)
		}
	}
	if built2[actions.StageControl] != 0 {
		t.Error("hidden widget restored")
	}

	// The state blob must be replayed only after all widgets exist.
	if len(host2.restoredState) != 1 || host2.widgetsAtRestore[0] != 2 {
		t.Errorf("state replay order wrong: %v widgets at restore", host2.widgetsAtRestore)
	}
	if len(host2.restoredGeometry) != 1 {
		t.Errorf("geometry restored %d times", len(host2.restoredGeometry))
	}
}

func TestRestoreEmptyOpenSetSkipsStateReplay(t *testing.T) {
	wb, host, _ := newTestWorkbench(t)

	settings := config.StudioSettings{
		WindowGeometry: []byte("geom"),
		WindowState:    []byte("stale-state"),
	}
	if err := wb.RestoreLayout(&settings); err != nil {
		t.Fatal(err)
	}
	if len(host.restoredState) != 0 {
		t.Error("state blob replayed with empty open set")
	}
	if len(host.restoredGeometry) != 1 {
		t.Error("geometry should still be restored")
	}
}

func TestRestoreIgnoresUnknownKeys(t *testing.T) {
	wb, _, built := newTestWorkbench(t)

	settings := config.StudioSettings{
		InitialWidgets: []string{"No Such Widget", string(actions.Console)},
	}
	if err := wb.RestoreLayout(&settings); err != nil {
		t.Fatal(err)
	}
	if built[actions.Console] != 1 {
		t.Error("valid key not restored alongside unknown key")
	}
}

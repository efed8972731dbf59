package workbench

import (
	"errors"
	"fmt"

	"mmstudio/internal/actions"
	"mmstudio/internal/logging"
)

var ErrNotFound = errors.New("not found")

// Workbench owns the per-key caches of commands, widgets, and containers.
// All methods are UI-thread-only by contract, matching the toolkit's own
// threading rules, so there is no internal locking.
type Workbench struct {
	host      DockHost
	logger    *logging.Logger
	factories map[actions.WidgetAction]WidgetFactory

	commands   map[actions.ActionKey]*actions.Command
	widgets    map[actions.WidgetAction]Widget
	containers map[actions.WidgetAction]Container
}

func New(host DockHost, logger *logging.Logger, factories map[actions.WidgetAction]WidgetFactory) *Workbench {
	if logger == nil {
		panic("workbench.New: logger must not be nil")
	}
	return &Workbench{
		host:       host,
		logger:     logger,
		factories:  factories,
		commands:   map[actions.ActionKey]*actions.Command{},
		widgets:    map[actions.WidgetAction]Widget{},
		containers: map[actions.WidgetAction]Container{},
	}
}

// Action returns the Command for key, creating it on first reference.
// Repeated calls return the identical instance. Widget-action commands get
// the visibility toggle handler wired exactly once, at creation.
func (wb *Workbench) Action(key actions.ActionKey) (*actions.Command, error) {
	if cmd, ok := wb.commands[key]; ok {
		return cmd, nil
	}
	info, err := actions.InfoForKey(key)
	if err != nil {
		return nil, err
	}
	cmd := actions.NewCommand(info)
	if widgetKey, ok := key.(actions.WidgetAction); ok {
		cmd.OnTriggered(func(checked bool) {
			wb.setWidgetVisible(widgetKey, checked)
		})
	}
	wb.commands[key] = cmd
	return cmd, nil
}

// LookupAction returns the Command for key only if it already exists.
func (wb *Workbench) LookupAction(key actions.ActionKey) (*actions.Command, error) {
	cmd, ok := wb.commands[key]
	if !ok {
		return nil, fmt.Errorf("command %q: %w", key, ErrNotFound)
	}
	return cmd, nil
}

// Widget returns the singleton widget for key, creating and placing it on
// first reference. The widget is placed in the dock host before it is
// returned, so callers never observe an unplaced widget, and the key's
// command is checked to reflect that the widget is now open.
func (wb *Workbench) Widget(key actions.WidgetAction) (Widget, error) {
	if w, ok := wb.widgets[key]; ok {
		return w, nil
	}
	factory, ok := wb.factories[key]
	if !ok {
		return nil, fmt.Errorf("no widget factory for key %q", key)
	}
	w, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create widget %q: %w", key, err)
	}

	info, err := actions.InfoForKey(key)
	if err != nil {
		return nil, err
	}
	container := wb.host.Place(key, info.Text, w, PlacementFor(key))
	container.OnCloseIntercept(func() {
		wb.hideOnClose(key)
	})
	wb.widgets[key] = w
	wb.containers[key] = container

	cmd, err := wb.Action(key)
	if err != nil {
		return nil, err
	}
	cmd.SetChecked(true)
	wb.logger.Debug("widget created",
		logging.Field("key", key.String()),
		logging.Field("placement", PlacementFor(key).String()),
	)
	return w, nil
}

// LookupWidget returns the widget for key only if it has been realized.
func (wb *Workbench) LookupWidget(key actions.WidgetAction) (Widget, error) {
	w, ok := wb.widgets[key]
	if !ok {
		return nil, fmt.Errorf("widget %q: %w", key, ErrNotFound)
	}
	return w, nil
}

// Container returns the dock container for a realized widget key.
func (wb *Workbench) Container(key actions.WidgetAction) (Container, error) {
	c, ok := wb.containers[key]
	if !ok {
		return nil, fmt.Errorf("container %q: %w", key, ErrNotFound)
	}
	return c, nil
}

// setWidgetVisible is the command toggle handler. Showing a key that has
// never been realized creates the widget first.
func (wb *Workbench) setWidgetVisible(key actions.WidgetAction, visible bool) {
	if !visible {
		if c, ok := wb.containers[key]; ok {
			c.SetVisible(false)
		}
		return
	}
	if _, err := wb.Widget(key); err != nil {
		wb.logger.Error("failed to open widget",
			logging.Field("key", key.String()),
			logging.Field("error", err),
		)
		return
	}
	c := wb.containers[key]
	c.SetVisible(true)
	c.Raise()
}

// hideOnClose converts a user close gesture into hide + uncheck. The
// widget instance and container survive until application shutdown.
func (wb *Workbench) hideOnClose(key actions.WidgetAction) {
	if c, ok := wb.containers[key]; ok {
		c.SetVisible(false)
	}
	if cmd, ok := wb.commands[key]; ok {
		cmd.SetChecked(false)
	}
}

// Shutdown drops every cached command, widget, and container. Only the
// application exit path calls this; user gestures never destroy widgets.
func (wb *Workbench) Shutdown() {
	wb.commands = map[actions.ActionKey]*actions.Command{}
	wb.widgets = map[actions.WidgetAction]Widget{}
	wb.containers = map[actions.WidgetAction]Container{}
}

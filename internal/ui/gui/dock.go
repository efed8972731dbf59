//go:build !headless

package gui

import (
	"encoding/json"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"mmstudio/internal/actions"
	"mmstudio/internal/logging"
	"mmstudio/internal/workbench"
)

// dockHost maps the workbench's abstract placements onto Fyne: three
// closable tab areas around the central preview, a pinned sidebar column,
// and separate windows for floating widgets.
type dockHost struct {
	app    fyne.App
	win    fyne.Window
	logger *logging.Logger

	left   *container.DocTabs
	right  *container.DocTabs
	bottom *container.DocTabs

	sidebar *fyne.Container

	docked   map[actions.WidgetAction]*dockContainer
	floating map[actions.WidgetAction]*floatContainer
}

func newDockHost(app fyne.App, win fyne.Window, logger *logging.Logger) *dockHost {
	h := &dockHost{
		app:      app,
		win:      win,
		logger:   logger,
		left:     container.NewDocTabs(),
		right:    container.NewDocTabs(),
		bottom:   container.NewDocTabs(),
		sidebar:  container.NewVBox(),
		docked:   map[actions.WidgetAction]*dockContainer{},
		floating: map[actions.WidgetAction]*floatContainer{},
	}
	for _, tabs := range []*container.DocTabs{h.left, h.right, h.bottom} {
		tabs.CloseIntercept = h.interceptTabClose
	}
	return h
}

func (h *dockHost) interceptTabClose(item *container.TabItem) {
	for _, c := range h.docked {
		if c.item == item {
			if c.closeFn != nil {
				c.closeFn()
			}
			return
		}
	}
}

func (h *dockHost) tabsFor(p workbench.Placement) *container.DocTabs {
	switch p {
	case workbench.DockLeft:
		return h.left
	case workbench.DockRight:
		return h.right
	case workbench.DockBottom:
		return h.bottom
	}
	return h.right
}

func (h *dockHost) Place(key actions.WidgetAction, title string, w workbench.Widget, p workbench.Placement) workbench.Container {
	content, ok := w.(fyne.CanvasObject)
	if !ok {
		h.logger.Error("widget is not a canvas object", logging.Field("key", key.String()))
		content = container.NewWithoutLayout()
	}

	if p == workbench.Floating {
		win := h.app.NewWindow(title)
		win.SetContent(content)
		win.Resize(fyne.NewSize(420, 320))
		c := &floatContainer{win: win}
		win.SetCloseIntercept(func() {
			if c.closeFn != nil {
				c.closeFn()
			}
		})
		win.Show()
		c.visible = true
		h.floating[key] = c
		return c
	}

	if p == workbench.SideBarLeft {
		item := container.NewTabItem(title, content)
		c := &dockContainer{host: h, tabs: nil, item: item, sidebar: true, obj: content}
		h.sidebar.Add(content)
		c.visible = true
		h.docked[key] = c
		h.sidebar.Refresh()
		return c
	}

	tabs := h.tabsFor(p)
	item := container.NewTabItem(title, content)
	c := &dockContainer{host: h, tabs: tabs, item: item}
	tabs.Append(item)
	tabs.Select(item)
	c.visible = true
	h.docked[key] = c
	return c
}

// dockContainer is one widget inside a tab area or the sidebar column.
type dockContainer struct {
	host    *dockHost
	tabs    *container.DocTabs
	item    *container.TabItem
	obj     fyne.CanvasObject
	sidebar bool
	visible bool
	closeFn func()
}

func (c *dockContainer) SetVisible(visible bool) {
	if visible == c.visible {
		return
	}
	c.visible = visible
	if c.sidebar {
		if visible {
			c.obj.Show()
		} else {
			c.obj.Hide()
		}
		c.host.sidebar.Refresh()
		return
	}
	if visible {
		c.tabs.Append(c.item)
		c.tabs.Select(c.item)
	} else {
		c.tabs.Remove(c.item)
	}
}

func (c *dockContainer) Visible() bool { return c.visible }

func (c *dockContainer) Raise() {
	if c.sidebar || !c.visible {
		return
	}
	c.tabs.Select(c.item)
}

func (c *dockContainer) OnCloseIntercept(fn func()) { c.closeFn = fn }

// floatContainer is a widget hosted in its own window.
type floatContainer struct {
	win     fyne.Window
	visible bool
	closeFn func()
}

func (c *floatContainer) SetVisible(visible bool) {
	if visible == c.visible {
		return
	}
	c.visible = visible
	if visible {
		c.win.Show()
	} else {
		c.win.Hide()
	}
}

func (c *floatContainer) Visible() bool { return c.visible }

func (c *floatContainer) Raise() {
	if c.visible {
		c.win.RequestFocus()
	}
}

func (c *floatContainer) OnCloseIntercept(fn func()) { c.closeFn = fn }

type windowGeometry struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

type dockState struct {
	// Selected holds the selected tab title per dock area.
	Selected map[string]string `json:"selected"`
}

func (h *dockHost) SaveGeometry() []byte {
	size := h.win.Canvas().Size()
	raw, err := json.Marshal(windowGeometry{Width: size.Width, Height: size.Height})
	if err != nil {
		return nil
	}
	return raw
}

func (h *dockHost) RestoreGeometry(data []byte) error {
	var g windowGeometry
	if err := json.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("failed to parse window geometry: %w", err)
	}
	if g.Width < 400 || g.Height < 300 {
		return fmt.Errorf("implausible window geometry %gx%g", g.Width, g.Height)
	}
	h.win.Resize(fyne.NewSize(g.Width, g.Height))
	return nil
}

func (h *dockHost) SaveState() []byte {
	state := dockState{Selected: map[string]string{}}
	for name, tabs := range map[string]*container.DocTabs{
		"left": h.left, "right": h.right, "bottom": h.bottom,
	} {
		if item := tabs.Selected(); item != nil {
			state.Selected[name] = item.Text
		}
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil
	}
	return raw
}

func (h *dockHost) RestoreState(data []byte) error {
	var state dockState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse dock state: %w", err)
	}
	for name, tabs := range map[string]*container.DocTabs{
		"left": h.left, "right": h.right, "bottom": h.bottom,
	} {
		want, ok := state.Selected[name]
		if !ok {
			continue
		}
		for _, item := range tabs.Items {
			if item.Text == want {
				tabs.Select(item)
				break
			}
		}
	}
	return nil
}

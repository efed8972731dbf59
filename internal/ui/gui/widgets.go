//go:build !headless

package gui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mmstudio/internal/actions"
	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/runtime"
	"mmstudio/internal/workbench"
)

func (c *controller) widgetFactories() map[actions.WidgetAction]workbench.WidgetFactory {
	return map[actions.WidgetAction]workbench.WidgetFactory{
		actions.About:        func() (workbench.Widget, error) { return c.buildAboutPanel(), nil },
		actions.PropBrowser:  func() (workbench.Widget, error) { return c.buildPropBrowser(), nil },
		actions.MDA:          func() (workbench.Widget, error) { return c.buildMDAPanel(), nil },
		actions.StageControl: func() (workbench.Widget, error) { return c.buildStagePanel(), nil },
		actions.CameraROI:    func() (workbench.Widget, error) { return c.buildCameraROIPanel(), nil },
		actions.ConfigGroups: func() (workbench.Widget, error) { return c.buildConfigGroupsPanel(), nil },
		actions.Console:      func() (workbench.Widget, error) { return c.buildConsolePanel(), nil },
		actions.ExceptionLog: func() (workbench.Widget, error) { return c.buildExceptionPanel(), nil },
		actions.CRISP:        func() (workbench.Widget, error) { return c.buildCRISPPanel(), nil },
		actions.IllumControl: func() (workbench.Widget, error) { return c.buildIlluminationPanel(), nil },
	}
}

func (c *controller) buildAboutPanel() fyne.CanvasObject {
	title := widget.NewLabelWithStyle("MMStudio", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	version := widget.NewLabelWithStyle("Version "+c.version, fyne.TextAlignCenter, fyne.TextStyle{})
	blurb := widget.NewLabel("Microscope control and acquisition front-end\nfor Micro-Manager device adapters.")
	blurb.Alignment = fyne.TextAlignCenter
	return container.NewVBox(title, version, blurb)
}

func (c *controller) buildConsolePanel() fyne.CanvasObject {
	c.console = newConsolePanel(c.logBacklog)
	return c.console.box
}

func (c *controller) buildExceptionPanel() fyne.CanvasObject {
	c.exceptions = newExceptionPanel()
	for _, event := range c.logBacklog {
		c.exceptions.append(event)
	}
	return c.exceptions.box
}

// buildPropBrowser renders every loaded device as an accordion section of
// editable property rows. The panel rebuilds itself whenever a new system
// configuration lands.
func (c *controller) buildPropBrowser() fyne.CanvasObject {
	accordion := widget.NewAccordion()
	rebuild := func() {
		accordion.Items = nil
		for _, device := range c.studio.Core.LoadedDevices() {
			names, err := c.studio.Core.DevicePropertyNames(device)
			if err != nil {
				continue
			}
			form := container.NewVBox()
			for _, name := range names {
				prop := name
				dev := device
				value, _ := c.studio.Core.GetProperty(dev, prop)
				entry := widget.NewEntry()
				entry.SetText(value)
				entry.OnSubmitted = func(v string) {
					if err := c.studio.Core.SetProperty(dev, prop, v); err != nil {
						c.logger.Warn("property update rejected",
							logging.Field("device", dev),
							logging.Field("property", prop),
							logging.Field("error", err),
						)
					}
				}
				form.Add(container.NewBorder(nil, nil, widget.NewLabel(prop), nil, entry))
			}
			if len(form.Objects) == 0 {
				form.Add(widget.NewLabel("No properties"))
			}
			accordion.Append(widget.NewAccordionItem(device, form))
		}
		accordion.Refresh()
	}
	rebuild()
	c.onConfigReload = append(c.onConfigReload, rebuild)
	return container.NewVScroll(accordion)
}

func firstDeviceOfType(core mmcore.Core, t mmcore.DeviceType) string {
	devices := core.LoadedDevicesOfType(t)
	if len(devices) == 0 {
		return ""
	}
	return devices[0]
}

func (c *controller) buildStagePanel() fyne.CanvasObject {
	position := widget.NewLabel("")
	step := widget.NewEntry()
	step.SetText("10")

	stepSize := func() float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(step.Text), 64)
		if err != nil || v <= 0 {
			return 10
		}
		return v
	}
	refresh := func() {
		xy := firstDeviceOfType(c.studio.Core, mmcore.XYStageDevice)
		z := firstDeviceOfType(c.studio.Core, mmcore.StageDevice)
		text := ""
		if xy != "" {
			if x, y, err := c.studio.Core.XYPosition(xy); err == nil {
				text += fmt.Sprintf("XY: %.1f, %.1f", x, y)
			}
		}
		if z != "" {
			if pos, err := c.studio.Core.Position(z); err == nil {
				if text != "" {
					text += "  "
				}
				text += fmt.Sprintf("Z: %.2f", pos)
			}
		}
		if text == "" {
			text = "No stage loaded"
		}
		position.SetText(text)
	}
	moveXY := func(dx, dy float64) {
		xy := firstDeviceOfType(c.studio.Core, mmcore.XYStageDevice)
		if xy == "" {
			return
		}
		x, y, err := c.studio.Core.XYPosition(xy)
		if err != nil {
			return
		}
		if err := c.studio.Core.SetXYPosition(xy, x+dx, y+dy); err != nil {
			c.logger.Warn("XY move failed", logging.Field("error", err))
		}
		refresh()
	}
	moveZ := func(delta float64) {
		z := firstDeviceOfType(c.studio.Core, mmcore.StageDevice)
		if z == "" {
			return
		}
		if err := c.studio.Core.SetRelativePosition(z, delta); err != nil {
			c.logger.Warn("Z move failed", logging.Field("error", err))
		}
		refresh()
	}

	up := widget.NewButton("Y+", func() { moveXY(0, stepSize()) })
	down := widget.NewButton("Y-", func() { moveXY(0, -stepSize()) })
	left := widget.NewButton("X-", func() { moveXY(-stepSize(), 0) })
	right := widget.NewButton("X+", func() { moveXY(stepSize(), 0) })
	zUp := widget.NewButton("Z+", func() { moveZ(stepSize()) })
	zDown := widget.NewButton("Z-", func() { moveZ(-stepSize()) })

	pad := container.NewGridWithColumns(3,
		widget.NewLabel(""), up, widget.NewLabel(""),
		left, widget.NewLabel(""), right,
		widget.NewLabel(""), down, widget.NewLabel(""),
	)
	zCol := container.NewVBox(zUp, zDown)
	refresh()
	c.onConfigReload = append(c.onConfigReload, refresh)
	return container.NewVBox(
		container.NewHBox(pad, zCol),
		container.NewBorder(nil, nil, widget.NewLabel("Step (µm)"), nil, step),
		position,
	)
}

func (c *controller) buildCameraROIPanel() fyne.CanvasObject {
	entries := map[string]*widget.Entry{}
	form := container.NewVBox()
	for _, field := range []string{"X", "Y", "Width", "Height"} {
		entry := widget.NewEntry()
		entry.SetText("0")
		entries[field] = entry
		form.Add(container.NewBorder(nil, nil, widget.NewLabel(field), nil, entry))
	}
	status := widget.NewLabel("")
	apply := widget.NewButton("Apply ROI", func() {
		camera := firstDeviceOfType(c.studio.Core, mmcore.CameraDevice)
		if camera == "" {
			status.SetText("No camera loaded")
			return
		}
		for field, entry := range entries {
			if _, err := strconv.Atoi(strings.TrimSpace(entry.Text)); err != nil {
				status.SetText(field + " must be an integer")
				return
			}
		}
		for field, entry := range entries {
			prop := "ROI-" + field
			if err := c.studio.Core.SetProperty(camera, prop, strings.TrimSpace(entry.Text)); err != nil {
				status.SetText("Failed to set " + prop)
				return
			}
		}
		status.SetText("ROI applied")
	})
	clear := widget.NewButton("Full Frame", func() {
		for _, entry := range entries {
			entry.SetText("0")
		}
		status.SetText("")
	})
	return container.NewVBox(form, container.NewHBox(apply, clear), status)
}

// configPreset is a named snapshot of every device property, applied back
// in one shot.
type configPreset struct {
	name   string
	values map[string]map[string]string
}

func (c *controller) captureConfigPreset(name string) configPreset {
	preset := configPreset{name: name, values: map[string]map[string]string{}}
	for _, device := range c.studio.Core.LoadedDevices() {
		names, err := c.studio.Core.DevicePropertyNames(device)
		if err != nil {
			continue
		}
		props := map[string]string{}
		for _, prop := range names {
			if value, err := c.studio.Core.GetProperty(device, prop); err == nil {
				props[prop] = value
			}
		}
		if len(props) > 0 {
			preset.values[device] = props
		}
	}
	return preset
}

func (c *controller) applyConfigPreset(preset configPreset) {
	for device, props := range preset.values {
		for prop, value := range props {
			if err := c.studio.Core.SetProperty(device, prop, value); err != nil {
				c.logger.Warn("preset property rejected",
					logging.Field("device", device),
					logging.Field("property", prop),
					logging.Field("error", err),
				)
			}
		}
	}
}

func (c *controller) buildConfigGroupsPanel() fyne.CanvasObject {
	var presets []configPreset
	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("Preset name")
	status := widget.NewLabel("No presets saved")

	names := func() []string {
		out := make([]string, 0, len(presets))
		for _, p := range presets {
			out = append(out, p.name)
		}
		return out
	}
	selector := widget.NewSelect(nil, nil)
	refresh := func() {
		selector.Options = names()
		selector.Refresh()
		if len(presets) == 0 {
			status.SetText("No presets saved")
		} else {
			status.SetText(fmt.Sprintf("%d preset(s)", len(presets)))
		}
	}
	selector.OnChanged = func(name string) {
		for _, p := range presets {
			if p.name == name {
				c.applyConfigPreset(p)
				status.SetText("Applied " + name)
				return
			}
		}
	}

	save := widget.NewButton("Save Current", func() {
		name := strings.TrimSpace(nameEntry.Text)
		if name == "" {
			name = fmt.Sprintf("Preset%d", len(presets)+1)
		}
		for i, p := range presets {
			if p.name == name {
				presets[i] = c.captureConfigPreset(name)
				refresh()
				return
			}
		}
		presets = append(presets, c.captureConfigPreset(name))
		refresh()
	})
	remove := widget.NewButton("Delete", func() {
		name := selector.Selected
		for i, p := range presets {
			if p.name == name {
				presets = append(presets[:i], presets[i+1:]...)
				selector.ClearSelected()
				refresh()
				return
			}
		}
	})

	refresh()
	return container.NewVBox(
		container.NewBorder(nil, nil, nil, save, nameEntry),
		container.NewBorder(nil, nil, widget.NewLabel("Apply"), remove, selector),
		status,
	)
}

func (c *controller) buildIlluminationPanel() fyne.CanvasObject {
	box := container.NewVBox()
	rebuild := func() {
		box.RemoveAll()
		shutters := c.studio.Core.LoadedDevicesOfType(mmcore.ShutterDevice)
		if len(shutters) == 0 {
			box.Add(widget.NewLabel("No illumination devices loaded"))
			box.Refresh()
			return
		}
		for _, label := range shutters {
			device := label
			toggle := newToggleSwitch(func(open bool) {
				state := "0"
				if open {
					state = "1"
				}
				if err := c.studio.Core.SetProperty(device, "State", state); err != nil {
					c.logger.Warn("shutter toggle failed",
						logging.Field("device", device),
						logging.Field("error", err),
					)
				}
			})
			if state, err := c.studio.Core.GetProperty(device, "State"); err == nil && state == "1" {
				toggle.Checked = true
			}
			row := container.NewBorder(nil, nil, widget.NewLabel(device), toggle, nil)
			box.Add(row)

			if value, err := c.studio.Core.GetProperty(device, "Intensity"); err == nil {
				slider := widget.NewSlider(0, 100)
				if v, err := strconv.ParseFloat(value, 64); err == nil {
					slider.Value = v
				}
				slider.OnChangeEnded = func(v float64) {
					_ = c.studio.Core.SetProperty(device, "Intensity", strconv.Itoa(int(v)))
				}
				box.Add(container.NewBorder(nil, nil, widget.NewLabel("Intensity"), nil, slider))
			}
		}
		box.Refresh()
	}
	rebuild()
	c.onConfigReload = append(c.onConfigReload, rebuild)
	return box
}

func (c *controller) buildMDAPanel() fyne.CanvasObject {
	timePoints := widget.NewEntry()
	timePoints.SetText("5")
	intervalMS := widget.NewEntry()
	intervalMS.SetText("0")
	zSlices := widget.NewEntry()
	zSlices.SetText("1")
	output := widget.NewEntry()
	output.SetPlaceHolder("memory, dataset.bolt, or a directory")
	progress := widget.NewProgressBar()
	status := widget.NewLabel("Idle")

	var runButton, cancelButton *widget.Button
	parseCount := func(entry *widget.Entry) (int, bool) {
		v, err := strconv.Atoi(strings.TrimSpace(entry.Text))
		if err != nil || v < 1 {
			return 0, false
		}
		return v, true
	}

	runButton = widget.NewButton("Run", func() {
		t, ok := parseCount(timePoints)
		if !ok {
			status.SetText("Time points must be a positive integer")
			return
		}
		z, ok := parseCount(zSlices)
		if !ok {
			status.SetText("Z slices must be a positive integer")
			return
		}
		ms, err := strconv.Atoi(strings.TrimSpace(intervalMS.Text))
		if err != nil || ms < 0 {
			status.SetText("Interval must be a non-negative integer")
			return
		}

		var axes []mda.Axis
		if t > 1 {
			axes = append(axes, mda.Axis{Label: "t", Size: t})
		}
		if z > 1 {
			axes = append(axes, mda.Axis{Label: "z", Size: z})
		}
		seq := mda.NewSequence(axes...)
		opts := runtime.AcquireOptions{
			Sequence:   seq,
			OutputPath: strings.TrimSpace(output.Text),
			Interval:   time.Duration(ms) * time.Millisecond,
		}
		startErr := c.studio.Acq.Start(opts, c.logger, runtime.StartHooks{
			OnFrame: func(done, total int) {
				fyne.Do(func() {
					progress.SetValue(float64(done) / float64(total))
					status.SetText(fmt.Sprintf("Frame %d of %d", done, total))
				})
			},
			OnExit: func(runErr error) {
				fyne.Do(func() {
					runButton.Enable()
					cancelButton.Disable()
					if runErr != nil && c.appCtx.Err() == nil {
						status.SetText("Stopped: " + runErr.Error())
						c.setStatus("Idle", statusIdleColor)
						return
					}
					status.SetText("Finished")
					c.setStatus("Idle", statusIdleColor)
				})
			},
		})
		if startErr != nil {
			status.SetText(startErr.Error())
			return
		}
		progress.SetValue(0)
		status.SetText("Acquiring")
		c.setStatus("Acquiring", statusRunningColor)
		runButton.Disable()
		cancelButton.Enable()
	})
	cancelButton = widget.NewButton("Cancel", func() {
		status.SetText("Stopping")
		c.studio.Acq.Stop()
	})
	cancelButton.Disable()

	form := container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("Time points"), nil, timePoints),
		container.NewBorder(nil, nil, widget.NewLabel("Interval (ms)"), nil, intervalMS),
		container.NewBorder(nil, nil, widget.NewLabel("Z slices"), nil, zSlices),
		container.NewBorder(nil, nil, widget.NewLabel("Save to"), nil, output),
	)
	return container.NewVBox(form, container.NewHBox(runButton, cancelButton), progress, status)
}

//go:build !headless

package gui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mmstudio/internal/crisp"
	"mmstudio/internal/logging"
	"mmstudio/internal/workers"
)

// crispPanel drives the CRISP autofocus widget: polled status readout,
// state commands, tuning profiles, and background focus-curve collection.
// When detection finds no device the body is swapped for an error notice.
type crispPanel struct {
	c *controller

	// device is written once detection finishes and read from the poll
	// timer goroutine.
	mu     sync.Mutex
	device crisp.Device

	timer *crisp.PollTimer
	body  *fyne.Container

	profiles     *crisp.Profiles
	userSettings crisp.UserSettings

	stateLabel  *widget.Label
	snrLabel    *widget.Label
	sumLabel    *widget.Label
	agcLabel    *widget.Label
	ditherLabel *widget.Label
	offsetLabel *widget.Label
	curveLabel  *widget.Label

	ledSlider    *widget.Slider
	gainEntry    *widget.Entry
	avgEntry     *widget.Entry
	rateEntry    *widget.Entry
	naEntry      *widget.Entry
	rangeEntry   *widget.Entry
	profileSel   *widget.Select
	pollToggle   *toggleSwitch
	commandsGrid *fyne.Container
}

func (c *controller) buildCRISPPanel() fyne.CanvasObject {
	p := &crispPanel{c: c}
	p.timer = crisp.NewPollTimer(p.poll, c.logger)

	p.userSettings, _ = crisp.LoadUserSettings()
	p.profiles = crisp.ProfilesFromUserSettings(p.userSettings)
	p.timer.SetInterval(time.Duration(p.userSettings.TimerIntervalMS) * time.Millisecond)

	p.stateLabel = widget.NewLabel("Detecting device...")
	p.snrLabel = widget.NewLabel("-")
	p.sumLabel = widget.NewLabel("-")
	p.agcLabel = widget.NewLabel("-")
	p.ditherLabel = widget.NewLabel("-")
	p.offsetLabel = widget.NewLabel("-")
	p.curveLabel = widget.NewLabel("")

	p.buildControls()
	p.body = container.NewStack(p.layout())

	// Detection retries with backoff, so it runs on the worker pool and
	// only touches the panel from the dispatched callbacks.
	c.studio.Pool.Submit(c.appCtx, "crisp-detect", func(ctx context.Context) (any, error) {
		detectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return c.studio.DetectCRISP(detectCtx)
	}, workers.Callbacks{
		OnResult: func(result any) {
			p.attachDevice(result.(crisp.Device))
		},
		OnError: func(err error) {
			p.showDetectFailed(err)
		},
	})

	c.crispTimer = p.timer
	return p.body
}

func (p *crispPanel) dev() crisp.Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device
}

func (p *crispPanel) attachDevice(dev crisp.Device) {
	p.mu.Lock()
	p.device = dev
	p.mu.Unlock()
	p.stateLabel.SetText(dev.State())
	p.loadFromDevice()
	if p.userSettings.PollingEnabled {
		p.pollToggle.SetChecked(true)
	}
	p.c.logger.Info("CRISP panel attached",
		logging.Field("device", dev.DeviceName()),
		logging.Field("controller", dev.ControllerType()),
	)
}

// showDetectFailed replaces the control set with an error notice. The
// panel stays open so the message is visible; reopening after loading a
// different configuration retries detection.
func (p *crispPanel) showDetectFailed(err error) {
	p.c.logger.Warn("CRISP detection failed", logging.Field("error", err))
	p.timer.Stop()
	heading := widget.NewLabelWithStyle("No CRISP device detected", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	detail := widget.NewLabel(err.Error())
	detail.Wrapping = fyne.TextWrapWord
	hint := widget.NewLabel("Load a system configuration with an ASI autofocus controller, or start with --sim-crisp to use the simulated device.")
	hint.Wrapping = fyne.TextWrapWord
	p.body.Objects = []fyne.CanvasObject{container.NewVBox(heading, detail, widget.NewSeparator(), hint)}
	p.body.Refresh()
}

// poll runs on the timer goroutine; all label updates hop to the UI
// thread.
func (p *crispPanel) poll() {
	dev := p.dev()
	if dev == nil {
		return
	}
	state := dev.State()
	snr := dev.SNR()
	sum := dev.Sum()
	agc := dev.AGC()
	dither := dev.DitherError()
	offset := dev.Offset()
	fyne.Do(func() {
		p.stateLabel.SetText(state)
		p.snrLabel.SetText(fmt.Sprintf("%.2f", snr))
		p.sumLabel.SetText(fmt.Sprintf("%.0f", sum))
		p.agcLabel.SetText(fmt.Sprintf("%.2f", agc))
		p.ditherLabel.SetText(fmt.Sprintf("%.3f", dither))
		p.offsetLabel.SetText(fmt.Sprintf("%.3f", offset))
	})
}

func (p *crispPanel) command(name string, fn func(dev crisp.Device) error) *widget.Button {
	return widget.NewButton(name, func() {
		dev := p.dev()
		if dev == nil {
			return
		}
		if err := fn(dev); err != nil {
			p.c.logger.Warn("CRISP command failed",
				logging.Field("command", name),
				logging.Field("error", err),
			)
		}
	})
}

func (p *crispPanel) buildControls() {
	p.commandsGrid = container.NewGridWithColumns(4,
		p.command("Idle", func(dev crisp.Device) error { return dev.SetStateIdle() }),
		p.command("Lock", func(dev crisp.Device) error { return dev.SetStateLock() }),
		p.command("Unlock", func(dev crisp.Device) error { return dev.Unlock() }),
		p.command("Log Cal", func(dev crisp.Device) error { return dev.SetStateLogCal(p.timer) }),
		p.command("Dither", func(dev crisp.Device) error { return dev.SetStateDither() }),
		p.command("Gain Cal", func(dev crisp.Device) error { return dev.SetStateGainCal() }),
		p.command("Reset Offset", func(dev crisp.Device) error { return dev.ResetOffset() }),
		p.command("Save", func(dev crisp.Device) error { return dev.Save() }),
	)

	p.ledSlider = widget.NewSlider(0, 100)
	p.gainEntry = widget.NewEntry()
	p.avgEntry = widget.NewEntry()
	p.rateEntry = widget.NewEntry()
	p.naEntry = widget.NewEntry()
	p.rangeEntry = widget.NewEntry()

	p.profileSel = widget.NewSelect(nil, func(string) {})
	p.profileSel.OnChanged = func(name string) {
		for i, s := range p.profiles.All() {
			if s.Name == name {
				if err := p.profiles.SetIndex(i); err != nil {
					return
				}
				p.showSettings(*p.profiles.Current())
				p.persistProfiles()
				return
			}
		}
	}

	p.pollToggle = newToggleSwitch(func(enabled bool) {
		if enabled {
			p.timer.Start()
		} else {
			p.timer.Stop()
		}
		p.userSettings.PollingEnabled = enabled
		p.persistProfiles()
	})
}

func (p *crispPanel) layout() fyne.CanvasObject {
	statusRows := container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("State"), nil, p.stateLabel),
		container.NewBorder(nil, nil, widget.NewLabel("SNR"), nil, p.snrLabel),
		container.NewBorder(nil, nil, widget.NewLabel("Sum"), nil, p.sumLabel),
		container.NewBorder(nil, nil, widget.NewLabel("AGC"), nil, p.agcLabel),
		container.NewBorder(nil, nil, widget.NewLabel("Dither Error"), nil, p.ditherLabel),
		container.NewBorder(nil, nil, widget.NewLabel("Offset"), nil, p.offsetLabel),
	)

	applyButton := widget.NewButton("Apply", p.applySettings)
	addProfile := widget.NewButton("+", func() {
		p.profiles.Add()
		p.refreshProfileOptions()
		p.persistProfiles()
	})
	removeProfile := widget.NewButton("-", func() {
		if p.profiles.Remove() {
			p.refreshProfileOptions()
			p.persistProfiles()
		}
	})

	settingsRows := container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("Profile"), container.NewHBox(addProfile, removeProfile), p.profileSel),
		container.NewBorder(nil, nil, widget.NewLabel("LED"), nil, p.ledSlider),
		container.NewBorder(nil, nil, widget.NewLabel("Gain"), nil, p.gainEntry),
		container.NewBorder(nil, nil, widget.NewLabel("Averages"), nil, p.avgEntry),
		container.NewBorder(nil, nil, widget.NewLabel("Update Rate"), nil, p.rateEntry),
		container.NewBorder(nil, nil, widget.NewLabel("Objective NA"), nil, p.naEntry),
		container.NewBorder(nil, nil, widget.NewLabel("Lock Range"), nil, p.rangeEntry),
		applyButton,
	)

	curveButton := widget.NewButton("Focus Curve", p.collectCurve)
	footer := container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("Polling"), p.pollToggle, nil),
		container.NewHBox(curveButton, p.curveLabel),
	)

	p.refreshProfileOptions()
	return container.NewVBox(statusRows, p.commandsGrid, widget.NewSeparator(), settingsRows, footer)
}

func (p *crispPanel) refreshProfileOptions() {
	options := make([]string, 0, p.profiles.Len())
	for _, s := range p.profiles.All() {
		options = append(options, s.Name)
	}
	p.profileSel.Options = options
	p.profileSel.SetSelected(p.profiles.Current().Name)
	p.profileSel.Refresh()
}

func (p *crispPanel) showSettings(s crisp.Settings) {
	p.ledSlider.Value = float64(s.LEDIntensity)
	p.ledSlider.Refresh()
	p.gainEntry.SetText(strconv.Itoa(s.Gain))
	p.avgEntry.SetText(strconv.Itoa(s.NumAverages))
	p.rateEntry.SetText(strconv.Itoa(s.UpdateRateMS))
	p.naEntry.SetText(strconv.FormatFloat(s.ObjectiveNA, 'f', -1, 64))
	p.rangeEntry.SetText(strconv.FormatFloat(s.LockRange, 'f', -1, 64))
}

func (p *crispPanel) loadFromDevice() {
	dev := p.dev()
	if dev == nil {
		return
	}
	p.showSettings(crisp.SettingsFromDevice(dev))
}

func (p *crispPanel) formSettings() (crisp.Settings, error) {
	s := *p.profiles.Current()
	s.LEDIntensity = int(p.ledSlider.Value)
	parseInt := func(entry *widget.Entry, name string) (int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(entry.Text))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return v, nil
	}
	parseFloat := func(entry *widget.Entry, name string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(entry.Text), 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", name)
		}
		return v, nil
	}
	var err error
	if s.Gain, err = parseInt(p.gainEntry, "gain"); err != nil {
		return s, err
	}
	if s.NumAverages, err = parseInt(p.avgEntry, "averages"); err != nil {
		return s, err
	}
	if s.UpdateRateMS, err = parseInt(p.rateEntry, "update rate"); err != nil {
		return s, err
	}
	if s.ObjectiveNA, err = parseFloat(p.naEntry, "objective NA"); err != nil {
		return s, err
	}
	if s.LockRange, err = parseFloat(p.rangeEntry, "lock range"); err != nil {
		return s, err
	}
	return s, nil
}

func (p *crispPanel) applySettings() {
	dev := p.dev()
	if dev == nil {
		return
	}
	s, err := p.formSettings()
	if err != nil {
		p.curveLabel.SetText(err.Error())
		return
	}
	if err := s.Apply(dev); err != nil {
		p.c.logger.Warn("failed to apply CRISP settings", logging.Field("error", err))
		return
	}
	*p.profiles.Current() = s
	p.persistProfiles()
}

func (p *crispPanel) persistProfiles() {
	p.userSettings.Profiles = p.profiles.All()
	p.userSettings.CurrentIndex = p.profiles.Index()
	p.userSettings.TimerIntervalMS = int(p.timer.Interval().Milliseconds())
	if err := crisp.SaveUserSettings(p.userSettings); err != nil {
		p.c.logger.Warn("failed to save CRISP settings", logging.Field("error", err))
	}
}

func (p *crispPanel) collectCurve() {
	dev := p.dev()
	if dev == nil {
		return
	}
	p.curveLabel.SetText("Collecting...")
	crisp.CollectFocusCurve(p.c.appCtx, p.c.studio.Pool, dev, workers.Callbacks{
		OnResult: func(result any) {
			points := result.([]crisp.CurvePoint)
			best := points[0]
			for _, pt := range points {
				if pt.Signal > best.Signal {
					best = pt
				}
			}
			p.curveLabel.SetText(fmt.Sprintf("%d points, peak at z=%.2f", len(points), best.Z))
		},
		OnError: func(err error) {
			p.curveLabel.SetText("Scan failed: " + err.Error())
		},
	})
}

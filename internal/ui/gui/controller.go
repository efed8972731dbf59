//go:build !headless

package gui

import (
	"context"
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"mmstudio/internal/actions"
	"mmstudio/internal/app"
	"mmstudio/internal/config"
	"mmstudio/internal/crisp"
	"mmstudio/internal/logging"
	"mmstudio/internal/mda"
	"mmstudio/internal/runctx"
	"mmstudio/internal/store"
	"mmstudio/internal/viewers"
	"mmstudio/internal/workbench"
)

var (
	statusIdleColor    = color.NRGBA{R: 145, G: 145, B: 145, A: 255}
	statusRunningColor = color.NRGBA{R: 72, G: 189, B: 109, A: 255}
	statusErrorColor   = color.NRGBA{R: 220, G: 84, B: 84, A: 255}
)

const settingsSaveTimeout = 5 * time.Second

type controller struct {
	app     fyne.App
	win     fyne.Window
	logger  *logging.Logger
	version string

	studio   *app.Studio
	settings config.StudioSettings
	wb       *workbench.Workbench
	host     *dockHost
	viewers  *viewers.Manager

	preview    *preview
	statusText *canvas.Text

	console    *consolePanel
	exceptions *exceptionPanel
	logBacklog []logging.Event

	onConfigReload []func()
	crispTimer     *crisp.PollTimer
	liveCancel     context.CancelFunc

	cleanupOnce    sync.Once
	quitOnce       sync.Once
	bgWG           sync.WaitGroup
	unsubscribe    []func()
	appCtx         context.Context
	appCancel      context.CancelFunc
	shuttingDown   bool
	confirmingQuit bool
}

// Available reports whether this build carries the GUI front-end.
func Available() bool { return true }

func Run(rootCtx context.Context, buildVersion string, defaults config.Options) {
	uiApp := fyneapp.New()
	c := newController(rootCtx, uiApp, buildVersion, defaults)
	c.logger.Info("starting studio UI", logging.Field("version", buildVersion))
	c.run()
}

func newController(rootCtx context.Context, uiApp fyne.App, buildVersion string, defaults config.Options) *controller {
	settings := config.SettingsFromOptions(defaults)
	if saved, err := config.LoadSettings(); err == nil {
		defaults = config.MergeOptionsWithSettings(defaults, saved)
		settings = saved
	}

	logger := logging.New(defaults.Debug)
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	appCtx, appCancel := context.WithCancel(rootCtx)

	c := &controller{
		app:       uiApp,
		logger:    logger,
		version:   buildVersion,
		settings:  settings,
		appCtx:    appCtx,
		appCancel: appCancel,
	}
	c.studio = app.New(appCtx, defaults, logger, func(fn func()) { fyne.Do(fn) })

	c.win = uiApp.NewWindow("MMStudio")
	c.win.SetMaster()
	c.win.Resize(fyne.NewSize(1100, 720))

	c.host = newDockHost(uiApp, c.win, logger)
	c.wb = workbench.New(c.host, logger, c.widgetFactories())
	c.viewers = viewers.NewManager(c.studio.Runner, logger, c.viewerFactory)
	c.viewers.SetScheduler(func(d time.Duration, fn func()) {
		time.AfterFunc(d, func() { fyne.Do(fn) })
	})

	c.buildUI()
	c.bindLogs()
	c.bindCoreEvents()
	c.app.Lifecycle().SetOnStopped(func() {
		c.logger.Debug("app lifecycle OnStopped hook triggered")
		c.cleanup()
	})
	return c
}

func (c *controller) run() {
	if err := c.studio.Start(); err != nil {
		c.logger.Error("failed to start studio session", logging.Field("error", err))
		dialog.ShowError(err, c.win)
	}

	if err := c.wb.RestoreLayout(&c.settings); err != nil {
		c.logger.Warn("failed to restore saved layout", logging.Field("error", err))
	}

	go func() {
		<-c.appCtx.Done()
		fyne.Do(func() {
			if c.shuttingDown {
				return
			}
			c.logger.Info("root context canceled; shutting down studio UI")
			c.quitApp()
		})
	}()

	c.win.SetOnClosed(func() {
		if c.shuttingDown {
			return
		}
		c.cleanup()
	})
	c.win.SetCloseIntercept(func() {
		c.requestQuit()
	})

	c.win.Show()
	c.app.Run()
}

// viewerFactory runs on the acquisition goroutine; window construction
// must land on the UI thread, so it blocks on a marshaled call and wraps
// the result so later viewer updates hop threads too.
func (c *controller) viewerFactory(seq *mda.Sequence) (viewers.Viewer, error) {
	var v *acqViewer
	fyne.DoAndWait(func() {
		v = newAcqViewer(c.app, "Acquisition "+shortUID(seq.UID))
	})
	return &uiViewer{inner: v}, nil
}

func shortUID(uid string) string {
	if len(uid) > 8 {
		return uid[:8]
	}
	return uid
}

// uiViewer marshals viewer updates onto the UI thread.
type uiViewer struct {
	inner *acqViewer
}

func (v *uiViewer) SetDataSource(arr *store.Array) error {
	fyne.Do(func() { _ = v.inner.SetDataSource(arr) })
	return nil
}

func (v *uiViewer) SetCurrentIndex(index map[string]int) error {
	fyne.Do(func() { _ = v.inner.SetCurrentIndex(index) })
	return nil
}

func (v *uiViewer) OnClose(fn func()) {
	v.inner.OnClose(fn)
}

func (c *controller) buildUI() {
	c.preview = newPreview()
	c.statusText = canvas.NewText("Idle", statusIdleColor)

	snapCmd := c.mustAction(actions.SnapImage)
	snapCmd.OnTriggered(func(bool) { c.snapImage() })
	liveCmd := c.mustAction(actions.ToggleLive)
	liveCmd.OnTriggered(func(checked bool) { c.setLiveEnabled(checked) })

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPhotoIcon(), func() { snapCmd.Trigger(false) }),
		widget.NewToolbarAction(theme.MediaPlayIcon(), func() { liveCmd.Toggle() }),
	)

	c.win.SetMainMenu(c.buildMainMenu(snapCmd, liveCmd))

	center := container.NewBorder(toolbar, c.statusText, nil, nil, c.preview.box)
	middle := container.NewHSplit(
		container.NewHSplit(container.NewVScroll(c.host.sidebar), c.host.left),
		container.NewHSplit(center, c.host.right),
	)
	middle.Offset = 0.25
	full := container.NewVSplit(middle, c.host.bottom)
	full.Offset = 0.75
	c.win.SetContent(full)
}

func (c *controller) buildMainMenu(snapCmd, liveCmd *actions.Command) *fyne.MainMenu {
	widgetItem := func(key actions.WidgetAction) *fyne.MenuItem {
		cmd := c.mustAction(key)
		item := fyne.NewMenuItem(cmd.Info().Text, func() {
			cmd.Toggle()
		})
		item.Checked = cmd.Checked()
		return item
	}

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Load System Configuration...", c.promptLoadConfiguration),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", c.requestQuit),
	)
	acquireMenu := fyne.NewMenu("Acquire",
		fyne.NewMenuItem(snapCmd.Info().Text, func() { snapCmd.Trigger(false) }),
		fyne.NewMenuItem(liveCmd.Info().Text, func() { liveCmd.Toggle() }),
		fyne.NewMenuItemSeparator(),
		widgetItem(actions.MDA),
	)
	devicesMenu := fyne.NewMenu("Devices",
		widgetItem(actions.PropBrowser),
		widgetItem(actions.StageControl),
		widgetItem(actions.CameraROI),
		widgetItem(actions.ConfigGroups),
		widgetItem(actions.IllumControl),
		widgetItem(actions.CRISP),
	)
	windowMenu := fyne.NewMenu("Window",
		widgetItem(actions.Console),
		widgetItem(actions.ExceptionLog),
	)
	helpMenu := fyne.NewMenu("Help",
		widgetItem(actions.About),
	)
	return fyne.NewMainMenu(fileMenu, acquireMenu, devicesMenu, windowMenu, helpMenu)
}

func (c *controller) mustAction(key actions.ActionKey) *actions.Command {
	cmd, err := c.wb.Action(key)
	if err != nil {
		panic("gui: undeclared action key " + key.String())
	}
	return cmd
}

func (c *controller) promptLoadConfiguration() {
	entry := widget.NewEntry()
	entry.SetText(c.studio.Core.SystemConfigurationFile())
	dialog.ShowForm("Load System Configuration", "Load", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Path", entry)},
		func(ok bool) {
			if !ok {
				return
			}
			path := entry.Text
			if err := config.ValidateConfigPath(path); err != nil {
				dialog.ShowError(err, c.win)
				return
			}
			if err := c.studio.Core.LoadSystemConfiguration(path); err != nil {
				dialog.ShowError(err, c.win)
			}
		}, c.win)
}

func (c *controller) setStatus(text string, col color.NRGBA) {
	c.statusText.Text = text
	c.statusText.Color = col
	c.statusText.Refresh()
}

func (c *controller) startBackgroundLoop(name string, fn func(context.Context)) {
	c.bgWG.Go(func() {
		c.logger.Debug("background loop started", logging.Field("loop", name))
		fn(c.appCtx)
		c.logger.Debug("background loop stopped", logging.Field("loop", name))
	})
}

func (c *controller) bindLogs() {
	logCh := make(chan logging.Event, 256)
	unsub := c.logger.Subscribe(func(event logging.Event) {
		select {
		case logCh <- event:
		default:
		}
	})
	c.unsubscribe = append(c.unsubscribe, unsub)

	c.startBackgroundLoop("gui log pump", func(ctx context.Context) {
		for {
			event, ok := runctx.RecvOrDone(ctx, "GUI log pump", c.logger, logCh)
			if !ok {
				return
			}
			ev := event
			fyne.Do(func() {
				c.appendLog(ev)
			})
		}
	})
}

func (c *controller) appendLog(event logging.Event) {
	c.logBacklog = append(c.logBacklog, event)
	if len(c.logBacklog) > maxConsoleLines {
		c.logBacklog = append([]logging.Event(nil), c.logBacklog[len(c.logBacklog)-maxConsoleLines:]...)
	}
	if c.console != nil {
		c.console.append(event)
	}
	if c.exceptions != nil {
		c.exceptions.append(event)
	}
}

func (c *controller) bindCoreEvents() {
	unsub := c.studio.Core.Events().OnSystemConfigurationLoaded(func(path string) {
		fyne.Do(func() {
			c.logger.Info("system configuration applied", logging.Field("path", path))
			for _, rebuild := range c.onConfigReload {
				rebuild()
			}
		})
	})
	c.unsubscribe = append(c.unsubscribe, unsub)
}

func (c *controller) persistLayout() {
	c.wb.SnapshotLayout(&c.settings)
	c.settings.LastConfigPath = c.studio.Core.SystemConfigurationFile()
	c.settings.DataDir = c.studio.Options.DataDir
	if err := config.SaveSettingsWithTimeout(c.settings, settingsSaveTimeout); err != nil {
		c.logger.Warn("failed to save settings", logging.Field("error", err))
	}
}

func (c *controller) cleanup() {
	c.cleanupOnce.Do(func() {
		c.shuttingDown = true
		c.logger.Debug("gui cleanup started")
		c.persistLayout()
		if c.liveCancel != nil {
			c.liveCancel()
			c.liveCancel = nil
		}
		if c.crispTimer != nil {
			c.crispTimer.Stop()
		}
		for _, unsub := range c.unsubscribe {
			unsub()
		}
		c.viewers.Close()
		c.appCancel()
		if ok := waitGroupWithTimeout(&c.bgWG, 2*time.Second); !ok {
			c.logger.Warn("GUI background loops did not stop within timeout")
		}
		if ok := c.studio.Shutdown(3 * time.Second); !ok {
			c.logger.Warn("studio session did not stop within timeout")
		}
		c.wb.Shutdown()
		c.logger.Debug("gui cleanup complete")
	})
}

func (c *controller) quitApp() {
	c.quitOnce.Do(func() {
		c.logger.Debug("quit requested")
		c.cleanup()
		c.app.Quit()
	})
}

func (c *controller) requestQuit() {
	if c.shuttingDown {
		return
	}
	if !c.studio.Acq.IsRunning() {
		c.quitApp()
		return
	}
	if c.confirmingQuit {
		return
	}
	c.confirmingQuit = true
	dialog.ShowConfirm(
		"Quit MMStudio?",
		"An acquisition is still running and will be stopped.",
		func(ok bool) {
			c.confirmingQuit = false
			if !ok {
				return
			}
			c.quitApp()
		},
		c.win,
	)
}

func waitGroupWithTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

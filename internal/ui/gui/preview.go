//go:build !headless

package gui

import (
	"context"
	"fmt"
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mmstudio/internal/logging"
	"mmstudio/internal/mmcore"
	"mmstudio/internal/store"
	"mmstudio/internal/viewers"
)

const livePreviewInterval = 100 * time.Millisecond

func frameToImage(frame mmcore.Frame) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, frame.Width, frame.Height))
	for i, v := range frame.Pix {
		img.Pix[2*i] = byte(v >> 8)
		img.Pix[2*i+1] = byte(v)
	}
	return img
}

// preview is the central live/snap image pane of the main window.
type preview struct {
	image  *canvas.Image
	status *widget.Label
	box    fyne.CanvasObject
}

func newPreview() *preview {
	img := canvas.NewImageFromImage(image.NewGray16(image.Rect(0, 0, 1, 1)))
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(320, 240))
	status := widget.NewLabel("No image")
	return &preview{
		image:  img,
		status: status,
		box:    container.NewBorder(nil, status, nil, nil, img),
	}
}

func (p *preview) setFrame(frame mmcore.Frame) {
	p.image.Image = frameToImage(frame)
	p.image.Refresh()
	p.status.SetText(fmt.Sprintf("%dx%d", frame.Width, frame.Height))
}

// snap grabs one frame on the UI thread; the simulated core answers
// immediately.
func (c *controller) snapImage() {
	frame, err := c.studio.Core.SnapImage(c.appCtx)
	if err != nil {
		c.logger.Warn("snap failed", logging.Field("error", err))
		c.setStatus("Snap failed", statusErrorColor)
		return
	}
	c.preview.setFrame(frame)
	c.setStatus("Snapped", statusIdleColor)
}

func (c *controller) setLiveEnabled(enabled bool) {
	if enabled == (c.liveCancel != nil) {
		return
	}
	if !enabled {
		c.liveCancel()
		c.liveCancel = nil
		c.setStatus("Idle", statusIdleColor)
		return
	}

	ctx, cancel := context.WithCancel(c.appCtx)
	c.liveCancel = cancel
	c.setStatus("Live", statusRunningColor)
	c.startBackgroundLoop("live preview", func(loopCtx context.Context) {
		ticker := time.NewTicker(livePreviewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				frame, err := c.studio.Core.SnapImage(ctx)
				if err != nil {
					continue
				}
				fyne.Do(func() {
					c.preview.setFrame(frame)
				})
			}
		}
	})
}

// acqViewer is one acquisition viewer window: the current frame plus a
// slider per acquisition axis.
type acqViewer struct {
	win    fyne.Window
	image  *canvas.Image
	label  *widget.Label
	axes   *fyne.Container
	source *store.Array

	sliders map[string]*widget.Slider
	index   map[string]int
	closeFn func()
}

func newAcqViewer(app fyne.App, title string) *acqViewer {
	img := canvas.NewImageFromImage(image.NewGray16(image.Rect(0, 0, 1, 1)))
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(320, 240))
	v := &acqViewer{
		win:     app.NewWindow(title),
		image:   img,
		label:   widget.NewLabel("Waiting for frames"),
		axes:    container.NewVBox(),
		sliders: map[string]*widget.Slider{},
		index:   map[string]int{},
	}
	v.win.SetContent(container.NewBorder(nil, container.NewVBox(v.axes, v.label), nil, nil, img))
	v.win.Resize(fyne.NewSize(520, 480))
	v.win.SetCloseIntercept(func() {
		if v.closeFn != nil {
			v.closeFn()
		}
		v.win.Close()
	})
	v.win.Show()
	return v
}

func (v *acqViewer) SetDataSource(arr *store.Array) error {
	v.source = arr
	v.axes.RemoveAll()
	v.sliders = map[string]*widget.Slider{}
	for i, label := range arr.Labels {
		if arr.Dims[i] <= 1 {
			continue
		}
		axis := label
		slider := widget.NewSlider(0, float64(arr.Dims[i]-1))
		slider.Step = 1
		slider.OnChanged = func(value float64) {
			v.index[axis] = int(value)
			v.refreshFrame()
		}
		v.sliders[axis] = slider
		v.axes.Add(container.NewBorder(nil, nil, widget.NewLabel(axis), nil, slider))
	}
	v.axes.Refresh()
	return nil
}

func (v *acqViewer) SetCurrentIndex(index map[string]int) error {
	if v.source == nil {
		return nil
	}
	for axis, value := range index {
		v.index[axis] = value
		if slider, ok := v.sliders[axis]; ok {
			slider.Value = float64(value)
			slider.Refresh()
		}
	}
	v.refreshFrame()
	return nil
}

func (v *acqViewer) refreshFrame() {
	frame, ok := v.source.Frame(v.index)
	if !ok {
		return
	}
	v.image.Image = frameToImage(frame)
	v.image.Refresh()
	v.label.SetText(fmt.Sprintf("%d frames stored", v.source.Len()))
}

func (v *acqViewer) OnClose(fn func()) { v.closeFn = fn }

var _ viewers.Viewer = (*acqViewer)(nil)

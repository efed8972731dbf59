//go:build !headless

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	toggleTrackWidth  = float32(46)
	toggleTrackHeight = float32(22)
	toggleThumbInset  = float32(3)
)

// toggleSwitch is a pill-shaped on/off control. The stock check widget
// draws a box with a label; the CRISP polling and illumination shutter
// rows want a bare switch, so this draws its own track and thumb.
type toggleSwitch struct {
	widget.BaseWidget

	Checked   bool
	OnChanged func(on bool)

	track *canvas.Rectangle
	thumb *canvas.Circle
}

func newToggleSwitch(onChanged func(on bool)) *toggleSwitch {
	s := &toggleSwitch{
		OnChanged: onChanged,
		track:     canvas.NewRectangle(statusIdleColor),
		thumb:     canvas.NewCircle(color.NRGBA{R: 250, G: 250, B: 250, A: 255}),
	}
	s.ExtendBaseWidget(s)
	return s
}

// SetChecked flips the switch and notifies. Setting the current state is
// a no-op so a restore does not re-fire the handler.
func (s *toggleSwitch) SetChecked(on bool) {
	if s.Checked == on {
		return
	}
	s.Checked = on
	if s.OnChanged != nil {
		s.OnChanged(on)
	}
	s.Refresh()
}

func (s *toggleSwitch) Tapped(*fyne.PointEvent) { s.SetChecked(!s.Checked) }

func (s *toggleSwitch) TappedSecondary(*fyne.PointEvent) {}

func (s *toggleSwitch) MinSize() fyne.Size {
	return fyne.NewSize(toggleTrackWidth, toggleTrackHeight)
}

func (s *toggleSwitch) CreateRenderer() fyne.WidgetRenderer {
	return &toggleSwitchRenderer{sw: s}
}

type toggleSwitchRenderer struct {
	sw *toggleSwitch
}

func (r *toggleSwitchRenderer) Layout(size fyne.Size) {
	w, h := r.trackSize(size)
	r.sw.track.CornerRadius = h / 2
	r.sw.track.Resize(fyne.NewSize(w, h))
	r.sw.track.Move(fyne.NewPos(0, 0))

	d := h - 2*toggleThumbInset
	x := toggleThumbInset
	if r.sw.Checked {
		x = w - d - toggleThumbInset
	}
	r.sw.thumb.Resize(fyne.NewSize(d, d))
	r.sw.thumb.Move(fyne.NewPos(x, (h-d)/2))
}

// trackSize clamps the drawn pill to its natural proportions no matter
// how much room the layout hands over.
func (r *toggleSwitchRenderer) trackSize(size fyne.Size) (float32, float32) {
	w := size.Width
	if w < toggleTrackWidth {
		w = toggleTrackWidth
	}
	h := size.Height
	if h > toggleTrackHeight {
		h = toggleTrackHeight
	}
	if h < toggleTrackHeight/2 {
		h = toggleTrackHeight / 2
	}
	return w, h
}

func (r *toggleSwitchRenderer) MinSize() fyne.Size {
	return fyne.NewSize(toggleTrackWidth, toggleTrackHeight)
}

func (r *toggleSwitchRenderer) Refresh() {
	if r.sw.Checked {
		r.sw.track.FillColor = theme.Color(theme.ColorNamePrimary)
	} else {
		r.sw.track.FillColor = statusIdleColor
	}
	r.Layout(r.sw.Size())
	canvas.Refresh(r.sw.track)
	canvas.Refresh(r.sw.thumb)
}

func (r *toggleSwitchRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.sw.track, r.sw.thumb}
}

func (r *toggleSwitchRenderer) Destroy() {}

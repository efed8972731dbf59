package actions

// Command is the runtime toggle object for one action key. The workbench
// owns at most one Command per key. Commands are UI-thread-only by
// contract and carry no internal locking.
type Command struct {
	info      ActionInfo
	checked   bool
	enabled   bool
	listeners []func(checked bool)
}

func NewCommand(info ActionInfo) *Command {
	return &Command{
		info:    info,
		checked: info.DefaultChecked,
		enabled: info.DefaultEnabled,
	}
}

func (c *Command) Key() ActionKey   { return c.info.Key }
func (c *Command) Info() ActionInfo { return c.info }
func (c *Command) Checkable() bool  { return c.info.Checkable }
func (c *Command) Checked() bool    { return c.checked }
func (c *Command) Enabled() bool    { return c.enabled }

func (c *Command) SetEnabled(enabled bool) { c.enabled = enabled }

// SetChecked updates the checked state without firing listeners. Layout
// restore and close interception use it to resync toggle state silently.
func (c *Command) SetChecked(checked bool) {
	if c.info.Checkable {
		c.checked = checked
	}
}

// OnTriggered registers fn to run when the command is triggered. Listeners
// fire in registration order.
func (c *Command) OnTriggered(fn func(checked bool)) {
	c.listeners = append(c.listeners, fn)
}

// Trigger sets the checked state (for checkable commands) and fires the
// listeners. Disabled commands ignore triggers.
func (c *Command) Trigger(checked bool) {
	if !c.enabled {
		return
	}
	if c.info.Checkable {
		c.checked = checked
	}
	for _, fn := range c.listeners {
		fn(checked)
	}
}

// Toggle triggers the command with the inverse of its current state.
func (c *Command) Toggle() {
	c.Trigger(!c.checked)
}

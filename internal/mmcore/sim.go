package mmcore

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	simFrameWidth  = 256
	simFrameHeight = 256
)

type simDevice struct {
	label       string
	library     string
	description string
	devType     DeviceType
	props       map[string]string
	pos         float64
	x, y        float64
}

// SimCore is an in-memory stand-in for the hardware core. Device topology
// comes from a line-based system configuration file; with no file loaded it
// exposes the built-in demo set (camera, XY stage, Z drive).
type SimCore struct {
	mu          sync.Mutex
	events      *Events
	configPath  string
	devices     map[string]*simDevice
	order       []string
	focusOn     bool
	focusOffset float64
	frameCount  uint64
	rng         *rand.Rand
}

func NewSimCore() *SimCore {
	c := &SimCore{
		events: newEvents(),
		rng:    rand.New(rand.NewSource(1)),
	}
	c.installDemoDevices()
	return c
}

func (c *SimCore) Events() *Events { return c.events }

func (c *SimCore) installDemoDevices() {
	c.devices = map[string]*simDevice{}
	c.order = nil
	c.addDevice(&simDevice{label: "Camera", library: "DemoCamera", description: "Simulated monochrome camera", devType: CameraDevice, props: map[string]string{"Exposure": "10"}})
	c.addDevice(&simDevice{label: "XYStage", library: "DemoCamera", description: "Simulated XY stage", devType: XYStageDevice, props: map[string]string{}})
	c.addDevice(&simDevice{label: "ZStage", library: "DemoCamera", description: "Simulated Z drive", devType: StageDevice, props: map[string]string{}})
}

func (c *SimCore) addDevice(dev *simDevice) {
	if dev.props == nil {
		dev.props = map[string]string{}
	}
	c.devices[dev.label] = dev
	c.order = append(c.order, dev.label)
}

func (c *SimCore) device(label string) (*simDevice, error) {
	dev, ok := c.devices[label]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return dev, nil
}

// LoadedDevices returns all device labels in configuration order.
func (c *SimCore) LoadedDevices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// DevicePropertyNames lists a device's property names in sorted order.
func (c *SimCore) DevicePropertyNames(device string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dev, err := c.device(device)
	if err != nil {
		return nil, deviceErr("list properties", device, "", err)
	}
	names := make([]string, 0, len(dev.props))
	for name := range dev.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *SimCore) GetProperty(device, prop string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dev, err := c.device(device)
	if err != nil {
		return "", deviceErr("get property", device, prop, err)
	}
	value, ok := dev.props[prop]
	if !ok {
		return "", deviceErr("get property", device, prop, ErrPropertyNotFound)
	}
	return value, nil
}

func (c *SimCore) SetProperty(device, prop, value string) error {
	c.mu.Lock()
	dev, err := c.device(device)
	if err != nil {
		c.mu.Unlock()
		return deviceErr("set property", device, prop, err)
	}
	dev.props[prop] = value
	c.mu.Unlock()
	c.events.emitPropertyChanged(device, prop, value)
	return nil
}

func (c *SimCore) DeviceLibrary(device string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dev, err := c.device(device)
	if err != nil {
		return "", deviceErr("get library", device, "", err)
	}
	return dev.library, nil
}

func (c *SimCore) DeviceDescription(device string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dev, err := c.device(device)
	if err != nil {
		return "", deviceErr("get description", device, "", err)
	}
	return dev.description, nil
}

func (c *SimCore) LoadedDevicesOfType(t DeviceType) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedOfTypeLocked(t)
}

func (c *SimCore) loadedOfTypeLocked(t DeviceType) []string {
	var labels []string
	for _, label := range c.order {
		if c.devices[label].devType == t {
			labels = append(labels, label)
		}
	}
	return labels
}

func (c *SimCore) EnableContinuousFocus(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.loadedOfTypeLocked(AutoFocusDevice)) == 0 {
		return deviceErr("enable continuous focus", "AutoFocus", "", ErrDeviceNotFound)
	}
	c.focusOn = enabled
	return nil
}

func (c *SimCore) IsContinuousFocusLocked() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focusOn, nil
}

func (c *SimCore) AutoFocusOffset() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focusOffset, nil
}

func (c *SimCore) SetAutoFocusOffset(offset float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focusOffset = offset
	return nil
}

func (c *SimCore) Position(stage string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dev, err := c.device(stage)
	if err != nil {
		return 0, deviceErr("get position", stage, "", err)
	}
	return dev.pos, nil
}

func (c *SimCore) SetPosition(stage string, pos float64) error {
	c.mu.Lock()
	dev, err := c.device(stage)
	if err != nil {
		c.mu.Unlock()
		return deviceErr("set position", stage, "", err)
	}
	dev.pos = pos
	c.mu.Unlock()
	c.events.emitStageMoved(stage, pos)
	return nil
}

func (c *SimCore) SetRelativePosition(stage string, delta float64) error {
	c.mu.Lock()
	dev, err := c.device(stage)
	if err != nil {
		c.mu.Unlock()
		return deviceErr("move stage", stage, "", err)
	}
	dev.pos += delta
	pos := dev.pos
	c.mu.Unlock()
	c.events.emitStageMoved(stage, pos)
	return nil
}

func (c *SimCore) XYPosition(stage string) (float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dev, err := c.device(stage)
	if err != nil {
		return 0, 0, deviceErr("get xy position", stage, "", err)
	}
	return dev.x, dev.y, nil
}

func (c *SimCore) SetXYPosition(stage string, x, y float64) error {
	c.mu.Lock()
	dev, err := c.device(stage)
	if err != nil {
		c.mu.Unlock()
		return deviceErr("set xy position", stage, "", err)
	}
	dev.x, dev.y = x, y
	c.mu.Unlock()
	c.events.emitStageMoved(stage, x)
	return nil
}

// SnapImage produces a synthetic gradient exposure with per-frame noise so
// successive frames are visibly distinct in the preview.
func (c *SimCore) SnapImage(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.loadedOfTypeLocked(CameraDevice)) == 0 {
		return Frame{}, deviceErr("snap image", "Camera", "", ErrDeviceNotFound)
	}
	c.frameCount++
	phase := uint16(c.frameCount % 64)
	pix := make([]uint16, simFrameWidth*simFrameHeight)
	for y := 0; y < simFrameHeight; y++ {
		for x := 0; x < simFrameWidth; x++ {
			base := uint16((x+y)*8) + phase*512
			pix[y*simFrameWidth+x] = base + uint16(c.rng.Intn(256))
		}
	}
	return Frame{Width: simFrameWidth, Height: simFrameHeight, Pix: pix}, nil
}

func (c *SimCore) SystemConfigurationFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configPath
}

// LoadSystemConfiguration replaces the device set from a configuration file.
// An empty path restores the built-in demo devices. Records:
//
//	Device,<label>,<library>,<type>,<description>
//	Property,<label>,<prop>,<value>
func (c *SimCore) LoadSystemConfiguration(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		c.mu.Lock()
		c.installDemoDevices()
		c.configPath = ""
		c.mu.Unlock()
		c.events.emitConfigLoaded("")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open system configuration: %w", err)
	}
	defer f.Close()

	devices := map[string]*simDevice{}
	var order []string
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		switch fields[0] {
		case "Device":
			if len(fields) < 5 {
				return fmt.Errorf("system configuration line %d: malformed Device record", lineNo)
			}
			dev := &simDevice{
				label:       strings.TrimSpace(fields[1]),
				library:     strings.TrimSpace(fields[2]),
				devType:     parseDeviceType(fields[3]),
				description: strings.TrimSpace(strings.Join(fields[4:], ",")),
				props:       map[string]string{},
			}
			devices[dev.label] = dev
			order = append(order, dev.label)
		case "Property":
			if len(fields) < 4 {
				return fmt.Errorf("system configuration line %d: malformed Property record", lineNo)
			}
			dev, ok := devices[strings.TrimSpace(fields[1])]
			if !ok {
				return fmt.Errorf("system configuration line %d: property for unknown device %q", lineNo, fields[1])
			}
			dev.props[strings.TrimSpace(fields[2])] = strings.TrimSpace(strings.Join(fields[3:], ","))
		default:
			return fmt.Errorf("system configuration line %d: unknown record %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read system configuration: %w", err)
	}

	c.mu.Lock()
	c.devices = devices
	c.order = order
	c.configPath = path
	c.mu.Unlock()
	c.events.emitConfigLoaded(path)
	return nil
}

func parseDeviceType(raw string) DeviceType {
	switch strings.TrimSpace(raw) {
	case "Camera":
		return CameraDevice
	case "Stage":
		return StageDevice
	case "XYStage":
		return XYStageDevice
	case "AutoFocus":
		return AutoFocusDevice
	case "Shutter":
		return ShutterDevice
	default:
		return UnknownType
	}
}

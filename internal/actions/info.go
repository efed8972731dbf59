package actions

import "fmt"

// ActionInfo is the static declaration of one action: everything a front
// end needs to build a menu entry, toolbar button, or key binding for it.
type ActionInfo struct {
	Key            ActionKey
	Text           string
	Icon           string
	Tooltip        string
	Shortcut       string
	Checkable      bool
	DefaultChecked bool
	DefaultEnabled bool
}

// registry is the closed table of declared infos. Every key in the
// enumeration has exactly one entry; there is no runtime registration.
var registry = map[ActionKey]ActionInfo{}

func declare(info ActionInfo) {
	if _, exists := registry[info.Key]; exists {
		panic(fmt.Sprintf("actions: duplicate declaration for key %q", info.Key))
	}
	registry[info.Key] = info
}

func init() {
	declare(ActionInfo{
		Key:            SnapImage,
		Text:           "Snap Image",
		Icon:           "mdi-light:camera",
		Shortcut:       "Ctrl+K",
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            ToggleLive,
		Text:           "Live",
		Icon:           "mdi:video-outline",
		Shortcut:       "Ctrl+L",
		Checkable:      true,
		DefaultEnabled: true,
	})

	declare(ActionInfo{
		Key:            About,
		Text:           "About",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            PropBrowser,
		Text:           "Device Property Browser",
		Icon:           "mdi-light:format-list-bulleted",
		Shortcut:       "Ctrl+Shift+P",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            MDA,
		Text:           "MDA",
		Tooltip:        "Multi-dimensional acquisition",
		Icon:           "qlementine-icons:cube-16",
		Shortcut:       "Ctrl+Shift+M",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            StageControl,
		Text:           "Stage Control",
		Icon:           "fa:arrows",
		Shortcut:       "Ctrl+Shift+S",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            CameraROI,
		Text:           "Camera ROI",
		Icon:           "material-symbols-light:screenshot-region-rounded",
		Shortcut:       "Ctrl+Shift+R",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            ConfigGroups,
		Text:           "Config Groups",
		Icon:           "mdi-light:format-list-bulleted",
		Shortcut:       "Ctrl+Shift+G",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            Console,
		Text:           "Console",
		Icon:           "iconoir:terminal",
		Shortcut:       "Ctrl+Shift+C",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            ExceptionLog,
		Text:           "Exception Log",
		Icon:           "mdi-light:alert",
		Shortcut:       "Ctrl+Shift+E",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            CRISP,
		Text:           "CRISP",
		Tooltip:        "CRISP continuous autofocus",
		Checkable:      true,
		DefaultEnabled: true,
	})
	declare(ActionInfo{
		Key:            IllumControl,
		Text:           "Illumination",
		Icon:           "mdi:lightbulb-on-10",
		Checkable:      true,
		DefaultEnabled: true,
	})
}

// InfoForKey returns the declared info for key. Keys outside the closed
// table yield an error naming the key.
func InfoForKey(key ActionKey) (ActionInfo, error) {
	info, ok := registry[key]
	if !ok {
		return ActionInfo{}, fmt.Errorf("no ActionInfo declared for key %q", key)
	}
	return info, nil
}

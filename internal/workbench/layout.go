package workbench

import (
	"fmt"

	"mmstudio/internal/actions"
	"mmstudio/internal/config"
	"mmstudio/internal/logging"
)

// SnapshotLayout records the currently open widget keys plus the host's
// opaque geometry and state blobs into settings. Called on window close,
// before the settings are flushed to disk.
func (wb *Workbench) SnapshotLayout(settings *config.StudioSettings) {
	var open []string
	for _, key := range actions.WidgetActions() {
		if c, ok := wb.containers[key]; ok && c.Visible() {
			open = append(open, key.String())
		}
	}
	settings.InitialWidgets = open
	settings.WindowGeometry = wb.host.SaveGeometry()
	settings.WindowState = wb.host.SaveState()
	wb.logger.Debug("layout snapshot captured",
		logging.Field("open_widgets", len(open)),
		logging.Field("geometry_bytes", len(settings.WindowGeometry)),
		logging.Field("state_bytes", len(settings.WindowState)),
	)
}

// RestoreLayout replays a persisted layout in two phases: first realize
// every widget that was open, then apply geometry and the opaque state
// blob, then silently re-check each key's command. The state blob is only
// meaningful once the same widget set exists again, which is why creation
// strictly precedes the replay. An empty open set skips the state replay
// entirely.
func (wb *Workbench) RestoreLayout(settings *config.StudioSettings) error {
	var keys []actions.WidgetAction
	for _, name := range settings.InitialWidgets {
		key, ok := actions.ParseWidgetAction(name)
		if !ok {
			wb.logger.Warn("ignoring unknown widget key in saved layout", logging.Field("key", name))
			continue
		}
		keys = append(keys, key)
	}

	for _, key := range keys {
		if _, err := wb.Widget(key); err != nil {
			return fmt.Errorf("failed to restore widget %q: %w", key, err)
		}
	}

	if len(settings.WindowGeometry) > 0 {
		if err := wb.host.RestoreGeometry(settings.WindowGeometry); err != nil {
			wb.logger.Warn("failed to restore window geometry", logging.Field("error", err))
		}
	}
	if len(keys) > 0 && len(settings.WindowState) > 0 {
		if err := wb.host.RestoreState(settings.WindowState); err != nil {
			wb.logger.Warn("failed to restore dock state", logging.Field("error", err))
		}
	}

	for _, key := range keys {
		cmd, err := wb.Action(key)
		if err != nil {
			return err
		}
		cmd.SetChecked(true)
	}
	return nil
}

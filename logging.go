package courier

import "log/slog"

// LogMessages installs a logger on t that writes one debug record per
// successful send and receive, tagged with the topic's type name and the
// direction of travel. A nil logger falls back to slog.Default. It replaces
// any logger already set; SetLogger(nil) removes it again.
func LogMessages[T any](t *Topic[T], logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	name := t.name
	t.SetLogger(func(msg *T, sent bool) {
		dir := "recv"
		if sent {
			dir = "send"
		}
		logger.Debug("message",
			slog.String("type", name),
			slog.String("dir", dir),
			slog.Any("payload", msg),
		)
	})
}

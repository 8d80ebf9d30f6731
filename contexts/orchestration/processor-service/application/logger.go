package application

import "log/slog"

// ResolveLogger falls back to the process default logger when a component
// was wired without one.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

package logger

import "log/slog"

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Secret keeps the first five characters of a credential and masks the rest.
func Secret(key, value string) slog.Attr {
	masked := "***"
	switch {
	case value == "":
		masked = "?"
	case len(value) > 5:
		masked = value[:5] + "***"
	}
	return slog.String(key, masked)
}

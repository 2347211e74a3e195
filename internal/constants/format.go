package constants

// LogFormat selects the slog handler used for operational output.
type LogFormat string

const (
	// LogFormatText writes logfmt-style key=value lines.
	LogFormatText LogFormat = "text"

	// LogFormatJSON writes one JSON object per line.
	LogFormatJSON LogFormat = "json"
)

// Valid returns true if the format is a recognized value.
// The empty string is accepted and means text.
func (f LogFormat) Valid() bool {
	switch f {
	case LogFormatText, LogFormatJSON, "":
		return true
	}
	return false
}

// String returns the string representation of the format.
func (f LogFormat) String() string {
	return string(f)
}

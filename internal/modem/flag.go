package modem

import "strings"

// FlagKind is the closed set of states reported by ussd_write_flag.
type FlagKind int

const (
	FlagUnrecognized FlagKind = iota
	FlagWaiting
	FlagRetry
	FlagComplete
	FlagTimeout
	FlagNoService
	FlagUnknown
)

func (k FlagKind) String() string {
	switch k {
	case FlagWaiting:
		return "waiting"
	case FlagRetry:
		return "retry"
	case FlagComplete:
		return "complete"
	case FlagTimeout:
		return "timeout"
	case FlagNoService:
		return "no_service"
	case FlagUnknown:
		return "unknown"
	default:
		return "unrecognized"
	}
}

// Flag is a parsed status flag. Raw keeps the firmware value for logging.
type Flag struct {
	Kind FlagKind
	Raw  string
}

// ParseFlag maps a raw firmware value onto the closed flag set.
func ParseFlag(raw string) Flag {
	value := strings.TrimSpace(raw)
	kind := FlagUnrecognized
	switch value {
	case "16":
		kind = FlagComplete
	case "4":
		kind = FlagTimeout
	case "1":
		kind = FlagNoService
	case "unknown":
		kind = FlagUnknown
	case "0", "15":
		kind = FlagWaiting
	case "13":
		kind = FlagRetry
	}
	return Flag{Kind: kind, Raw: value}
}

// Terminal reports whether polling should stop on this flag.
// Unrecognized values are terminal so new firmware flags never spin the loop.
func (f Flag) Terminal() bool {
	return f.Kind != FlagWaiting && f.Kind != FlagRetry
}

func (f Flag) String() string {
	return f.Kind.String() + "(" + f.Raw + ")"
}

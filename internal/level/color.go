package level

type Color int

const (
	Neutral Color = iota
	Nominal
	Warning
	Critical
)

func ColorFor(s Severity) Color {
	switch s {
	case Full:
		return Critical
	case Average:
		return Warning
	case Low:
		return Nominal
	default:
		return Neutral
	}
}

func (c Color) String() string {
	switch c {
	case Nominal:
		return "nominal"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "neutral"
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Class is the panel tint class used by the dashboard stylesheet.
func (c Color) Class() string {
	switch c {
	case Nominal:
		return "bg-green-500"
	case Warning:
		return "bg-yellow-500"
	case Critical:
		return "bg-red-500"
	default:
		return "bg-slate-500"
	}
}

func (c Color) Hex() string {
	switch c {
	case Nominal:
		return "#22c55e"
	case Warning:
		return "#eab308"
	case Critical:
		return "#ef4444"
	default:
		return "#64748b"
	}
}

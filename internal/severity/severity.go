// Package severity maps raw status values reported by monitoring sources onto
// an ordered scale and classifies transitions between polling cycles.
package severity

// Severity is the health state of a monitored app, ordered from healthy to
// fully down. Raw codes that no source mapping recognizes collapse to Unknown.
type Severity string

const (
	Unknown     Severity = "Unknown"
	Operational Severity = "Operational"
	Degraded    Severity = "Degraded"
	Down        Severity = "Down"
)

// Classification is the direction of a status transition between two cycles.
type Classification string

const (
	Worsening Classification = "worsening"
	Improving Classification = "improving"
	Lateral   Classification = "lateral"
)

// rankings orders severities for comparison. Unknown sits with Operational at
// the bottom so that a first observation of Degraded or Down counts as a
// worsening even when nothing was recorded before.
var rankings = map[Severity]int{
	Unknown:     0,
	Operational: 0,
	Degraded:    1,
	Down:        2,
}

// FromRaw maps a raw status string to a Severity. Unmapped values yield
// Unknown; they never open, escalate, or close an incident.
func FromRaw(raw string) Severity {
	switch raw {
	case "Operational":
		return Operational
	case "Degraded":
		return Degraded
	case "Down":
		return Down
	default:
		return Unknown
	}
}

// Rank returns the comparison rank of s. Unrecognized values rank as Unknown.
func Rank(s Severity) int {
	return rankings[s]
}

// Classify determines whether moving from previous to current is a worsening,
// an improvement, or a lateral move.
//
// A transition is Worsening when the rank strictly increases and the new value
// is a real reading, so Operational straight to Down is a single worsening and
// Unknown never escalates. It is Improving only on a real recovery: current is
// Operational and the app was previously Degraded or Down. Everything else,
// including repeats and any move into Unknown, is Lateral.
func Classify(previous, current Severity) Classification {
	if current != Unknown && Rank(current) > Rank(previous) {
		return Worsening
	}

	if current == Operational && (previous == Degraded || previous == Down) {
		return Improving
	}

	return Lateral
}

// TicketPriority maps a severity to the priority used on remote tickets.
func TicketPriority(s Severity) string {
	if s == Down {
		return "High"
	}

	return "Medium"
}

// Icon returns the status glyph used in ticket summaries and chat messages.
func Icon(s Severity) string {
	switch s {
	case Down:
		return "🔴"
	case Degraded:
		return "🟡"
	case Operational:
		return "🟢"
	default:
		return "⚪"
	}
}

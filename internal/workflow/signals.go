package workflow

// Signal is one of the four signals a running orchestration accepts, per
// spec §4.6.
type Signal string

const (
	SignalCancel       Signal = "cancel"
	SignalPause        Signal = "pause"
	SignalResume       Signal = "resume"
	SignalReloadConfig Signal = "reload_config"
)

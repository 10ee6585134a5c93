package tui

// Color constants for the timeclock TUI theme
const (
	ColorBorder = "#3A3F55" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2"
	ColorSecondaryText = "#B1B8C7"
	ColorDisabledText  = "#6D7383"
	ColorHelpText      = "240"

	// Accent Colors (Purple theme)
	ColorAccentMain   = "#7C3AED" // Header, active segment
	ColorAccentBright = "#A78BFA" // Big clock

	// State Colors
	ColorError   = "#EF4444"
	ColorSuccess = "#22C55E"
)

package tui

// UI Text Constants
const (
	TextFooter       = "Press 'r' to refresh the summary | Press 'q' or Ctrl+C to quit"
	TextNoUpdates    = "No updates yet. Waiting for issue events..."
	TextDisconnected = "Not connected to the listener"
)

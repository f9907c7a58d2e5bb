package ui

import "testing"

func TestNotifierDeliversThroughSender(t *testing.T) {
	var gotTitle, gotMessage string
	n := &Notifier{send: func(title, message string) error {
		gotTitle = title
		gotMessage = message
		return nil
	}}

	n.SendSuccess("DOWNLOAD COMPLETE", "My Gallery")

	if gotTitle != "DOWNLOAD COMPLETE" || gotMessage != "My Gallery" {
		t.Errorf("Expected sender to receive title and message, got %q / %q", gotTitle, gotMessage)
	}
}

func TestNotifierWithoutSender(t *testing.T) {
	// Unsupported platforms fall back to console output only
	n := &Notifier{}
	n.SendNotification("RATE LIMIT", "Waiting for request budget...")
	n.SendError("DOWNLOAD INCOMPLETE", "3 pages of My Gallery failed")
}

func TestNewNotifier(t *testing.T) {
	if NewNotifier() == nil {
		t.Fatal("Expected a notifier for the current platform")
	}
}

package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Notifier raises a desktop notification when a gallery finishes or the
// request budget stalls, so long downloads can run unattended. Delivery is
// best-effort: the console line is the record, the toast is a convenience.
type Notifier struct {
	send func(title, message string) error
}

// NewNotifier picks the notification command for the current platform.
// Unsupported platforms get a console-only notifier.
func NewNotifier() *Notifier {
	switch runtime.GOOS {
	case "linux":
		return &Notifier{send: notifySend}
	case "darwin":
		return &Notifier{send: osascriptNotify}
	case "windows":
		return &Notifier{send: powershellToast}
	default:
		return &Notifier{}
	}
}

// SendNotification prints a status line and raises a desktop notification.
func (n *Notifier) SendNotification(title, message string) {
	fmt.Printf("\n%s: %s\n", Cyan(title), Yellow(message))
	n.deliver(title, message)
}

// SendError reports a failed download.
func (n *Notifier) SendError(title, message string) {
	fmt.Printf("\n%s: %s\n", Red(title), Red(message))
	n.deliver(title, message)
}

// SendSuccess reports a completed download.
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Printf("\n%s: %s\n", Green(title), Green(message))
	n.deliver(title, message)
}

func (n *Notifier) deliver(title, message string) {
	if n.send == nil {
		return
	}
	// A failed toast never interrupts the download
	_ = n.send(title, message)
}

func notifySend(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

func osascriptNotify(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

func powershellToast(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("ehgrab").Show($toast)
	`, title, message)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Package notify sends desktop notifications over the freedesktop
// notification D-Bus API.
package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/wgconv/common"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	notifyCall = busName + ".Notify"

	defaultIcon    = "network-vpn"
	defaultTimeout = int32(5000)
)

// Urgency maps to the "urgency" hint of org.freedesktop.Notifications.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification is a single desktop notification.
type Notification struct {
	Title   string
	Message string
	Icon    string
	Urgency Urgency
}

// Desktop delivers notifications on the session bus. When notifications are
// disabled or no bus is reachable, messages go to the log instead.
type Desktop struct {
	enabled bool

	mu      sync.Mutex
	conn    *dbus.Conn
	lastID  uint32
	connect func() (*dbus.Conn, error)
	log     common.Logger
}

// New creates a notifier. enabled mirrors the show_notifications setting.
func New(enabled bool) *Desktop {
	return &Desktop{
		enabled: enabled,
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
		log:     common.GetLogger(),
	}
}

// Notify sends an informational notification.
func (d *Desktop) Notify(title, message string) error {
	return d.Send(Notification{Title: title, Message: message, Urgency: UrgencyLow})
}

// Send delivers n. A missing session bus is not an error.
func (d *Desktop) Send(n Notification) error {
	if !d.enabled {
		d.log.Info("Notification: %s: %s", n.Title, n.Message)
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		conn, err := d.connect()
		if err != nil {
			d.log.Debug("Notify: session bus unavailable: %v", err)
			d.log.Info("Notification: %s: %s", n.Title, n.Message)
			return nil
		}
		d.conn = conn
	}

	icon := n.Icon
	if icon == "" {
		icon = defaultIcon
		if n.Urgency == UrgencyCritical {
			icon = "dialog-error"
		}
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(n.Urgency)),
	}

	obj := d.conn.Object(busName, objectPath)
	call := obj.Call(notifyCall, 0,
		common.AppName, d.lastID, icon, n.Title, n.Message,
		[]string{}, hints, defaultTimeout)
	if call.Err != nil {
		return fmt.Errorf("sending notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err == nil {
		d.lastID = id
	}
	return nil
}

// Close releases the bus connection.
func (d *Desktop) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

var _ common.Notifier = (*Desktop)(nil)

// Package common provides shared constants, types, and utilities
// used across wgconv.
package common

import "time"

// Application metadata.
const (
	// AppID is the unique identifier for the application.
	AppID = "com.wgconv.app"
	// AppName is the display name of the application.
	AppName = "wgconv"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "wgconv"
)

// File names used by the application.
const (
	ProfilesFileName    = "profiles.yaml"
	ProfilesDBName      = "profiles.db"
	ConfigFileName      = "config.yaml"
	CredentialsFileName = ".credentials"
	LogFileName         = "wgconv.log"
	RunDirName          = "run"
)

// Default timeouts and intervals.
const (
	// RestartDelay is the pause between stopping and starting the kernel.
	RestartDelay = 1 * time.Second
	// StopTimeout is how long a kernel gets to exit after SIGTERM.
	StopTimeout = 5 * time.Second
	// StartupGrace is how long a freshly started kernel must survive
	// before it is reported as running.
	StartupGrace = 500 * time.Millisecond
)

// Profile store backends.
const (
	StoreYAML   = "yaml"
	StoreSQLite = "sqlite"
)

// ClipboardOption is the picker value that copies the result instead of
// writing it into a profile.
const ClipboardOption = "copy_clipboard"

// ConfigPlaceholder is shown in the empty config editor.
const ConfigPlaceholder = `[Interface]
PrivateKey = <your private key>
Address = 10.8.0.X/24
DNS = 1.1.1.1
MTU = 1420

[Peer]
PublicKey = <server public key>
PresharedKey = <optional preshared key>
AllowedIPs = 10.8.0.0/24
PersistentKeepalive = 25
Endpoint = example.com:51820`

package converter

import (
	"strconv"
	"strings"
)

// Fixed endpoint values.
const (
	EndpointType = "wireguard"
	EndpointTag  = "wg-ep"

	// DefaultMTU applies when Interface.MTU is absent or not an integer.
	DefaultMTU = 1408
	// DefaultPersistentKeepalive disables keepalives.
	DefaultPersistentKeepalive = 0
)

// Endpoint is the normalized tunnel descriptor handed to the proxy core.
type Endpoint struct {
	Type       string
	Tag        string
	System     bool
	MTU        int
	Address    []string
	PrivateKey string
	Peers      []Peer

	// Extra holds extension fields. Any key that collides with a fixed
	// field is overwritten by the fixed value when encoded.
	Extra Fields
}

// Peer is the single remote peer of an Endpoint.
type Peer struct {
	Address                     string   `json:"address"`
	Port                        int      `json:"port"`
	PublicKey                   string   `json:"public_key"`
	PreSharedKey                string   `json:"pre_shared_key"`
	AllowedIPs                  []string `json:"allowed_ips"`
	PersistentKeepaliveInterval int      `json:"persistent_keepalive_interval"`
	Reserved                    [3]int   `json:"reserved"`
}

// Build maps parsed sections onto an Endpoint.
//
// Only the peer endpoint is mandatory: a missing [Peer] section, a missing
// Endpoint key, or an Endpoint without ':' yields a *MissingFieldError, and
// a non-numeric port yields an *InvalidPortError. Everything else falls back
// to empty strings or the documented defaults.
func Build(sections *Sections, ext Fields) (*Endpoint, error) {
	peerSection, ok := sections.Section(SectionPeer)
	if !ok {
		return nil, &MissingFieldError{Section: SectionPeer}
	}

	rawEndpoint, ok := peerSection.Get("Endpoint")
	if !ok {
		return nil, &MissingFieldError{Section: SectionPeer, Key: "Endpoint"}
	}

	host, port, err := splitEndpoint(rawEndpoint)
	if err != nil {
		return nil, err
	}

	iface, _ := sections.Section(SectionInterface)

	endpoint := &Endpoint{
		Type:       EndpointType,
		Tag:        EndpointTag,
		System:     true,
		MTU:        intOrDefault(iface.Value("MTU"), DefaultMTU),
		Address:    []string{iface.Value("Address")},
		PrivateKey: iface.Value("PrivateKey"),
		Peers: []Peer{{
			Address:                     host,
			Port:                        port,
			PublicKey:                   peerSection.Value("PublicKey"),
			PreSharedKey:                peerSection.Value("PresharedKey"),
			AllowedIPs:                  []string{peerSection.Value("AllowedIPs")},
			PersistentKeepaliveInterval: intOrDefault(peerSection.Value("PersistentKeepalive"), DefaultPersistentKeepalive),
		}},
	}
	if len(ext) > 0 {
		endpoint.Extra = append(Fields(nil), ext...)
	}

	return endpoint, nil
}

// splitEndpoint splits host:port on the first ':'.
func splitEndpoint(endpoint string) (string, int, error) {
	host, portText, found := strings.Cut(endpoint, ":")
	if !found {
		return "", 0, &MissingFieldError{
			Section: SectionPeer,
			Key:     "Endpoint",
			Reason:  "expected host:port",
		}
	}

	port, err := strconv.Atoi(strings.TrimSpace(portText))
	if err != nil {
		return "", 0, &InvalidPortError{Endpoint: endpoint, Port: portText, Err: err}
	}

	return host, port, nil
}

func intOrDefault(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// object lays the endpoint out in output order: extension fields first,
// then the fixed fields.
func (e *Endpoint) object() *object {
	obj := newObject()
	for _, field := range e.Extra {
		obj.set(field.Key, field.Value)
	}

	peers := e.Peers
	if peers == nil {
		peers = []Peer{}
	}

	obj.set("type", e.Type)
	obj.set("tag", e.Tag)
	obj.set("system", e.System)
	obj.set("mtu", e.MTU)
	obj.set("address", e.Address)
	obj.set("private_key", e.PrivateKey)
	obj.set("peers", peers)
	return obj
}

// MarshalJSON encodes the endpoint with stable key order.
func (e *Endpoint) MarshalJSON() ([]byte, error) {
	return e.object().MarshalJSON()
}

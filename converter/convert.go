package converter

// Convert parses raw WireGuard configuration text, builds the endpoint and
// renders it. ext may be nil.
func Convert(raw string, ext Fields) (string, error) {
	endpoint, err := Build(Parse(raw), ext)
	if err != nil {
		return "", err
	}
	return ToText(endpoint)
}

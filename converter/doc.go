// Package converter turns WireGuard client configurations into proxy-core
// endpoint documents.
//
// The package is organized around two steps:
//
//   - Parse: tokenizes `[Section]` / `key = value` text into Sections
//   - Build: maps the Interface and Peer sections onto an Endpoint
//
// Convert chains both steps and renders the result as an indented
// `{"endpoints": [...]}` document:
//
//	text, err := converter.Convert(raw, nil)
//	if errors.Is(err, converter.ErrMissingField) {
//	    // no [Peer] section, or no usable Endpoint
//	}
//
// # Leniency
//
// Parsing never fails. Unknown sections, stray lines and malformed headers
// are accepted as-is, and unparsable MTU or PersistentKeepalive values fall
// back to their defaults. Only the peer endpoint is strict: without a
// host:port pair there is nothing to dial, so Build returns a
// *MissingFieldError or *InvalidPortError instead of an endpoint.
//
// # Thread Safety
//
// Every function in this package is pure and allocates fresh values per
// call, so all of them are safe for concurrent use.
package converter

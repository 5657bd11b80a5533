// Package fixture embeds the sample station payload used by demo sessions
// and by the CLI when no payload file is given.
package fixture

import _ "embed"

//go:embed sample_activity.xml
var sampleActivityXML []byte

// SampleActivityXML returns a copy of the embedded sample payload
// (activity IB31319, four stations).
func SampleActivityXML() []byte {
	return append([]byte(nil), sampleActivityXML...)
}

// Package source parses station payloads into an activity and its ordered
// stations. Payloads arrive markup-encoded (XML, as the host stores them) or
// structured (JSON, or a value already decoded from an "open" message).
package source

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/matthewbaird/stationcu/internal/types"
)

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed station payload")

// Payload is the normalized result of parsing.
type Payload struct {
	Activity types.Activity
	Stations []types.Station
}

// LineCount returns the number of material lines across all stations.
func (p Payload) LineCount() int {
	n := 0
	for _, s := range p.Stations {
		n += len(s.Lines)
	}
	return n
}

// ── Raw document shapes ─────────────────────────────────────────────────────

type activityDoc struct {
	XMLName  xml.Name     `xml:"activity" json:"-"`
	ID       flexString   `xml:"activityId" json:"activityId"`
	Type     flexString   `xml:"activityType" json:"activityType"`
	Stations []stationDoc `xml:"stations>station" json:"stations"`
}

type stationDoc struct {
	ID               flexString `xml:"stationId" json:"stationId"`
	Name             flexString `xml:"stationName" json:"stationName"`
	Location         flexString `xml:"location" json:"location"`
	Status           flexString `xml:"status" json:"status"`
	CheckedOutByName flexString `xml:"checkedOutByName" json:"checkedOutByName"`
	CheckedOutByID   flexString `xml:"checkedOutByID" json:"checkedOutByID"`
	Lines            []lineDoc  `xml:"stationCUs>stationCU" json:"stationCUs"`
}

type lineDoc struct {
	StockNumber       flexString `xml:"stationCUstockNumber" json:"stationCUstockNumber"`
	Description       flexString `xml:"stationCUDescription" json:"stationCUDescription"`
	ID                flexString `xml:"stationCUId" json:"stationCUId"`
	Type              flexString `xml:"stationCUType" json:"stationCUType"`
	QuantityRequired  flexString `xml:"stationCUQuantityRequired" json:"stationCUQuantityRequired"`
	QuantityInstalled flexString `xml:"stationCUQuantityInstalled" json:"stationCUQuantityInstalled"`
	Disposition       flexString `xml:"stationCUPlannedDisposition" json:"stationCUPlannedDisposition"`
	NotUsed           flexString `xml:"stationCUMaterialWasNotUsed" json:"stationCUMaterialWasNotUsed"`
}

// flexString accepts JSON strings, numbers and booleans as text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

func (f flexString) String() string { return strings.TrimSpace(string(f)) }

// ── Parsing ─────────────────────────────────────────────────────────────────

// Parse decodes an XML or JSON payload. The format is chosen by the first
// non-space byte.
func Parse(raw []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Payload{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	var doc activityDoc
	switch trimmed[0] {
	case '<':
		if err := xml.Unmarshal(trimmed, &doc); err != nil {
			return Payload{}, fmt.Errorf("%w: xml: %v", ErrMalformed, err)
		}
	case '{':
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Payload{}, fmt.Errorf("%w: json: %v", ErrMalformed, err)
		}
	case '[':
		if err := json.Unmarshal(trimmed, &doc.Stations); err != nil {
			return Payload{}, fmt.Errorf("%w: json: %v", ErrMalformed, err)
		}
	default:
		return Payload{}, fmt.Errorf("%w: unrecognized format", ErrMalformed)
	}
	return normalize(doc)
}

// FromValue parses a payload embedded in an "open" activity property. Strings
// are parsed as XML/JSON text; decoded objects and arrays are re-encoded first.
func FromValue(v any) (Payload, error) {
	switch val := v.(type) {
	case nil:
		return Payload{}, fmt.Errorf("%w: no payload", ErrMalformed)
	case string:
		return Parse([]byte(val))
	case []byte:
		return Parse(val)
	case json.RawMessage:
		return Parse(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Parse(b)
}

func normalize(doc activityDoc) (Payload, error) {
	p := Payload{
		Activity: types.Activity{ID: doc.ID.String(), Type: doc.Type.String()},
		Stations: make([]types.Station, 0, len(doc.Stations)),
	}
	seen := make(map[string]bool, len(doc.Stations))
	for i, sd := range doc.Stations {
		st, err := normalizeStation(sd)
		if err != nil {
			return Payload{}, fmt.Errorf("%w: station %d: %v", ErrMalformed, i, err)
		}
		if seen[st.ID] {
			return Payload{}, fmt.Errorf("%w: duplicate station id %q", ErrMalformed, st.ID)
		}
		seen[st.ID] = true
		p.Stations = append(p.Stations, st)
	}
	return p, nil
}

func normalizeStation(sd stationDoc) (types.Station, error) {
	id := sd.ID.String()
	if id == "" {
		return types.Station{}, errors.New("missing stationId")
	}
	status, err := types.ParseStationStatus(sd.Status.String())
	if err != nil {
		return types.Station{}, err
	}
	st := types.Station{
		ID:       id,
		Name:     sd.Name.String(),
		Location: sd.Location.String(),
		Status:   status,
		Lines:    make([]types.MaterialLine, 0, len(sd.Lines)),
	}
	// Checkout identity is only meaningful while checked out.
	if status == types.StatusCheckedOut {
		holder := types.Actor{ID: sd.CheckedOutByID.String(), Name: sd.CheckedOutByName.String()}
		if holder.ID == "" && holder.Name != "" {
			holder.ID = holder.Name
		}
		if !holder.IsZero() {
			st.CheckedOutBy = &holder
		}
	}

	lineIDs := make(map[string]bool, len(sd.Lines))
	for j, ld := range sd.Lines {
		line, err := normalizeLine(ld)
		if err != nil {
			return types.Station{}, fmt.Errorf("line %d: %v", j, err)
		}
		if lineIDs[line.ID] {
			return types.Station{}, fmt.Errorf("duplicate line id %q", line.ID)
		}
		lineIDs[line.ID] = true
		st.Lines = append(st.Lines, line)
	}
	return st, nil
}

func normalizeLine(ld lineDoc) (types.MaterialLine, error) {
	id := ld.ID.String()
	if id == "" {
		return types.MaterialLine{}, errors.New("missing stationCUId")
	}
	required, err := parseQuantity(ld.QuantityRequired.String())
	if err != nil {
		return types.MaterialLine{}, fmt.Errorf("quantity required: %v", err)
	}
	installed, err := parseQuantity(ld.QuantityInstalled.String())
	if err != nil {
		return types.MaterialLine{}, fmt.Errorf("quantity installed: %v", err)
	}
	disposition, err := types.ParseDisposition(ld.Disposition.String())
	if err != nil {
		return types.MaterialLine{}, err
	}
	notUsed, err := parseBool(ld.NotUsed.String())
	if err != nil {
		return types.MaterialLine{}, fmt.Errorf("not used flag: %v", err)
	}
	return types.MaterialLine{
		ID:                id,
		StockNumber:       ld.StockNumber.String(),
		Description:       ld.Description.String(),
		Type:              ld.Type.String(),
		QuantityRequired:  required,
		QuantityInstalled: installed,
		Disposition:       disposition,
		NotUsed:           notUsed,
	}, nil
}

// ParseQuantity converts user or payload text into a non-negative integer.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty quantity")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative quantity: %d", n)
	}
	return n, nil
}

// parseQuantity treats an absent payload quantity as zero.
func parseQuantity(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return ParseQuantity(s)
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(s))
}

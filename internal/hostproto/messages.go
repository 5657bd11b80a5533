package hostproto

import (
	"bytes"
	"encoding/json"
)

// APIVersion is sent with every outbound message.
const APIVersion = 1

// Method names.
const (
	MethodReady   = "ready"
	MethodInitEnd = "initEnd"
	MethodClose   = "close"
	MethodUpdate  = "update"
	MethodInit    = "init"
	MethodOpen    = "open"
)

// ── Widget → Host messages ──────────────────────────────────────────────────

// ReadyMessage announces the widget and its display preferences.
type ReadyMessage struct {
	APIVersion            int    `json:"apiVersion"`
	Method                string `json:"method"`
	ShowHeader            bool   `json:"showHeader"`
	EnableBackButton      bool   `json:"enableBackButton"`
	SendMessageAsJsObject bool   `json:"sendMessageAsJsObject"`
}

// InitEndMessage acknowledges "init".
type InitEndMessage struct {
	APIVersion int    `json:"apiVersion"`
	Method     string `json:"method"`
}

// CloseMessage asks the host to tear down the widget.
type CloseMessage struct {
	APIVersion int    `json:"apiVersion"`
	Method     string `json:"method"`
	IsSuccess  bool   `json:"isSuccess"`
}

// UpdateMessage sends changed activity properties back to the host.
type UpdateMessage struct {
	APIVersion int            `json:"apiVersion"`
	Method     string         `json:"method"`
	Activity   map[string]any `json:"activity"`
}

// NewReady builds the outbound "ready" message.
func NewReady(apiVersion int) ReadyMessage {
	return ReadyMessage{
		APIVersion:            apiVersion,
		Method:                MethodReady,
		ShowHeader:            true,
		EnableBackButton:      true,
		SendMessageAsJsObject: true,
	}
}

// ── Host → Widget messages ──────────────────────────────────────────────────

// Inbound is a normalized host message. Only Method is guaranteed.
type Inbound struct {
	Method       string            `json:"method"`
	APIVersion   int               `json:"apiVersion,omitempty"`
	Activity     json.RawMessage   `json:"activity,omitempty"`
	ActivityList []json.RawMessage `json:"activityList,omitempty"`
	User         *User             `json:"user,omitempty"`
}

// User is the host's signed-in user, sent with "open".
type User struct {
	Login string `json:"ulogin"`
	Name  string `json:"uname"`
}

// OpenMessage is delivered to the Listener for every "open" carrying data.
type OpenMessage struct {
	Activity map[string]any
	User     *User
}

// Normalize decodes a raw frame. A frame may hold the message object itself
// or a JSON string whose content is the message object. Frames that fail to
// decode, or that lack a non-empty string method, are reported as !ok.
func Normalize(frame []byte) (Inbound, bool) {
	frame = bytes.TrimSpace(frame)
	if len(frame) > 0 && frame[0] == '"' {
		var inner string
		if err := json.Unmarshal(frame, &inner); err != nil {
			return Inbound{}, false
		}
		frame = bytes.TrimSpace([]byte(inner))
	}
	if len(frame) == 0 || frame[0] != '{' {
		return Inbound{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return Inbound{}, false
	}
	var in Inbound
	if raw, ok := fields["method"]; !ok || json.Unmarshal(raw, &in.Method) != nil || in.Method == "" {
		return Inbound{}, false
	}
	if raw, ok := fields["apiVersion"]; ok {
		_ = json.Unmarshal(raw, &in.APIVersion)
	}
	if raw, ok := fields["activity"]; ok {
		in.Activity = raw
	}
	if raw, ok := fields["activityList"]; ok {
		_ = json.Unmarshal(raw, &in.ActivityList)
	}
	if raw, ok := fields["user"]; ok {
		var u User
		if json.Unmarshal(raw, &u) == nil && (u.Login != "" || u.Name != "") {
			in.User = &u
		}
	}
	return in, true
}

// ExtractActivity picks the activity carried by an "open": the singular
// activity when present, else the first element of activityList.
func (in Inbound) ExtractActivity() (map[string]any, bool) {
	if a, ok := decodeObject(in.Activity); ok {
		return a, true
	}
	if len(in.ActivityList) > 0 {
		return decodeObject(in.ActivityList[0])
	}
	return nil, false
}

func decodeObject(raw json.RawMessage) (map[string]any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

package models

import (
	"bytes"
	"encoding/json"
)

// UserRef is a weak reference to a user. The backend sends either a bare
// id or a populated object depending on the endpoint.
type UserRef struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = UserRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		*r = UserRef{}
		return json.Unmarshal(data, &r.ID)
	}
	var aux struct {
		ID     string `json:"_id"`
		AltID  string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ID = aux.ID
	if r.ID == "" {
		r.ID = aux.AltID
	}
	r.Name = aux.Name
	r.Avatar = aux.Avatar
	return nil
}

// MarshalJSON writes an unpopulated reference back as a bare id.
func (r UserRef) MarshalJSON() ([]byte, error) {
	if r.Name == "" && r.Avatar == "" {
		return json.Marshal(r.ID)
	}
	type alias UserRef
	return json.Marshal(alias(r))
}

// DisplayName returns the referenced name or fallback when unpopulated.
func (r UserRef) DisplayName(fallback string) string {
	if r.Name != "" {
		return r.Name
	}
	return fallback
}

func containsRef(refs []UserRef, id string) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}

func withoutRef(refs []UserRef, id string) []UserRef {
	out := make([]UserRef, 0, len(refs))
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

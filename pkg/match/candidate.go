// Package match scores existing athlete records against a submitted search
// target and ranks the results by confidence.
package match

import (
	"encoding/json"
)

// Candidate is an existing record evaluated for identity with a search
// target. Every known field is optional; unknown profile fields are kept in
// Extra and written back unchanged.
type Candidate struct {
	ID           Text      `json:"id,omitempty"`
	FirstName    Text      `json:"firstName,omitempty"`
	LastName     Text      `json:"lastName,omitempty"`
	FullName     Text      `json:"fullName,omitempty"`
	EmailAddress Text      `json:"emailAddress,omitempty"`
	PhoneNumber  Text      `json:"phoneNumber,omitempty"`
	SchoolID     Text      `json:"schoolId,omitempty"`
	Position     Text      `json:"position,omitempty"`
	ClassYear    Text      `json:"classYear,omitempty"`
	UpdatedAt    Timestamp `json:"updatedAt"`

	Extra map[string]any `json:"-"`
}

type candidateFields Candidate

var candidateKeys = map[string]bool{
	"id": true, "firstName": true, "lastName": true, "fullName": true,
	"emailAddress": true, "email": true, "phoneNumber": true, "schoolId": true,
	"position": true, "classYear": true, "updatedAt": true,
}

// UnmarshalJSON decodes the known fields leniently and collects the rest
// into Extra. "email" is accepted as a fallback for "emailAddress".
func (c *Candidate) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var f candidateFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if v, ok := raw["email"]; ok && !f.EmailAddress.Present() {
		_ = f.EmailAddress.UnmarshalJSON(v)
	}
	*c = Candidate(f)
	c.Extra = extraFields(raw, candidateKeys)
	return nil
}

func extraFields(raw map[string]json.RawMessage, known ...map[string]bool) map[string]any {
	var extra map[string]any
	for k, v := range raw {
		skip := false
		for _, set := range known {
			if set[k] {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = val
	}
	return extra
}

// MarshalJSON writes the present known fields and Extra as one flat object.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.fields())
}

func (c Candidate) fields() map[string]any {
	out := make(map[string]any, len(c.Extra)+10)
	for k, v := range c.Extra {
		out[k] = v
	}
	put := func(key string, t Text) {
		if s, ok := t.Value(); ok {
			out[key] = s
		}
	}
	put("id", c.ID)
	put("firstName", c.FirstName)
	put("lastName", c.LastName)
	put("fullName", c.FullName)
	put("emailAddress", c.EmailAddress)
	put("phoneNumber", c.PhoneNumber)
	put("schoolId", c.SchoolID)
	put("position", c.Position)
	put("classYear", c.ClassYear)
	if !c.UpdatedAt.IsZero() {
		out["updatedAt"] = c.UpdatedAt
	}
	return out
}

// Criteria is the submitted search target.
type Criteria struct {
	FirstName   Text `json:"firstName,omitempty"`
	LastName    Text `json:"lastName,omitempty"`
	FullName    Text `json:"fullName,omitempty"`
	Email       Text `json:"email,omitempty"`
	PhoneNumber Text `json:"phoneNumber,omitempty"`
	SchoolID    Text `json:"schoolId,omitempty"`
}

// MatchType records how a candidate was found.
type MatchType string

const (
	EmailMatch        MatchType = "email_match"
	NameSchool        MatchType = "name_school"
	NamePhone         MatchType = "name_phone"
	PartialNameSchool MatchType = "partial_name_school"
	PartialNamePhone  MatchType = "partial_name_phone"
	NamePartial       MatchType = "name_partial"
	PhoneOnly         MatchType = "phone_only"
)

// MatchTypes lists the known match types in ranking priority order.
var MatchTypes = []MatchType{
	EmailMatch,
	NameSchool,
	NamePhone,
	PartialNameSchool,
	PartialNamePhone,
	NamePartial,
	PhoneOnly,
}

// Priority returns the tie-break rank of t: 0 for email_match, increasing
// down the list, and len(MatchTypes) for anything unrecognized.
func (t MatchType) Priority() int {
	for i, mt := range MatchTypes {
		if mt == t {
			return i
		}
	}
	return len(MatchTypes)
}

// BaseScore returns the starting score for candidates found by t.
func (t MatchType) BaseScore() int {
	if s, ok := BaseScores[t]; ok {
		return s
	}
	return BaseUnknown
}

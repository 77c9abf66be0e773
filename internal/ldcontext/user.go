// Package ldcontext defines the evaluation-time user representation: the
// fixed built-in attributes every rule clause may reference by name, plus an
// open bag of custom attributes.
package ldcontext

import (
	"math"
	"strconv"
)

// User is the subject of a flag evaluation. Key is the only required
// attribute; every other built-in is optional and absent when its zero
// value, except Anonymous, which GetAttribute always reports as present
// (false when unset). Anonymous users are never counted in analytics, but that policy
// lives above this package — User only carries the flag.
type User struct {
	Key       string         `json:"key"`
	Secondary string         `json:"secondary,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Country   string         `json:"country,omitempty"`
	FirstName string         `json:"firstName,omitempty"`
	LastName  string         `json:"lastName,omitempty"`
	Name      string         `json:"name,omitempty"`
	Avatar    string         `json:"avatar,omitempty"`
	Email     string         `json:"email,omitempty"`
	Anonymous bool           `json:"anonymous,omitempty"`
	Custom    map[string]any `json:"custom,omitempty"`
}

// builtins lists every attribute name a clause can address without falling
// through to Custom, matched case-sensitively against the wire format.
var builtins = map[string]func(*User) (any, bool){
	"key":       func(u *User) (any, bool) { return u.Key, u.Key != "" },
	"secondary": func(u *User) (any, bool) { return u.Secondary, u.Secondary != "" },
	"ip":        func(u *User) (any, bool) { return u.IP, u.IP != "" },
	"country":   func(u *User) (any, bool) { return u.Country, u.Country != "" },
	"firstName": func(u *User) (any, bool) { return u.FirstName, u.FirstName != "" },
	"lastName":  func(u *User) (any, bool) { return u.LastName, u.LastName != "" },
	"name":      func(u *User) (any, bool) { return u.Name, u.Name != "" },
	"avatar":    func(u *User) (any, bool) { return u.Avatar, u.Avatar != "" },
	"email":     func(u *User) (any, bool) { return u.Email, u.Email != "" },
	"anonymous": func(u *User) (any, bool) { return u.Anonymous, true },
}

// GetAttribute resolves a clause attribute name against the user: built-ins
// first, then the custom attribute map. The bool is false when the
// attribute was never set, which clause operators treat as a non-match
// rather than an error.
func (u *User) GetAttribute(name string) (any, bool) {
	if u == nil {
		return nil, false
	}
	if get, ok := builtins[name]; ok {
		return get(u)
	}
	if u.Custom == nil {
		return nil, false
	}
	v, ok := u.Custom[name]
	return v, ok
}

// BucketableAttribute is like GetAttribute but only returns values the
// bucketing hash can consume: strings as-is, integers (including whole-
// number floats, since JSON numbers decode that way) stringified. Any other
// value — missing attribute, non-whole float, bool, array, object, or null
// — returns false; rollout bucketing treats that as bucket 0, not a
// fallback to the user's key.
func (u *User) BucketableAttribute(name string) (string, bool) {
	v, ok := u.GetAttribute(name)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.Itoa(int(val)), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		if val == math.Trunc(val) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return "", false
	default:
		return "", false
	}
}

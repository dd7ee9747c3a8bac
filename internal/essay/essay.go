// Package essay defines the essay record, its visibility and the
// loosely-typed visibility flag accepted from clients.
package essay

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// Visibility is either public or private. Private is the default.
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

var (
	// ErrEmpty is returned when both title and content are empty.
	ErrEmpty = errors.New("title and content cannot both be empty")

	// ErrNotText is returned for a title or content sent as an object or array.
	ErrNotText = errors.New("title and content must be scalar values")
)

// Essay is a stored note. UserID is nil for essays created before
// ownership existed.
type Essay struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    *int64    `json:"user_id"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Visibility returns the essay visibility.
func (e *Essay) Visibility() Visibility {
	if e.IsPublic {
		return Public
	}
	return Private
}

// Fields are the caller-controlled columns of an essay.
type Fields struct {
	Title    string
	Content  string
	IsPublic bool
}

// Validate checks the creation rule: title or content must be set.
func (f Fields) Validate() error {
	if f.Title == "" && f.Content == "" {
		return ErrEmpty
	}
	return nil
}

// Text decodes a title or content field. Numbers keep their decimal form
// and true becomes "1"; null, false and 0 leave the field empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(val)
	case bool:
		*t = ""
		if val {
			*t = "1"
		}
	case float64:
		*t = ""
		if val != 0 {
			*t = Text(strconv.FormatFloat(val, 'f', -1, 64))
		}
	default:
		return ErrNotText
	}
	return nil
}

// PublicFlag decodes the is_public field of a request body. Only true,
// "true", 1 and "1" mean public, every other value (absent included) means private.
type PublicFlag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *PublicFlag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = PublicFlag(IsPublicValue(raw))
	return nil
}

// IsPublicValue applies the visibility coercion to a decoded JSON value.
func IsPublicValue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "1"
	case float64:
		return val == 1
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 1
	case int:
		return val == 1
	case int64:
		return val == 1
	}
	return false
}

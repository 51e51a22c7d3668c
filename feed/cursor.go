package feed

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/validation"
)

// Cursor marks the last item of a page. Its text form is opaque to clients.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func cursorOf(post *contents.Post) *Cursor {
	return &Cursor{CreatedAt: post.CreatedAt.UTC(), ID: post.ID}
}

func (c Cursor) String() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (c Cursor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cursor) UnmarshalText(text []byte) error {
	parsed, err := ParseCursor(string(text))
	if err != nil {
		return err
	}

	if parsed == nil {
		*c = Cursor{}

		return nil
	}

	*c = *parsed

	return nil
}

func (c *Cursor) pageKey() *contents.PageKey {
	if c == nil {
		return nil
	}

	return &contents.PageKey{CreatedAt: c.CreatedAt, ID: c.ID}
}

// ParseCursor decodes the text form of a cursor. An empty string is the
// start of the feed and yields a nil cursor.
func ParseCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	malformed := &validation.Error{Field: "cursor", Reason: "malformed"}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, malformed
	}

	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, malformed
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, malformed
	}

	return &Cursor{CreatedAt: createdAt.UTC(), ID: id}, nil
}

// Package reference encodes message identifiers into opaque deep-link
// payloads and decodes them back. Payloads are URL-safe base64 over the
// textual form "get-{absoluteID}" or "get-{absoluteStart}-{absoluteEnd}",
// where an absolute id is the message-id offset multiplied by the absolute
// value of the storage channel anchor.
package reference

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/filestorebot/filestorebot/internal/models"
)

// payloadDiscriminator is the first field of every encoded payload. It is
// distinct from the "verify-" prefix reserved for redemption deep-links;
// base64 output additionally can never start with that prefix.
const payloadDiscriminator = "get"

var encoding = base64.RawURLEncoding

// Codec translates between message-id offsets and opaque reference strings
// for one fixed channel anchor.
type Codec struct {
	anchor int64
}

// NewCodec creates a codec bound to the storage channel anchor.
// The anchor must be non-zero; channel identifiers are negative in
// Telegram's scheme, so the absolute value is used for arithmetic.
func NewCodec(anchor int64) (*Codec, error) {
	if anchor == 0 {
		return nil, fmt.Errorf("reference codec requires a non-zero channel anchor")
	}
	return &Codec{anchor: anchor}, nil
}

// Anchor returns the channel anchor the codec is bound to
func (c *Codec) Anchor() int64 {
	return c.anchor
}

func (c *Codec) absAnchor() int64 {
	if c.anchor < 0 {
		return -c.anchor
	}
	return c.anchor
}

// EncodeSingle produces the opaque reference for one message-id offset
func (c *Codec) EncodeSingle(offset int64) string {
	payload := fmt.Sprintf("%s-%d", payloadDiscriminator, offset*c.absAnchor())
	return encoding.EncodeToString([]byte(payload))
}

// EncodeRange produces the opaque reference for an inclusive offset range.
// The range form is preserved even when start == end so the reference
// round-trips to the same shape it was encoded from.
func (c *Codec) EncodeRange(start, end int64) string {
	abs := c.absAnchor()
	payload := fmt.Sprintf("%s-%d-%d", payloadDiscriminator, start*abs, end*abs)
	return encoding.EncodeToString([]byte(payload))
}

// Decode parses an opaque reference string back into a FileReference.
// Malformed input of any kind (bad base64, wrong discriminator, wrong field
// count, non-numeric fields, an absolute id that is not an exact multiple
// of the anchor) yields models.ErrInvalidReference.
func (c *Codec) Decode(s string) (*models.FileReference, error) {
	// Tolerate padded variants of the same payload.
	raw, err := encoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, models.ErrInvalidReference
	}

	fields := strings.Split(string(raw), "-")
	if fields[0] != payloadDiscriminator {
		return nil, models.ErrInvalidReference
	}

	switch len(fields) {
	case 2:
		offset, err := c.parseOffset(fields[1])
		if err != nil {
			return nil, err
		}
		return &models.FileReference{Anchor: c.anchor, Start: offset, End: offset}, nil
	case 3:
		start, err := c.parseOffset(fields[1])
		if err != nil {
			return nil, err
		}
		end, err := c.parseOffset(fields[2])
		if err != nil {
			return nil, err
		}
		return &models.FileReference{Anchor: c.anchor, Start: start, End: end, Range: true}, nil
	default:
		return nil, models.ErrInvalidReference
	}
}

// parseOffset recovers a message-id offset from its absolute form. The
// division must be exact; a remainder means the payload was not produced
// by this codec and is rejected rather than truncated.
func (c *Codec) parseOffset(field string) (int64, error) {
	absoluteID, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, models.ErrInvalidReference
	}
	abs := c.absAnchor()
	if absoluteID <= 0 || absoluteID%abs != 0 {
		return 0, models.ErrInvalidReference
	}
	return absoluteID / abs, nil
}

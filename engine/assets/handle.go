package assets

import (
	"fmt"
	"strconv"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Handle is the stable identifier of a registered asset. Consumers store
// handles, never paths or payload pointers.
type Handle uint64

// InvalidHandle is the zero value and is never minted.
const InvalidHandle Handle = Handle(core.InvalidID)

// NewHandle mints a fresh random handle.
func NewHandle() Handle {
	return Handle(core.IdentifierNew())
}

// HandleFromString builds a handle deterministically from s.
func HandleFromString(s string) Handle {
	return Handle(core.IdentifierFromString(s))
}

func HandleFromUint64(v uint64) Handle {
	return Handle(v)
}

// ParseHandle parses the 16 hex digit form produced by String.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return InvalidHandle, fmt.Errorf("invalid handle %q: %w", s, err)
	}
	return Handle(v), nil
}

func (h Handle) Uint64() uint64 {
	return uint64(h)
}

func (h Handle) IsValid() bool {
	return h != InvalidHandle
}

func (h Handle) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	v, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

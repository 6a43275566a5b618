package bitcoin

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

const (
	// These values are place holders in the template for where the public key values should be
	// swapped in when instantiating the template.
	OP_PUBKEY     = 0xb8 // OP_NOP9 - placeholder for a public key
	OP_PUBKEYHASH = 0xb9 // OP_NOP10 - placeholder for a public key hash
)

var (
	PKHTemplate = Template{OP_DUP, OP_HASH160, OP_PUBKEYHASH, OP_EQUALVERIFY, OP_CHECKSIG}
	PKTemplate  = Template{OP_PUBKEY, OP_CHECKSIG}
)

// Template represents the function of a locking script without the specific public key or hash
// values that make it concrete. Used here only as a matcher: the standard-form filters
// (filters.go) recognize scripts by shape, they never construct one.
type Template Script

func (t Template) PubKeyCount() uint32 {
	var result uint32
	for _, b := range t {
		if b == OP_PUBKEY || b == OP_PUBKEYHASH {
			result++
		}
	}
	return result
}

// RequiredSignatures is the number of signatures required to unlock the template.
// Note: Only supports PKH, PK, and MultiPKH.
func (t Template) RequiredSignatures() (uint32, error) {
	if bytes.Equal(t, PKHTemplate) || bytes.Equal(t, PKTemplate) {
		return 1, nil
	}

	// Assume this is a multi-pkh accumulator script.
	buf := bytes.NewReader(t)
	var previousItems []*ScriptItem
	for {
		item, err := ParseScript(buf)
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, errors.Wrap(err, "parse")
		}

		if item.OpCode == OP_LESSTHANOREQUAL {
			break
		}

		// Save last two items
		previousItems = append(previousItems, item)
		if len(previousItems) > 2 {
			previousItems = previousItems[1:]
		}
	}

	if len(previousItems) != 2 {
		return 0, errors.Wrap(ErrUnknownScriptTemplate, "not enough items")
	}

	if previousItems[1].Type != ScriptItemTypeOpCode || previousItems[1].OpCode != OP_FROMALTSTACK {
		return 0, errors.Wrap(ErrUnknownScriptTemplate, "not OP_FROMALTSTACK")
	}

	requiredSigners, err := ScriptNumberValue(previousItems[0])
	if err != nil {
		return 0, errors.Wrap(err, "script number")
	}

	if requiredSigners < 1 || requiredSigners > 0xffffffff {
		return 0, errors.Wrapf(ErrUnknownScriptTemplate, "require signer value %d", requiredSigners)
	}

	return uint32(requiredSigners), nil
}

func (t Template) String() string {
	return ScriptToString(Script(t))
}

func (t Template) Bytes() []byte {
	return t
}

// MarshalText returns the text encoding of the raw address.
// Implements encoding.TextMarshaler interface.
func (t Template) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a text encoded raw address and sets the value of this object.
// Implements encoding.TextUnmarshaler interface.
func (t *Template) UnmarshalText(text []byte) error {
	b, err := StringToScript(string(text))
	if err != nil {
		return errors.Wrap(err, "script to string")
	}

	return t.UnmarshalBinary(b)
}

// MarshalBinary returns the binary encoding of the raw address.
// Implements encoding.BinaryMarshaler interface.
func (t Template) MarshalBinary() ([]byte, error) {
	return t.Bytes(), nil
}

// UnmarshalBinary parses a binary encoded raw address and sets the value of this object.
// Implements encoding.BinaryUnmarshaler interface.
func (t *Template) UnmarshalBinary(data []byte) error {
	// Copy byte slice in case it is reused after this call.
	*t = make([]byte, len(data))
	copy(*t, data)
	return nil
}

// Scan converts from a database column.
func (t *Template) Scan(data interface{}) error {
	if data == nil {
		*t = nil
		return nil
	}

	b, ok := data.([]byte)
	if !ok {
		return errors.New("Template db column not bytes")
	}

	if len(b) == 0 {
		*t = nil
		return nil
	}

	// Copy byte slice because it will be wiped out by the database after this call.
	*t = make([]byte, len(b))
	copy(*t, b)

	return nil
}

package bytecode

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so the same block always encodes to the
// same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// blockFile is the on-disk form of a cached block.
type blockFile struct {
	Magic   []byte   `cbor:"1,keyasint"`
	Version uint16   `cbor:"2,keyasint"`
	Name    string   `cbor:"3,keyasint,omitempty"`
	Source  string   `cbor:"4,keyasint,omitempty"`
	Words   []uint32 `cbor:"5,keyasint"`
	Idents  []string `cbor:"6,keyasint,omitempty"`
}

// MarshalBlock serializes a Block to CBOR bytes. source is stored alongside
// so a cache can be checked against the script it was compiled from.
func MarshalBlock(b *Block, source string) ([]byte, error) {
	return cborEncMode.Marshal(&blockFile{
		Magic:   Magic,
		Version: FormatVersion,
		Name:    b.Name,
		Source:  source,
		Words:   b.Words,
		Idents:  b.Idents,
	})
}

// UnmarshalBlock deserializes a Block from CBOR bytes and validates it.
// It returns the stored source text as well.
func UnmarshalBlock(data []byte) (*Block, string, error) {
	var f blockFile
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("bytecode: unmarshal block: %w", err)
	}
	if !bytes.Equal(f.Magic, Magic) {
		return nil, "", fmt.Errorf("bytecode: bad magic %q", f.Magic)
	}
	if f.Version != FormatVersion {
		return nil, "", fmt.Errorf("bytecode: unsupported version %d (want %d)", f.Version, FormatVersion)
	}
	b := &Block{Name: f.Name, Words: f.Words, Idents: f.Idents}
	if err := b.Validate(); err != nil {
		return nil, "", err
	}
	return b, f.Source, nil
}

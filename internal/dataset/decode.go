package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
)

// Decoder turns a raw payload into company records.
type Decoder interface {
	CanDecode(name string) bool
	Decode(r io.Reader) ([]Company, error)
}

var decoders []Decoder

// RegisterDecoder adds a decoder implementation to the registry.
func RegisterDecoder(d Decoder) {
	decoders = append(decoders, d)
}

// DecoderFor selects a decoder by the location's extension. Unknown
// extensions fall back to comma-separated values.
func DecoderFor(location string) Decoder {
	name := strings.ToLower(location)
	if i := strings.IndexAny(name, "?#"); i >= 0 && strings.Contains(name, "://") {
		name = name[:i]
	}
	for _, d := range decoders {
		if d.CanDecode(name) {
			return d
		}
	}
	return csvDecoder{comma: ','}
}

func init() {
	RegisterDecoder(csvDecoder{comma: ','})
	RegisterDecoder(csvDecoder{comma: '\t'})
	RegisterDecoder(xlsxDecoder{})
	RegisterDecoder(parquetDecoder{})
}

type csvDecoder struct {
	comma rune
}

func (d csvDecoder) CanDecode(name string) bool {
	ext := path.Ext(name)
	if d.comma == '\t' {
		return ext == ".tsv"
	}
	return ext == ".csv"
}

func (d csvDecoder) Decode(r io.Reader) ([]Company, error) {
	cr := csv.NewReader(r)
	cr.Comma = d.comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty payload: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	// Read does not reuse records, so each row stays valid after the next call.
	return parseTable(header, cr.Read)
}

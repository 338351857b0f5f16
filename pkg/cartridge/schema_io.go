package cartridge

import "bytes"

func jsonschemaReader(raw []byte) *bytes.Reader {
	return bytes.NewReader(raw)
}

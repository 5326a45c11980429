package serializer

import "unsafe"

// byteAddr returns the address of a byte slice's first element, used only
// to compute alignment padding in AllocateWritable.
func byteAddr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

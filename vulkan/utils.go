package vulkan

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// toBytes views lenInBytes of mapped memory at ptr as a byte slice.
func toBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	return unsafe.Slice((*byte)(ptr), lenInBytes)
}

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	for i := range list {
		list[i] = safeString(list[i])
	}
	return list
}

package helpers

import "strings"

// Joins the untouched slices of a unit and the text spliced between them.
// The final length is known up front so the buffer is allocated once.
type Joiner struct {
	strings  []joinerString
	bytes    []joinerBytes
	length  uint32
}

type joinerString struct {
	data   string
	offset uint32
}

type joinerBytes struct {
	data   []byte
	offset uint32
}

func (j *Joiner) AddString(data string) {
	j.strings = append(j.strings, joinerString{data, j.length})
	j.length += uint32(len(data))
}

func (j *Joiner) AddBytes(data []byte) {
	j.bytes = append(j.bytes, joinerBytes{data, j.length})
	j.length += uint32(len(data))
}

func (j *Joiner) Length() uint32 {
	return j.length
}

// Appends n spaces so that a replaced span keeps its original byte length
func (j *Joiner) AddPadding(n int) {
	if n > 0 {
		j.AddString(strings.Repeat(" ", n))
	}
}

func (j *Joiner) Done() []byte {
	if len(j.strings) == 0 && len(j.bytes) == 1 && j.bytes[0].offset == 0 {
		// No need to allocate if there was only a single byte array written
		return j.bytes[0].data
	}
	buffer := make([]byte, j.length)
	for _, item := range j.strings {
		copy(buffer[item.offset:], item.data)
	}
	for _, item := range j.bytes {
		copy(buffer[item.offset:], item.data)
	}
	return buffer
}

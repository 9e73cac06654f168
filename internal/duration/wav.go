package duration

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// wavDuration reads RIFF chunks until it has both the fmt byte rate and the
// data chunk size.
func wavDuration(r io.ReadSeeker) (time.Duration, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, fmt.Errorf("read riff header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE file")
	}

	var (
		byteRate uint32
		dataSize uint32
		haveData bool
	)
	for !haveData || byteRate == 0 {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return 0, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		switch id {
		case "fmt ":
			if size < 16 {
				return 0, errors.New("short fmt chunk")
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			byteRate = binary.LittleEndian.Uint32(body[8:12])
			if size%2 == 1 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return 0, err
				}
			}
			continue
		case "data":
			dataSize = size
			haveData = true
		}
		skip := int64(size) + int64(size%2)
		if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
			return 0, fmt.Errorf("skip %q chunk: %w", id, err)
		}
	}
	if byteRate == 0 {
		return 0, errors.New("wav byte rate is zero")
	}
	return time.Duration(float64(dataSize) / float64(byteRate) * float64(time.Second)), nil
}

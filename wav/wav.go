// Package wav writes 16-bit stereo PCM WAVE files.
//
// The RIFF and data chunk sizes are written as zero and patched by Finish,
// so the length of the render does not need to be known up front.
package wav

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	formatPCM     = 1
	channels      = 2
	bitsPerSample = 16
	blockAlign    = channels * bitsPerSample / 8

	riffSizeOffset = 4
	dataSizeOffset = 40
	headerSize     = 44
)

// ErrOddSamples is returned when a write does not hold whole stereo frames.
var ErrOddSamples = errors.New("wav: interleaved stereo needs an even sample count")

type format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Writer streams interleaved int16 stereo frames to a seekable file.
type Writer struct {
	ws     io.WriteSeeker
	buf    []byte
	frames int64
}

// NewWriter writes the WAVE header with placeholder sizes.
func NewWriter(ws io.WriteSeeker, sampleRate int) (*Writer, error) {
	hdr := make([]byte, 0, headerSize)
	hdr = append(hdr, "RIFF"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 0)
	hdr = append(hdr, "WAVEfmt "...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 16)
	f := format{
		AudioFormat:   formatPCM,
		Channels:      channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * blockAlign,
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
	}
	hdr, err := binary.Append(hdr, binary.LittleEndian, f)
	if err != nil {
		return nil, err
	}
	hdr = append(hdr, "data"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 0)

	if _, err := ws.Write(hdr); err != nil {
		return nil, err
	}
	return &Writer{ws: ws}, nil
}

// WriteSamples appends interleaved L/R samples.
func (w *Writer) WriteSamples(samples []int16) error {
	if len(samples)%2 != 0 {
		return ErrOddSamples
	}
	w.buf = w.buf[:0]
	for _, s := range samples {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(s))
	}
	if _, err := w.ws.Write(w.buf); err != nil {
		return err
	}
	w.frames += int64(len(samples) / 2)
	return nil
}

// Frames returns the number of stereo frames written so far.
func (w *Writer) Frames() int64 {
	return w.frames
}

// Finish patches the chunk sizes and returns the total file length. The
// write position is left at the end of the file.
func (w *Writer) Finish() (int64, error) {
	end, err := w.ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	if err := w.patch(riffSizeOffset, uint32(end-8)); err != nil {
		return 0, err
	}
	if err := w.patch(dataSizeOffset, uint32(end-headerSize)); err != nil {
		return 0, err
	}
	if _, err := w.ws.Seek(end, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

func (w *Writer) patch(offset int64, v uint32) error {
	if _, err := w.ws.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.ws.Write(b[:])
	return err
}

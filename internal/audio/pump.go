package audio

import (
	"errors"
	"fmt"
	"io"
)

// MinChunkSize is the smallest read buffer Pump will use.
const MinChunkSize = 256

// Pump copies PCM chunks from src into send until src reaches EOF. A clean
// EOF returns nil.
func Pump(src io.Reader, send func(chunk []byte) error, chunkSize int) error {
	if chunkSize < MinChunkSize {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if sendErr := send(buf[:n]); sendErr != nil {
				return fmt.Errorf("stream audio: %w", sendErr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("audio capture: %w", err)
		}
	}
}

package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/tkjaer/ifmtu/internal/shared"
)

// JSONOutput writes one JSON object per result to a file or stdout
type JSONOutput struct {
	mu       sync.Mutex
	file     *os.File
	enc      *json.Encoder
	toStdout bool
}

func NewJSONOutput(filename string) (*JSONOutput, error) {
	if filename == "" {
		// Output to stdout
		return &JSONOutput{
			file:     os.Stdout,
			enc:      json.NewEncoder(os.Stdout),
			toStdout: true,
		}, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &JSONOutput{
		file:     f,
		enc:      json.NewEncoder(f),
		toStdout: false,
	}, nil
}

func (j *JSONOutput) Write(result shared.Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.enc.Encode(result)
}

func (j *JSONOutput) Close() error {
	if j.toStdout {
		return nil
	}
	return j.file.Close()
}

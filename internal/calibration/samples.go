package calibration

import (
	"encoding/json"
	"fmt"
	"os"
)

// samplesFile is the on-disk feedback log: feedback events joined with the
// criterion scores they were produced from.
type samplesFile struct {
	Feedback []Sample `json:"feedback"`
}

// LoadSamples reads a feedback log. A missing or empty file yields an empty
// sample.
func LoadSamples(path string) ([]Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return nil, nil
	}

	var decoded samplesFile
	if err := json.NewDecoder(file).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding feedback log %s: %w", path, err)
	}

	return decoded.Feedback, nil
}

// AppendSamples merges the new samples into the feedback log, creating it
// when absent. The log is append-only: existing entries are never rewritten.
func AppendSamples(path string, samples []Sample) error {
	existing, err := LoadSamples(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")

	return enc.Encode(samplesFile{Feedback: append(existing, samples...)})
}

package posecam

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads the labels used to train the Model from the given text file.
// It should contain one label per line.
func LoadLabels(file string) ([]string, error) {

	data, err := os.ReadFile(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	return ParseLabels(data)
}

// ParseLabels reads labels from an in memory labels blob, one label per line.
// Blank trailing lines are dropped, blank lines between labels are kept so
// the line number continues to match the class index.
func ParseLabels(blob []byte) ([]string, error) {

	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: labels blob is empty", ErrModelLoadFailed)
	}

	scanner := bufio.NewScanner(bytes.NewReader(blob))

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: error reading labels: %v", ErrModelLoadFailed, err)
	}

	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: labels blob has no labels", ErrModelLoadFailed)
	}

	return labels, nil
}

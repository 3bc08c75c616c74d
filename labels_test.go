package posecam

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestParseLabels(t *testing.T) {

	labels, err := ParseLabels([]byte("???\nperson\nbicycle\n\ncar\n\n\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"???", "person", "bicycle", "", "car"})

	_, err = ParseLabels(nil)
	test.That(t, errors.Is(err, ErrModelLoadFailed), test.ShouldBeTrue)

	_, err = ParseLabels([]byte("\n\n"))
	test.That(t, errors.Is(err, ErrModelLoadFailed), test.ShouldBeTrue)
}

func TestLoadLabels(t *testing.T) {

	file := filepath.Join(t.TempDir(), "labelmap.txt")
	err := os.WriteFile(file, []byte("???\r\nperson\r\n"), 0o644)
	test.That(t, err, test.ShouldBeNil)

	labels, err := LoadLabels(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"???", "person"})

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}

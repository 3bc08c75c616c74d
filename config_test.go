package posecam

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestDefaultConfig(t *testing.T) {

	cfg := DefaultConfig()

	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.DetectorInputSize, test.ShouldEqual, 300)
	test.That(t, cfg.PoseInputSize, test.ShouldEqual, 257)
	test.That(t, cfg.PersonLabel, test.ShouldEqual, "person")
	test.That(t, cfg.MinBoxSize, test.ShouldEqual, float32(16))
	test.That(t, cfg.SavePreview, test.ShouldBeFalse)
	test.That(t, len(Palette), test.ShouldEqual, 15)
	test.That(t, cfg.TextSizePx(cfg.TrackerTextSizeDip), test.ShouldEqual, float32(18))
}

func TestConfigValidate(t *testing.T) {

	tests := []struct {
		name   string
		modify func(*Config)
		isGeo  bool
	}{
		{"preview", func(c *Config) { c.PreviewWidth = 0 }, false},
		{"rotation", func(c *Config) { c.SensorRotation = 45 }, true},
		{"input", func(c *Config) { c.PoseInputSize = -1 }, false},
		{"device", func(c *Config) { c.PoseDevice = "TPU" }, false},
		{"corner", func(c *Config) { c.CornerDivisor = 0 }, false},
		{"density", func(c *Config) { c.DisplayDensity = 0 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)

			err := cfg.Validate()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldEqual, tc.isGeo)
		})
	}
}

package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/internal/enginetest"
	"github.com/swdee/go-posecam/internal/logging"
	"go.viam.com/test"
)

func TestParseBackend(t *testing.T) {

	for _, tc := range []struct {
		name string
		dev  engine.Device
		fail bool
	}{
		{"cpu", engine.CPU, false},
		{"TFLite", engine.CPU, false},
		{" npu ", engine.NPU, false},
		{"rknn", engine.NPU, false},
		{"tpu", engine.CPU, true},
	} {
		dev, err := parseBackend(tc.name)

		if tc.fail {
			test.That(t, err, test.ShouldNotBeNil)
			continue
		}

		test.That(t, err, test.ShouldBeNil)
		test.That(t, dev, test.ShouldEqual, tc.dev)
	}
}

func TestModelName(t *testing.T) {
	test.That(t, modelName("detect.tflite", engine.CPU), test.ShouldEqual, "detect.tflite")
	test.That(t, modelName("detect.tflite", engine.GPU), test.ShouldEqual, "detect.tflite")
	test.That(t, modelName("detect.tflite", engine.NPU), test.ShouldEqual, "detect.rknn")
	test.That(t, modelName("models/posenet_model.tflite", engine.NPU), test.ShouldEqual,
		"models/posenet_model.rknn")
}

// fakeLoader hands out the detector or pose fake by model blob
type fakeLoader struct {
	det     *enginetest.Fake
	pose    *enginetest.Fake
	devices map[string]engine.Device
}

func newFakeLoader() *fakeLoader {

	detIn, detOut := enginetest.SSDInfo(300)
	poseIn, poseOut := enginetest.PoseInfo(257)

	return &fakeLoader{
		det:     &enginetest.Fake{In: detIn, Out: detOut},
		pose:    &enginetest.Fake{In: poseIn, Out: poseOut},
		devices: make(map[string]engine.Device),
	}
}

func (l *fakeLoader) Load(model []byte, opts engine.Options) (engine.Engine, error) {

	l.devices[string(model)] = opts.Device

	switch string(model) {
	case "detector":
		return l.det, nil
	case "pose":
		return l.pose, nil
	}

	return nil, errors.New("unknown model")
}

func TestLoadModels(t *testing.T) {

	fsys := fstest.MapFS{
		"detect.tflite":        {Data: []byte("detector")},
		"labelmap.txt":         {Data: []byte("???\nperson\n")},
		"posenet_model.tflite": {Data: []byte("pose")},
	}

	cfg := posecam.DefaultConfig()
	cfg.UseAccelerator = true

	loader := newFakeLoader()

	m, err := loadModels(loader, newAssets(fsys, engine.CPU), cfg, engine.CPU, logging.Discard())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, loader.devices["detector"], test.ShouldEqual, engine.CPU)
	test.That(t, loader.devices["pose"], test.ShouldEqual, engine.CPU)
	test.That(t, loader.det.Accelerator, test.ShouldBeTrue)

	test.That(t, m.Close(), test.ShouldBeNil)
	test.That(t, loader.det.Closed, test.ShouldBeTrue)
	test.That(t, loader.pose.Closed, test.ShouldBeTrue)
}

func TestLoadModelsNPU(t *testing.T) {

	fsys := fstest.MapFS{
		"detect.rknn":          {Data: []byte("detector")},
		"labelmap.txt":         {Data: []byte("???\nperson\n")},
		"posenet_model.tflite": {Data: []byte("pose")},
	}

	loader := newFakeLoader()

	m, err := loadModels(loader, newAssets(fsys, engine.NPU), posecam.DefaultConfig(), engine.NPU,
		logging.Discard())
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	// only the detector runs on the NPU, the pose model stays on the CPU
	test.That(t, loader.devices["detector"], test.ShouldEqual, engine.NPU)
	test.That(t, loader.devices["pose"], test.ShouldEqual, engine.CPU)
}

func TestLoadModelsMissing(t *testing.T) {

	fsys := fstest.MapFS{
		"detect.tflite": {Data: []byte("detector")},
		"labelmap.txt":  {Data: []byte("???\nperson\n")},
	}

	loader := newFakeLoader()

	_, err := loadModels(loader, newAssets(fsys, engine.CPU), posecam.DefaultConfig(), engine.CPU,
		logging.Discard())
	test.That(t, errors.Is(err, posecam.ErrModelLoadFailed), test.ShouldBeTrue)

	// the detector loaded before the pose model went missing is released
	test.That(t, loader.det.Closed, test.ShouldBeTrue)
}

type fakeSettings struct {
	threads int
	accel   *bool
	err     error
}

func (f *fakeSettings) SetNumThreads(n int) error {
	f.threads = n
	return f.err
}

func (f *fakeSettings) SetUseAccelerator(on bool) error {
	f.accel = &on
	return f.err
}

func TestSettingsHandler(t *testing.T) {

	s := &fakeSettings{}
	h := settingsHandler(s, logging.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings?threads=4&accelerator=true", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusAccepted)
	test.That(t, s.threads, test.ShouldEqual, 4)
	test.That(t, *s.accel, test.ShouldBeTrue)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusMethodNotAllowed)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings?threads=many", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings?accelerator=maybe", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	s.err = errors.New("executor closed")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settings?threads=2", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusServiceUnavailable)
}

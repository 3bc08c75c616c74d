package main

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/detector"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/internal/logging"
	"github.com/swdee/go-posecam/pose"
	"go.uber.org/multierr"
)

// parseBackend converts the backend flag to the detector device
func parseBackend(name string) (engine.Device, error) {

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cpu", "tflite":
		return engine.CPU, nil
	case "npu", "rknn":
		return engine.NPU, nil
	}

	return engine.CPU, fmt.Errorf("unknown backend %q, use cpu or npu", name)
}

// assets reads the model blobs, models on the NPU are the .rknn builds of
// the TFLite models
type assets struct {
	fsys    fs.FS
	backend engine.Device
}

func newAssets(fsys fs.FS, backend engine.Device) assets {
	return assets{fsys: fsys, backend: backend}
}

// modelName returns the asset name of a model for the device it runs on
func modelName(name string, dev engine.Device) string {

	if dev != engine.NPU {
		return name
	}

	return strings.TrimSuffix(name, path.Ext(name)) + ".rknn"
}

func (a assets) read(name string) ([]byte, error) {

	buf, err := fs.ReadFile(a.fsys, name)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", posecam.ErrModelLoadFailed, err)
	}

	return buf, nil
}

// models are the loaded detector and pose estimator
type models struct {
	detector *detector.Detector
	pose     *pose.Estimator
}

func (m *models) Close() error {

	var err error

	if m.detector != nil {
		err = multierr.Append(err, m.detector.Close())
	}

	if m.pose != nil {
		err = multierr.Append(err, m.pose.Close())
	}

	return err
}

// loadModels loads both models, either failing ends the session
func loadModels(loader engine.Loader, a assets, cfg posecam.Config, backend engine.Device,
	log logrus.FieldLogger) (*models, error) {

	poseDev, err := engine.ParseDevice(cfg.PoseDevice)

	if err != nil {
		return nil, err
	}

	detModel, err := a.read(modelName(cfg.DetectorModel, backend))

	if err != nil {
		return nil, err
	}

	labels, err := a.read(cfg.DetectorLabels)

	if err != nil {
		return nil, err
	}

	m := &models{}

	m.detector, err = detector.Load(loader, detModel, labels, detector.Params{
		InputSize:  cfg.DetectorInputSize,
		Quantized:  cfg.DetectorQuantized,
		Device:     backend,
		NumThreads: cfg.NumThreads,
	}, logging.Component(log, "detector"))

	if err != nil {
		return nil, err
	}

	if cfg.UseAccelerator {
		if err := m.detector.SetUseAccelerator(true); err != nil {
			log.WithError(err).Warn("Detector accelerator not available")
		}
	}

	poseModel, err := a.read(modelName(cfg.PoseModel, poseDev))

	if err != nil {
		m.Close()
		return nil, err
	}

	m.pose, err = pose.Load(loader, poseModel, pose.Params{
		Side:   cfg.PoseInputSize,
		Device: poseDev,
	}, logging.Component(log, "pose"))

	if err != nil {
		m.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"detector": backend,
		"pose":     poseDev,
	}).Info("Models loaded")

	return m, nil
}

//go:build rknn

package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/rknn"
	"go.uber.org/multierr"
)

// setupNPU pins the process to the requested CPU cores and registers the
// RKNN backend
func setupNPU(reg *engine.Registry, platform, cores string, log logrus.FieldLogger) error {

	ct, err := rknn.ParseCoreType(cores)

	if err != nil {
		return err
	}

	if err := rknn.SetCPUAffinityByPlatform(platform, ct); err != nil {
		log.WithError(err).Warn("Failed to set CPU affinity")
	}

	reg.Register(engine.NPU, rknn.Loader)

	return nil
}

// queryModels prints the tensor attributes of the NPU builds of both models
func queryModels(w io.Writer, a assets, cfg posecam.Config) error {

	var err error

	for _, name := range []string{cfg.DetectorModel, cfg.PoseModel} {
		name = modelName(name, engine.NPU)

		buf, rerr := a.read(name)

		if rerr != nil {
			err = multierr.Append(err, rerr)
			continue
		}

		rt, rerr := rknn.NewRuntime(buf, rknn.NPUCoreAuto)

		if rerr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", name, rerr))
			continue
		}

		fmt.Fprintf(w, "Model: %s\n", name)
		err = multierr.Append(err, rt.Query(w))
		err = multierr.Append(err, rt.Close())
	}

	return err
}

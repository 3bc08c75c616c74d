//go:build !rknn

package main

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/engine"
)

var errNoNPU = errors.New("built without NPU support, rebuild with -tags rknn")

func setupNPU(*engine.Registry, string, string, logrus.FieldLogger) error {
	return errNoNPU
}

func queryModels(io.Writer, assets, posecam.Config) error {
	return errNoNPU
}

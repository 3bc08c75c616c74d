// Command posecam runs the person detection and pose estimation pipeline on a
// camera and serves the annotated preview over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-posecam"
	"github.com/swdee/go-posecam/camera"
	"github.com/swdee/go-posecam/engine"
	"github.com/swdee/go-posecam/engine/tflite"
	"github.com/swdee/go-posecam/internal/logging"
	"github.com/swdee/go-posecam/overlay"
	"github.com/swdee/go-posecam/pipeline"
	"github.com/swdee/go-posecam/preprocess"
	"github.com/swdee/go-posecam/render"
	"github.com/swdee/go-posecam/rendercache"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

func main() {

	// a missing .env is fine, flags and the environment still apply
	_ = godotenv.Load()

	app := &cli.App{
		Name:   "posecam",
		Usage:  "detect people on a camera and estimate their pose",
		Flags:  flags(),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func flags() []cli.Flag {

	def := posecam.DefaultConfig()

	return []cli.Flag{
		&cli.StringFlag{Name: "assets", Value: "assets", EnvVars: []string{"POSECAM_ASSETS"},
			Usage: "directory holding the models and label file"},
		&cli.StringFlag{Name: "camera", Value: "0", EnvVars: []string{"POSECAM_CAMERA"},
			Usage: "capture device index or video file"},
		&cli.IntFlag{Name: "width", Value: def.PreviewWidth, Usage: "requested preview width"},
		&cli.IntFlag{Name: "height", Value: def.PreviewHeight, Usage: "requested preview height"},
		&cli.IntFlag{Name: "rotation", Value: def.SensorRotation, EnvVars: []string{"POSECAM_ROTATION"},
			Usage: "sensor rotation in degrees, 0, 90, 180 or 270"},
		&cli.Float64Flag{Name: "fps", Usage: "pace video files at this frame rate"},
		&cli.BoolFlag{Name: "loop", Usage: "rewind video files when they end"},
		&cli.IntFlag{Name: "canvas-width", Usage: "overlay width, defaults to the preview width"},
		&cli.IntFlag{Name: "canvas-height", Usage: "overlay height, defaults to the preview height"},
		&cli.StringFlag{Name: "addr", Value: "localhost:8080", EnvVars: []string{"POSECAM_ADDR"},
			Usage: "HTTP address to serve the stream on, format address:port"},
		&cli.StringFlag{Name: "backend", Value: "cpu", EnvVars: []string{"POSECAM_BACKEND"},
			Usage: "detector backend, cpu (TFLite) or npu (RKNN)"},
		&cli.StringFlag{Name: "pose-device", Value: def.PoseDevice, Usage: "pose device, CPU, GPU or NNAPI"},
		&cli.IntFlag{Name: "threads", Usage: "detector CPU threads, 0 for the backend default"},
		&cli.BoolFlag{Name: "accelerator", Usage: "use the detector backend accelerator"},
		&cli.StringFlag{Name: "platform", Value: "rk3588", EnvVars: []string{"POSECAM_PLATFORM"},
			Usage: "Rockchip platform used to pin CPU affinity with the npu backend"},
		&cli.StringFlag{Name: "cores", Value: "fast", Usage: "CPU cores to pin to, fast, slow or all"},
		&cli.BoolFlag{Name: "query", Usage: "print the NPU model tensors and exit"},
		&cli.BoolFlag{Name: "maintain-aspect", Usage: "letterbox the frame into the detector input"},
		&cli.BoolFlag{Name: "save-preview", Usage: "write the detector and pose inputs as PNG"},
		&cli.StringFlag{Name: "preview-dir", Value: def.PreviewDir, Usage: "directory for saved previews"},
		&cli.BoolFlag{Name: "cycle-palette", Usage: "reuse colors past the palette instead of dropping people"},
		&cli.BoolFlag{Name: "draw-joints", Usage: "draw the skeleton between keypoints"},
		&cli.BoolFlag{Name: "shared-mapping", Usage: "map keypoints with the same transform as the boxes"},
		&cli.BoolFlag{Name: "debug", Usage: "draw every detection and the status lines"},
		&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"POSECAM_LOG_LEVEL"},
			Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-file", EnvVars: []string{"POSECAM_LOG_FILE"}, Usage: "rotated log file"},
	}
}

// configFromFlags applies the command line to the default configuration
func configFromFlags(c *cli.Context) posecam.Config {

	cfg := posecam.DefaultConfig()

	cfg.PreviewWidth = c.Int("width")
	cfg.PreviewHeight = c.Int("height")
	cfg.SensorRotation = c.Int("rotation")
	cfg.MaintainAspect = c.Bool("maintain-aspect")
	cfg.PoseDevice = c.String("pose-device")
	cfg.NumThreads = c.Int("threads")
	cfg.UseAccelerator = c.Bool("accelerator")
	cfg.SavePreview = c.Bool("save-preview")
	cfg.PreviewDir = c.String("preview-dir")
	cfg.CyclePalette = c.Bool("cycle-palette")
	cfg.DrawJoints = c.Bool("draw-joints")
	cfg.SharedKeypointMapping = c.Bool("shared-mapping")

	return cfg
}

func run(c *cli.Context) error {

	logger, err := logging.New(logging.Options{
		Level: c.String("log-level"),
		File:  c.String("log-file"),
	})

	if err != nil {
		return err
	}

	log := logging.NewSession(logger)

	cfg := configFromFlags(c)

	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := engine.NewRegistry(log)
	registry.Register(engine.CPU, tflite.Loader)

	backend, err := parseBackend(c.String("backend"))

	if err != nil {
		return err
	}

	if backend == engine.NPU {
		if err := setupNPU(registry, c.String("platform"), c.String("cores"), log); err != nil {
			return err
		}
	}

	assets := newAssets(os.DirFS(c.String("assets")), backend)

	if c.Bool("query") {
		return queryModels(os.Stdout, assets, cfg)
	}

	models, err := loadModels(registry, assets, cfg, backend, log)

	if err != nil {
		if errors.Is(err, posecam.ErrModelLoadFailed) {
			log.WithError(err).Error("Models could not be initialized, ending session")
			return cli.Exit(err.Error(), 1)
		}

		return err
	}

	defer models.Close()

	cam, err := camera.Open(camera.Options{
		Device: c.String("camera"),
		Width:  cfg.PreviewWidth,
		Height: cfg.PreviewHeight,
		FPS:    c.Float64("fps"),
		Loop:   c.Bool("loop"),
	}, logging.Component(log, "camera"))

	if err != nil {
		return err
	}

	defer cam.Close()

	size := cam.Size()

	stager, err := preprocess.NewStager(size.X, size.Y, cfg.DetectorInputSize,
		cfg.SensorRotation, cfg.MaintainAspect)

	if err != nil {
		return err
	}

	cache := rendercache.New(rendercache.OptionsFromConfig(cfg), logging.Component(log, "tracker"))
	cache.SetFrameConfiguration(size.X, size.Y, cfg.SensorRotation)

	canvasW, canvasH := c.Int("canvas-width"), c.Int("canvas-height")

	if canvasW <= 0 || canvasH <= 0 {
		canvasW, canvasH = size.X, size.Y
	}

	font := render.DefaultFont()
	defer font.Close()

	ov, err := overlay.New(overlay.Options{
		Width:            canvasW,
		Height:           canvasH,
		Rotation:         cfg.SensorRotation,
		Debug:            c.Bool("debug"),
		StatusTextSizePx: cfg.TextSizePx(cfg.PipelineTextSizeDip),
	}, cache, font, logging.Component(log, "overlay"))

	if err != nil {
		stager.Close()
		return err
	}

	defer ov.Close()

	ctrl, err := pipeline.New(cfg, pipeline.Components{
		Stager:   stager,
		Detector: models.detector,
		Pose:     models.pose,
		Tracker:  cache,
		UI:       ov,
	}, logging.Component(log, "pipeline"))

	if err != nil {
		stager.Close()
		return err
	}

	if cfg.SharedKeypointMapping {
		cache.SetCropToFrame(ctrl.CropToFrame())
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = serve(ctx, c.String("addr"), cam, ctrl, ov, log)

	stats := ctrl.Stats()

	log.WithFields(logrus.Fields{
		"seen":      stats.Seen,
		"dropped":   stats.Dropped,
		"processed": stats.Processed,
	}).Info("Session ended")

	return multierr.Combine(err, ctrl.Close())
}

// serve runs the UI loop, the camera and the HTTP server until ctx is done
// or one of them fails
func serve(ctx context.Context, addr string, cam *camera.Camera, ctrl *pipeline.Controller,
	ov *overlay.Overlay, log logrus.FieldLogger) error {

	g, ctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.Handle("/", ov.Handler())
	mux.Handle("/settings", settingsHandler(ctrl, log))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		return ov.Run(ctx)
	})

	g.Go(func() error {
		return cam.Run(ctx, func(frame gocv.Mat, ready func()) {
			ov.SetBackground(frame)
			ctrl.ProcessImage(frame, ready)
		})
	})

	g.Go(func() error {
		log.WithField("addr", addr).Info("Open http://" + addr + "/ in your browser")

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	switch {
	case errors.Is(err, camera.ErrEndOfStream):
		log.Info("Video ended")
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, overlay.ErrClosed):
		return nil
	}

	return err
}

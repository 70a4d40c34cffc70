package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/frame"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/geometry"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/gpu"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/shaders"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/window"
)

// run builds every object the frame loop needs and runs it. Each object is released
// by a deferred call registered right after it is created, so teardown happens in
// reverse creation order on every return path.
func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	set, err := shaders.Load(os.DirFS(cfg.ShaderDir))
	if err != nil {
		return errors.Wrapf(err, "loading shaders from %s", cfg.ShaderDir)
	}

	mesh, err := loadMesh(cfg.MeshPath)
	if err != nil {
		return err
	}

	resized := frame.NewMailbox()

	win, err := window.Open(window.Config{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Title:     cfg.Title,
		Resizable: true,
	}, resized, log)
	if err != nil {
		return errors.Wrap(err, "opening window")
	}
	defer win.Close()

	inst, err := gpu.NewInstance(gpu.InstanceConfig{
		AppName:    cfg.Title,
		ProcAddr:   win.ProcAddr(),
		Extensions: win.RequiredInstanceExtensions(),
		Validation: cfg.Debug,
		Logger:     log,
	})
	if err != nil {
		return errors.Wrap(err, "creating instance")
	}
	defer inst.Destroy()

	surface, err := win.CreateSurface(inst.Handle())
	if err != nil {
		return err
	}
	defer inst.DestroySurface(surface)

	dev, err := gpu.NewDeviceContext(inst, surface, gpu.DefaultRequirements())
	if err != nil {
		return errors.Wrap(err, "creating device")
	}
	defer dev.Destroy()

	chain, err := gpu.NewSurfaceChain(dev, surface, win)
	if err != nil {
		return errors.Wrap(err, "creating swap chain")
	}
	defer chain.Destroy()

	pipeline, err := gpu.NewPipelineState(dev, chain.Format(), set, geometry.VertexLayout())
	if err != nil {
		return errors.Wrap(err, "creating pipeline")
	}
	defer pipeline.Destroy()

	if err := chain.AttachRenderPass(pipeline.RenderPass); err != nil {
		return errors.Wrap(err, "creating framebuffers")
	}
	defer chain.DetachRenderPass()

	slots, err := gpu.NewFrameSlots(dev, cfg.FramesInFlight)
	if err != nil {
		return errors.Wrap(err, "creating frame slots")
	}
	defer gpu.DestroyFrameSlots(slots)

	gpuMesh, err := gpu.UploadMesh(dev, mesh)
	if err != nil {
		return errors.Wrap(err, "uploading mesh")
	}
	defer gpuMesh.Destroy()

	scheduler, err := frame.New(
		chain,
		gpu.Slots(slots),
		pipeline.Pass(),
		gpuMesh.Draw(),
		frame.WithLogger(log),
		frame.WithResizeMailbox(resized),
		frame.WithClearColor(cfg.ClearColor),
		frame.WithStatsInterval(cfg.StatsInterval),
	)
	if err != nil {
		return err
	}

	// Registered last so it runs first: nothing above may be released while the
	// GPU still uses it.
	defer dev.WaitIdle()

	log.Info("rendering",
		slog.Int("frames_in_flight", cfg.FramesInFlight),
		slog.Int("images", chain.ImageCount()),
		slog.Int("indices", int(mesh.IndexCount())),
	)

	if err := scheduler.Run(ctx, win); err != nil {
		return err
	}

	stats := scheduler.Stats()
	log.Info("frame loop finished",
		slog.Uint64("frames", stats.Frames),
		slog.Uint64("rebuilds", stats.Rebuilds),
		slog.Duration("avg_frame", stats.AverageFrameTime()),
	)
	return nil
}

// loadMesh returns the built-in star, or the OBJ file at path when one is given.
func loadMesh(path string) (geometry.Mesh, error) {
	if path == "" {
		return geometry.Star(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return geometry.Mesh{}, errors.Wrap(err, "opening mesh")
	}
	defer f.Close()

	mesh, err := geometry.LoadOBJ(f)
	if err != nil {
		return geometry.Mesh{}, errors.Wrapf(err, "loading mesh %s", path)
	}
	return mesh, nil
}

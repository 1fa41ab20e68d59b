package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	diskimaging "github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/quiz-tapper/internal/answerer"
	"github.com/ironsheep/quiz-tapper/internal/config"
	"github.com/ironsheep/quiz-tapper/internal/detection"
	"github.com/ironsheep/quiz-tapper/internal/device"
	"github.com/ironsheep/quiz-tapper/internal/httpapi"
	"github.com/ironsheep/quiz-tapper/internal/imaging"
	"github.com/ironsheep/quiz-tapper/internal/logging"
	"github.com/ironsheep/quiz-tapper/internal/ocr"
	"github.com/ironsheep/quiz-tapper/internal/runner"
	"github.com/ironsheep/quiz-tapper/internal/screen"
	"github.com/ironsheep/quiz-tapper/internal/server"
	"github.com/ironsheep/quiz-tapper/internal/storage"
)

func runCmd(ctx context.Context, e *env, args []string) error {
	if err := e.setup(flag.NewFlagSet("run", flag.ContinueOnError), args); err != nil {
		return err
	}
	cfg := e.cfg
	if err := cfg.ValidateAnswerer(); err != nil {
		return err
	}

	adb, err := connect(ctx, e)
	if err != nil {
		return err
	}
	w, h, err := adb.ScreenSize(ctx)
	if err != nil {
		return err
	}
	e.log.Infof("device %s, screen %dx%d", adb.Serial(), w, h)

	ans, closeAnswerer, err := newAnswerer(ctx, cfg, e.log)
	if err != nil {
		return err
	}
	defer closeAnswerer()

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}

	opts := []runner.Option{runner.WithSink(sink), runner.WithLogger(logging.WithComponent(e.log, "runner"))}
	if cfg.OCRHint {
		reader, err := ocr.New(ocr.Options{Languages: cfg.OCRLanguages()})
		if err != nil {
			return err
		}
		defer reader.Close()
		opts = append(opts, runner.WithOCR(reader))
	}

	analyzer := screen.NewAnalyzer(screen.WithLogger(logging.WithComponent(e.log, "detect")))
	r := runner.New(adb, adb, analyzer, ans, runner.Settings{
		MatchRetries: cfg.MatchRetries,
		RetryDelay:   cfg.RetryDelay,
		AnswerDelay:  cfg.AnswerDelay,
		MaxQuestions: cfg.MaxQuestions,
	}, opts...)

	rep, err := r.Run(ctx)
	if rep != nil {
		e.log.WithFields(logrus.Fields{
			"questions":         rep.Questions,
			"skipped":           rep.Skipped,
			"stopped":           rep.Stopped,
			"prompt_tokens":     rep.Usage.PromptTokens,
			"completion_tokens": rep.Usage.CompletionTokens,
			"cost":              rep.Usage.Cost,
			"mean_cost":         rep.Usage.MeanCost,
		}).Info("run finished")
	}
	return err
}

func connect(ctx context.Context, e *env) (*device.ADB, error) {
	adb := device.New(e.cfg.ADB, device.WithLogger(logging.WithComponent(e.log, "adb")))
	if e.cfg.Device != "" {
		adb.SetDevice(e.cfg.Device)
		return adb, nil
	}
	if _, err := adb.SelectFirst(ctx); err != nil {
		return nil, err
	}
	return adb, nil
}

func newAnswerer(ctx context.Context, cfg *config.Config, log *logrus.Logger) (answerer.Answerer, func(), error) {
	meter := answerer.NewMeter(answerer.Pricing{InputPerMillion: cfg.CostInput, OutputPerMillion: cfg.CostOutput})
	opts := []answerer.Option{
		answerer.WithMeter(meter),
		answerer.WithLogger(logging.WithComponent(log, "answerer")),
		answerer.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		g, err := answerer.NewGemini(ctx, cfg.APIModel, cfg.APIKey, opts...)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { g.Close() }, nil
	default:
		return answerer.NewOpenAI(cfg.APIURL, cfg.APIModel, cfg.APIKey, opts...), func() {}, nil
	}
}

func newSink(cfg *config.Config) (storage.Sink, error) {
	switch {
	case cfg.AzureEnabled():
		return storage.NewAzureSink(storage.AzureConfig{
			Account:   cfg.AzureAccount,
			Key:       cfg.AzureKey,
			Container: cfg.AzureContainer,
			Endpoint:  cfg.AzureEndpoint,
		})
	case cfg.DebugDir != "":
		return storage.NewFileSink(cfg.DebugDir)
	}
	return storage.Discard{}, nil
}

func matchCmd(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	out := fs.String("out", "", "write an overlay PNG with the detected boxes")
	if err := e.setup(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: quiz-tapper match [options] <screenshot>")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := imaging.Decode(f)
	if err != nil {
		return err
	}

	an, err := screen.NewAnalyzer(screen.WithLogger(e.log)).Analyze(img)
	if err != nil && !errors.Is(err, detection.ErrCoreInvariant) {
		return err
	}
	invariant := err

	if *out != "" {
		if err := diskimaging.Save(an.Overlay(img), *out); err != nil {
			return fmt.Errorf("write overlay: %w", err)
		}
	}

	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(an.Report()); err != nil {
		return err
	}
	if invariant != nil {
		return invariant
	}
	if !an.Matched() {
		return errNoMatch
	}
	return nil
}

func mcpCmd(_ context.Context, e *env, args []string) error {
	if err := e.setup(flag.NewFlagSet("mcp", flag.ContinueOnError), args); err != nil {
		return err
	}
	e.log.Debugf("quiz-tapper MCP server %s (built %s, commit %s)", Version, BuildTime, GitCommit)

	log := logging.WithComponent(e.log, "mcp")
	srv := server.New(
		server.WithLogger(log),
		server.WithAnalyzer(screen.NewAnalyzer(screen.WithLogger(log))),
	)
	return srv.Run()
}

func serveCmd(ctx context.Context, e *env, args []string) error {
	if err := e.setup(flag.NewFlagSet("serve", flag.ContinueOnError), args); err != nil {
		return err
	}
	if !e.log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}

	log := logging.WithComponent(e.log, "http")
	analyzer := screen.NewAnalyzer(screen.WithLogger(log))
	return httpapi.Serve(ctx, e.cfg.Listen, httpapi.NewHandler(analyzer, log), log)
}

func devicesCmd(ctx context.Context, e *env, args []string) error {
	if err := e.setup(flag.NewFlagSet("devices", flag.ContinueOnError), args); err != nil {
		return err
	}
	devices, err := device.New(e.cfg.ADB, device.WithLogger(e.log)).Devices(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Fprintf(e.stdout, "%s\t%s\n", d.Serial, d.State)
	}
	return nil
}

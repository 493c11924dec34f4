// Command strpipe runs a string-processing pipeline assembled from the
// built-in stages, reading records from standard input and draining on
// end-of-stream.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/pipelinehq/strpipe"
	"github.com/pipelinehq/strpipe/handoff"
	"github.com/pipelinehq/strpipe/metrics"
	"github.com/pipelinehq/strpipe/stages"
)

var (
	appName = "strpipe"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

// Exit codes distinguish argument-validation failures from
// stage-initialization failures, per the CLI contract.
const (
	exitOK = iota
	exitInvalidArgs
	exitStageInitFailed
)

func main() {
	rootLogger := logrus.New()
	logger = rootLogger.WithField("app", appName)

	app := makeApp()
	if err := app.Run(os.Args); err != nil {
		if code, ok := err.(cli.ExitCoder); ok {
			os.Exit(code.ExitCode())
		}
		logger.WithField("err", err).Error("strpipe exited with error")
		os.Exit(exitInvalidArgs)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = appSha
	app.Usage = "stream standard input through an ordered chain of string-processing stages"
	app.UsageText = fmt.Sprintf(
		"%s <capacity> <stage1> [stage2 ...]\n\n   Built-in stages: %v",
		appName, stages.NewRegistry(nil).Names(),
	)
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "metrics",
			Usage: "report per-stage throughput, transform latency, and handoff buffer depth to stderr after the run drains",
		},
	}
	app.Action = runMain
	return app
}

func runMain(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return cli.NewExitError("strpipe: requires a capacity and at least one stage name", exitInvalidArgs)
	}

	capacity, err := parseCapacity(args.First())
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("strpipe: %s", err), exitInvalidArgs)
	}

	stageNames := []string(args)[1:]

	registry := stages.NewRegistry(os.Stdout)

	sink := func(handoff.Record) error { return nil }

	var basicMetrics *metrics.BasicProvider
	metricsProvider := metrics.Provider(metrics.NoopProvider{})
	if c.Bool("metrics") {
		basicMetrics = metrics.NewBasicProvider()
		metricsProvider = basicMetrics
	}

	pipeline, err := strpipe.New(
		stageNames,
		registry.Resolve,
		sink,
		strpipe.WithCapacity(capacity),
		strpipe.WithLogger(logger),
		strpipe.WithMetrics(metricsProvider),
	)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("strpipe: initializing pipeline: %s", err), exitStageInitFailed)
	}
	defer func() { _ = pipeline.Close() }()

	if err := feed(pipeline, os.Stdin); err != nil {
		return cli.NewExitError(fmt.Sprintf("strpipe: %s", err), exitInvalidArgs)
	}

	pipeline.Wait()

	if basicMetrics != nil {
		reportMetrics(basicMetrics)
	}
	return nil
}

// reportMetrics logs one line per instrument the pipeline reported
// through while -metrics was set: per-stage records processed, per-stage
// transform latency, and handoff buffer depth.
func reportMetrics(p *metrics.BasicProvider) {
	for _, s := range p.Summary() {
		entry := logger.WithField("metric", s.Name)
		if stage, ok := s.Attributes["stage"]; ok {
			entry = entry.WithField("stage", stage)
		}
		if s.IsHistogram {
			entry.WithFields(logrus.Fields{
				"count": s.Histogram.Count,
				"mean":  s.Histogram.Mean,
				"min":   s.Histogram.Min,
				"max":   s.Histogram.Max,
			}).Info("metrics summary")
			continue
		}
		entry.WithField("value", s.Count).Info("metrics summary")
	}
}

func parseCapacity(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("capacity must be a positive integer, got %q", raw)
	}
	if n < 1 || n > 1_000_000 {
		return 0, fmt.Errorf("capacity must be in [1, 1000000], got %d", n)
	}
	return n, nil
}

// feed reads newline-delimited records from r and submits each to the
// pipeline's head stage. Reading stops at the first <END> record, which
// is submitted like any other. If input ends without one, a sentinel is
// synthesized and submitted, so the pipeline is guaranteed to drain even
// when the caller never writes the literal <END> record.
func feed(p *strpipe.Pipeline, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sawSentinel := false
	for scanner.Scan() {
		line := scanner.Text()
		rec := handoff.Record(line)
		if rec.IsSentinel() {
			sawSentinel = true
		}
		if err := p.Submit(rec); err != nil {
			return fmt.Errorf("submitting record: %w", err)
		}
		if sawSentinel {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if !sawSentinel {
		if err := p.Stop(); err != nil {
			return fmt.Errorf("submitting end-of-stream sentinel: %w", err)
		}
	}
	return nil
}

package logs

import (
	"io"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/devicesession/internal/domain/device"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devicesession/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devicesession/internal/shared/pubsub"
)

// DeviceLogEvent is one chunk of device output that survived filtering.
type DeviceLogEvent struct {
	Platform         device.Platform `json:"platform"`
	DeviceIdentifier string          `json:"deviceIdentifier"`
	Text             string          `json:"text"`
}

// Pipeline filters, rewrites and publishes raw device output. It embeds the
// per-device options store.
type Pipeline struct {
	*Store

	filter   Filter
	mapper   SourceMapper
	colors   *ColorAssigner
	renderer *Renderer
	events   *pubsub.Hub[DeviceLogEvent]
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewPipeline creates a pipeline whose global level is level. Source maps are
// resolved from disk by default.
func NewPipeline(level LogLevel) *Pipeline {
	return &Pipeline{
		Store:  NewStore(level),
		mapper: NewFileSourceMapper(),
		colors: NewColorAssigner(),
		events: pubsub.NewHub[DeviceLogEvent](),
		logger: zap.NewNop(),
	}
}

// WithLogger sets the pipeline logger.
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	p.logger = logging.OrNop(logger)
	return p
}

// WithMetrics adds metrics tracking to the pipeline.
func (p *Pipeline) WithMetrics(metrics *monitoring.Metrics) *Pipeline {
	p.metrics = metrics
	return p
}

// WithSourceMapper replaces the source mapper; nil disables rewriting.
func (p *Pipeline) WithSourceMapper(mapper SourceMapper) *Pipeline {
	p.mapper = mapper
	return p
}

// WithConsole renders every published event to w.
func (p *Pipeline) WithConsole(w io.Writer) *Pipeline {
	p.renderer = NewRenderer(w, p.colors)
	return p
}

// WithRenderer sets a preconfigured renderer.
func (p *Pipeline) WithRenderer(r *Renderer) *Pipeline {
	p.renderer = r
	return p
}

// Colors returns the device color assignments.
func (p *Pipeline) Colors() *ColorAssigner {
	return p.colors
}

// Subscribe registers fn for every published event.
func (p *Pipeline) Subscribe(fn func(DeviceLogEvent)) *pubsub.Subscription[DeviceLogEvent] {
	return p.events.Subscribe(fn)
}

// Consume feeds one adapter log line into the pipeline.
func (p *Pipeline) Consume(line device.LogLine) {
	p.LogData(line.Text, line.Platform, line.DeviceIdentifier)
}

// LogData processes one chunk of raw output from deviceID.
func (p *Pipeline) LogData(line string, platform device.Platform, deviceID string) {
	opts := p.DeviceLogOptions(deviceID)

	text := p.filter.Filter(line, opts)
	if text == "" {
		p.metrics.RecordLogRecord(deviceID, "filtered")
		return
	}

	if p.mapper != nil {
		rewritten, err := p.mapper.Rewrite(platform, opts.ProjectDir, text)
		if err != nil {
			p.metrics.RecordSourceMapMiss(string(platform))
			p.logger.Debug("Source map lookup failed",
				zap.String("device", deviceID),
				zap.Error(err),
			)
		}
		if rewritten != "" {
			text = rewritten
		}
	}

	ev := DeviceLogEvent{Platform: platform, DeviceIdentifier: deviceID, Text: text}
	p.metrics.RecordLogRecord(deviceID, "emitted")
	p.events.Publish(ev)

	if p.renderer != nil {
		if err := p.renderer.Render(ev); err != nil {
			p.logger.Warn("Failed to render device log", zap.Error(err))
		}
	}
}

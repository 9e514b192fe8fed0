// Package configyaml decodes a Breaker Configuration from YAML, the file
// format the rest of this ecosystem's config loaders (e.g. a gateway's
// circuit-breaker block) already use. It produces a breaker.Configuration
// through the same Builder and validation path a hand-assembled one would
// go through, so a bad YAML file fails exactly the way a bad Builder call
// does.
package configyaml

import (
	"fmt"
	"os"
	"time"

	"github.com/kestrel-oss/breaker"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a breaker configuration. Field names
// follow the snake_case convention of the rest of the ecosystem's YAML
// configs. Policy, Hooks, MetricSink and Clock have no YAML
// representation — set them on the returned Configuration after decoding.
type Document struct {
	FailureThreshold          float64       `yaml:"failure_threshold"`
	MinThroughput             uint64        `yaml:"min_throughput"`
	Cooldown                  time.Duration `yaml:"cooldown"`
	ProbeInterval             uint32        `yaml:"probe_interval"`
	ConsecutiveFailuresTrip   uint64        `yaml:"consecutive_failures_trip"`
	ConsecutiveSuccessesReset uint64        `yaml:"consecutive_successes_reset"`
	EMAAlpha                  float64       `yaml:"ema_alpha"`
	WindowWidth               time.Duration `yaml:"window_width"`

	TripOnProbeFailureUnconditionally *bool `yaml:"trip_on_probe_failure_unconditionally"`
	CountCancellationAsFailure        *bool `yaml:"count_cancellation_as_failure"`
}

// Load reads path, decodes it as a Document, and builds a validated
// breaker.Configuration. Any field left at its YAML zero value falls back
// to the Builder's default for that field.
func Load(path string) (breaker.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return breaker.Configuration{}, fmt.Errorf("configyaml: reading %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses raw YAML bytes into a validated breaker.Configuration.
func Decode(data []byte) (breaker.Configuration, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return breaker.Configuration{}, fmt.Errorf("configyaml: parsing document: %w", err)
	}
	return doc.Build()
}

// Build applies doc onto a fresh Builder seeded with the package defaults,
// then validates. Zero-valued fields in doc are left at the Builder's
// default rather than forced to zero, so a document that only overrides
// Cooldown still gets sane values everywhere else.
func (doc Document) Build() (breaker.Configuration, error) {
	b := breaker.NewBuilder()

	if doc.FailureThreshold != 0 {
		b.WithFailureThreshold(doc.FailureThreshold)
	}
	if doc.MinThroughput != 0 {
		b.WithMinThroughput(doc.MinThroughput)
	}
	if doc.Cooldown != 0 {
		b.WithCooldown(doc.Cooldown)
	}
	if doc.ProbeInterval != 0 {
		b.WithProbeInterval(doc.ProbeInterval)
	}
	if doc.ConsecutiveFailuresTrip != 0 {
		b.WithConsecutiveFailuresTrip(doc.ConsecutiveFailuresTrip)
	}
	if doc.ConsecutiveSuccessesReset != 0 {
		b.WithConsecutiveSuccessesReset(doc.ConsecutiveSuccessesReset)
	}
	if doc.EMAAlpha != 0 {
		b.WithEMAAlpha(doc.EMAAlpha)
	}
	if doc.WindowWidth != 0 {
		b.WithWindowWidth(doc.WindowWidth)
	}
	if doc.TripOnProbeFailureUnconditionally != nil {
		b.WithTripOnProbeFailureUnconditionally(*doc.TripOnProbeFailureUnconditionally)
	}
	if doc.CountCancellationAsFailure != nil {
		b.WithCountCancellationAsFailure(*doc.CountCancellationAsFailure)
	}

	return b.Build()
}

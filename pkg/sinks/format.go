package sinks

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/vnykmshr/metricbus/pkg/bus"
)

// TextFormatter renders "name: k=v k=v". Reports that are not Sampled are
// rendered with %+v.
type TextFormatter struct{}

// Format implements Formatter.
func (TextFormatter) Format(report bus.Report) (string, error) {
	var b strings.Builder
	b.WriteString(metricName(report))
	b.WriteString(":")

	s, ok := report.(Sampled)
	if !ok {
		fmt.Fprintf(&b, " %+v", report)
		return b.String(), nil
	}
	for _, sample := range s.Samples() {
		b.WriteByte(' ')
		b.WriteString(sample.Name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(sample.Value, 'g', -1, 64))
	}
	return b.String(), nil
}

// JSONFormatter renders reports as a JSON document with the metric name,
// the emitting instance and a timestamp around the report itself.
type JSONFormatter struct {
	source string
	api    jsoniter.API
	now    func() time.Time
}

type envelope struct {
	Metric    string     `json:"metric"`
	Source    string     `json:"source"`
	Timestamp time.Time  `json:"timestamp"`
	Report    bus.Report `json:"report"`
}

// NewJSONFormatter creates a formatter stamping documents with source. A
// zero source gets a fresh random id.
func NewJSONFormatter(source uuid.UUID) *JSONFormatter {
	if source == uuid.Nil {
		source = uuid.New()
	}
	return &JSONFormatter{
		source: source.String(),
		api:    jsoniter.ConfigCompatibleWithStandardLibrary,
		now:    time.Now,
	}
}

// Source returns the instance id written into every document.
func (f *JSONFormatter) Source() string {
	return f.source
}

// Format implements Formatter.
func (f *JSONFormatter) Format(report bus.Report) (string, error) {
	return f.api.MarshalToString(envelope{
		Metric:    metricName(report),
		Source:    f.source,
		Timestamp: f.now().UTC(),
		Report:    report,
	})
}

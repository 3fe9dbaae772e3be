// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package deps carries dependency facts from the file operations to the host
// that decides whether an invocation has to run again.
package deps

import (
	"sync"

	"github.com/walteh/buildfs/pkg/fingerprint"
	"github.com/walteh/buildfs/pkg/location"
	"github.com/walteh/buildfs/pkg/wildcard"
)

// 🏷️ Tag groups facts that the host may invalidate independently
type Tag string

const (
	TagCopySource    Tag = "copy:source"
	TagCopyTarget    Tag = "copy:target"
	TagPrepareInput  Tag = "prepare:input"
	TagPrepareOutput Tag = "prepare:output"
	TagMirrorSource  Tag = "mirror:source"
	TagMirrorLocal   Tag = "mirror:local"
)

// 📮 Reporter receives dependency facts. Operations call each method at most
// once per path per invocation.
type Reporter interface {
	ReportInputDependency(tag Tag, loc location.Location, fp fingerprint.Fingerprint)
	ReportOutputDependency(tag Tag, loc location.Location, fp fingerprint.Fingerprint)
	ReportAdditionDependency(tag Tag, strategy wildcard.Strategy, matched []string)
}

// Fact pairs a location with the fingerprint observed for it.
type Fact struct {
	Tag         Tag
	Location    location.Location
	Fingerprint fingerprint.Fingerprint
}

// Addition records a collected path set and how it was collected.
type Addition struct {
	Tag      Tag
	Strategy wildcard.Strategy
	Matched  []string
}

// 📒 Recorder keeps every reported fact in order
type Recorder struct {
	mu        sync.Mutex
	inputs    []Fact
	outputs   []Fact
	additions []Addition
}

var _ Reporter = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) ReportInputDependency(tag Tag, loc location.Location, fp fingerprint.Fingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, Fact{Tag: tag, Location: loc, Fingerprint: fp})
}

func (r *Recorder) ReportOutputDependency(tag Tag, loc location.Location, fp fingerprint.Fingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, Fact{Tag: tag, Location: loc, Fingerprint: fp})
}

func (r *Recorder) ReportAdditionDependency(tag Tag, strategy wildcard.Strategy, matched []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.additions = append(r.additions, Addition{Tag: tag, Strategy: strategy, Matched: append([]string(nil), matched...)})
}

func (r *Recorder) Inputs() []Fact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Fact(nil), r.inputs...)
}

func (r *Recorder) Outputs() []Fact {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Fact(nil), r.outputs...)
}

func (r *Recorder) Additions() []Addition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Addition(nil), r.additions...)
}

// Tagged filters facts by tag.
func Tagged(facts []Fact, tag Tag) []Fact {
	var out []Fact
	for _, f := range facts {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// Discard drops every fact.
var Discard Reporter = discard{}

type discard struct{}

func (discard) ReportInputDependency(Tag, location.Location, fingerprint.Fingerprint)  {}
func (discard) ReportOutputDependency(Tag, location.Location, fingerprint.Fingerprint) {}
func (discard) ReportAdditionDependency(Tag, wildcard.Strategy, []string)              {}

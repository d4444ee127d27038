/*
Copyright 2025 Tawi Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package audit implements the append-only event sink. Events are written
// as one JSON object per line into a per-category file and are never read
// back by the core.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event categories.
const (
	CategoryAirtimeAttempt = "airtime_attempt"
	CategoryAirtimeResult  = "airtime_result"
	CategoryBonus          = "bonus"
	CategoryRedemption     = "redemption"
	CategoryTimeout        = "timeout"
	CategoryFailure        = "failure"
)

type Event map[string]interface{}

type Sink struct {
	mu  sync.Mutex
	dir string
}

func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Sink{dir: dir}, nil
}

// Record appends the event to the category's log file. Sink failures are
// logged and swallowed: auditing is best effort and must never fail the
// operation being audited.
func (s *Sink) Record(category string, event Event) {
	entry := make(map[string]interface{}, len(event)+1)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	for k, v := range event {
		entry[k] = v
	}

	line, err := json.Marshal(entry)
	if err != nil {
		logrus.Errorf("audit: marshal %s event: %v", category, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, category+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logrus.Errorf("audit: open %s log: %v", category, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		logrus.Errorf("audit: write %s log: %v", category, err)
	}
}

// Copyright (c) 2013 Uwe Hoffmann. All rights reserved.

/*
Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are
met:

   * Redistributions of source code must retain the above copyright
notice, this list of conditions and the following disclaimer.
   * Redistributions in binary form must reproduce the above
copyright notice, this list of conditions and the following disclaimer
in the documentation and/or other materials provided with the
distribution.
   * Neither the name of Google Inc. nor the names of its
contributors may be used to endorse or promote products derived from
this software without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
"AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
OWNER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
(INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.
*/

// Package progress is the shared progress-tracking type used by the
// scanner and hash pool: a running {bytes_processed,
// total_bytes} snapshot. Ported near-verbatim from
// worker.ProgressTracker/Progress (worker/progress.go), which already
// has exactly this shape; only the field names were renamed to match
// this system's own terminology.
package progress

import (
	"container/ring"
	"sync"
)

// Tracker is attached to one long-running operation (a scan, a hash
// pool run, an organize execution) and updated from multiple goroutines.
type Tracker interface {
	SetTotalBytes(value int64)
	SetTotalItems(value int32)
	AddFromItem(bytes int64, path string, erred bool)
	Finished()
	Reset()
	Snapshot() *Progress
	Stop(wc chan bool)
	Stopped() bool
	KnowTotal() bool
}

// Progress is a point-in-time snapshot, safe to read without locking
// since Snapshot copies every field.
type Progress struct {
	TotalBytes   int64
	TotalItems   int32
	ErrorItems   int32
	BytesSoFar   int64
	ItemsSoFar   int32
	CurrentPaths []string

	stopped   bool
	knowTotal bool
	m         *sync.Mutex
	wc        chan bool
	rng       *ring.Ring
}

// New constructs a Tracker that remembers the last numInFlight paths
// currently being processed, one slot per concurrent worker.
func New(numInFlight int) Tracker {
	pt := new(Progress)
	pt.m = new(sync.Mutex)
	if numInFlight < 1 {
		numInFlight = 1
	}
	pt.rng = ring.New(numInFlight)
	return pt
}

func (pt *Progress) KnowTotal() bool { return pt.knowTotal }

func (pt *Progress) SetTotalBytes(value int64) {
	pt.m.Lock()
	defer pt.m.Unlock()
	pt.TotalBytes = value
	pt.knowTotal = true
}

func (pt *Progress) SetTotalItems(value int32) {
	pt.m.Lock()
	defer pt.m.Unlock()
	pt.TotalItems = value
	pt.knowTotal = true
}

func (pt *Progress) AddFromItem(bytes int64, path string, erred bool) {
	pt.m.Lock()
	defer pt.m.Unlock()

	pt.BytesSoFar += bytes
	pt.ItemsSoFar++

	if path != "" {
		pt.rng.Value = path
		pt.rng = pt.rng.Next()
	}
	if erred {
		pt.ErrorItems++
	}
}

func (pt *Progress) Stop(wc chan bool) {
	pt.m.Lock()
	defer pt.m.Unlock()
	pt.stopped = true
	pt.wc = wc
}

func (pt *Progress) Stopped() bool {
	pt.m.Lock()
	defer pt.m.Unlock()
	return pt.stopped
}

func (pt *Progress) Finished() {
	pt.m.Lock()
	defer pt.m.Unlock()

	if pt.knowTotal {
		pt.BytesSoFar = pt.TotalBytes
		pt.ItemsSoFar = pt.TotalItems
	}
	if pt.wc != nil {
		pt.wc <- true
		pt.wc = nil
	}
}

func (pt *Progress) Reset() {
	pt.m.Lock()
	defer pt.m.Unlock()

	pt.TotalBytes = 0
	pt.TotalItems = 0
	pt.BytesSoFar = 0
	pt.ItemsSoFar = 0
	pt.ErrorItems = 0
	pt.CurrentPaths = nil
	pt.stopped = false
	pt.knowTotal = false
	pt.wc = nil
	if pt.rng != nil {
		pt.rng = ring.New(pt.rng.Len())
	}
}

func (pt *Progress) Snapshot() *Progress {
	pt.m.Lock()
	defer pt.m.Unlock()

	p := &Progress{
		TotalBytes: pt.TotalBytes,
		TotalItems: pt.TotalItems,
		ErrorItems: pt.ErrorItems,
		BytesSoFar: pt.BytesSoFar,
		ItemsSoFar: pt.ItemsSoFar,
		knowTotal:  pt.knowTotal,
	}
	pt.rng.Do(func(v interface{}) {
		if v != nil {
			if path, ok := v.(string); ok && len(path) > 0 {
				p.CurrentPaths = append(p.CurrentPaths, path)
			}
		}
	})
	return p
}

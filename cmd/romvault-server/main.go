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

// Command romvault-server wires config, catalogstore, and rpcsurface
// into one long-running process, end to end the same way
// cmds/rombaserver/main.go does: find and load the INI file,
// GOMAXPROCS from it, open the store, register the JSON-RPC and
// websocket routes, and exit cleanly on SIGINT.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/romvault/romvault/catalogstore"
	"github.com/romvault/romvault/config"
	"github.com/romvault/romvault/hashqueue"
	"github.com/romvault/romvault/memorypressure"
	"github.com/romvault/romvault/organizer"
	"github.com/romvault/romvault/rpcsurface"
	"github.com/romvault/romvault/scanner"
)

func signalCatcher(store catalogstore.Store, cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	<-ch
	glog.Info("CTRL-C; exiting")

	cancel()
	if err := store.Close(); err != nil {
		glog.Errorf("error closing catalog store: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func main() {
	iniPath, err := config.FindDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "finding romvault ini failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(iniPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading romvault ini from %s failed: %v\n", iniPath, err)
		os.Exit(1)
	}

	runtime.GOMAXPROCS(cfg.General.Cores)

	var store catalogstore.Store
	if cfg.CatalogStore.DbPath != "" {
		store, err = catalogstore.NewLevelStore(cfg.CatalogStore.DbPath)
	} else {
		store = catalogstore.NewMemStore()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening catalog store failed: %v\n", err)
		os.Exit(1)
	}

	pool := hashqueue.New(cfg.HashPool.Workers, nil, nil)
	sc := scanner.New(pool)

	sampleInterval := time.Duration(cfg.MemoryPressure.SampleIntervalMs) * time.Millisecond
	pressure := memorypressure.New(
		sampleInterval,
		memorypressure.Thresholds{
			Normal:   0.50,
			Elevated: float64(cfg.MemoryPressure.ElevatedPct) / 100,
			High:     float64(cfg.MemoryPressure.HighPct) / 100,
			Critical: float64(cfg.MemoryPressure.CriticalPct) / 100,
		},
	)

	journalDir := cfg.Organize.JournalDir
	if journalDir == "" {
		journalDir = os.TempDir()
	}
	journal, err := organizer.NewFileJournal(journalDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening organize journal failed: %v\n", err)
		os.Exit(1)
	}

	rs := rpcsurface.NewService(store, pool, sc, pressure, journal)

	ctx, cancel := context.WithCancel(context.Background())
	pressure.Start(ctx)

	go signalCatcher(store, cancel)

	handler := rpcsurface.NewHTTPHandler(rs, cfg.Server.WebDir)

	fmt.Printf("starting romvault server at %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	glog.Fatal(http.ListenAndServe(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), handler))
}

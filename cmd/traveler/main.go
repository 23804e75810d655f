// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/google/gops/agent"
	"github.com/hdc-arizona/traveler-integrated/internal/api"
	"github.com/hdc-arizona/traveler-integrated/internal/config"
	"github.com/hdc-arizona/traveler-integrated/internal/datastore"
	"github.com/hdc-arizona/traveler-integrated/pkg/log"
	"github.com/joho/godotenv"

	_ "github.com/mattn/go-sqlite3"
)

const logoString = `traveler-integrated: parallel trace ingest and query engine`

var (
	version = "dev"
	commit  = "norev"
)

func main() {
	cliInit()

	if flagVersion {
		fmt.Print(logoString)
		fmt.Printf("\nVersion:\t%s\n", version)
		fmt.Printf("Git hash:\t%s\n", commit)
		fmt.Printf("Go build:\t%s\n", runtime.Version())
		os.Exit(0)
	}

	// Apply config & cli args
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("parsing .env failed: %v", err)
	}
	config.Init(flagConfigFile)
	if flagDbDir != "" {
		config.Keys.DbDir = flagDbDir
	}
	if flagPort != "" {
		host, _, err := net.SplitHostPort(config.Keys.Addr)
		if err != nil {
			host = "localhost"
		}
		config.Keys.Addr = net.JoinHostPort(host, flagPort)
	}
	if flagLogLevel != "" {
		config.Keys.LogLevel = flagLogLevel
	}
	if flagDebug {
		config.Keys.DebugSources = true
	}
	log.Init(config.Keys.LogLevel, flagLogDateTime)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	store, err := datastore.NewStore(config.Keys.DbDir, config.Keys.DebugSources)
	if err != nil {
		log.Fatalf("opening dataset store at %s: %v", config.Keys.DbDir, err)
	}
	if err := store.Load(); err != nil {
		log.Fatalf("loading datasets: %v", err)
	}

	if flagImportFiles != "" {
		if err := handleImportFlag(store, flagImportFiles); err != nil {
			log.Fatalf("import failed: %v", err)
		}
	}

	if !flagServer {
		if flagImportFiles == "" {
			fmt.Println("Nothing to do, use -server or -import")
		}
		os.Exit(0)
	}

	events, err := api.ConnectEvents()
	if err != nil {
		log.Fatalf("event publisher: %v", err)
	}
	defer events.Close()

	runServer(store, events)
}

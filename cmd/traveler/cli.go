// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of traveler-integrated.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagServer, flagDebug, flagGops, flagVersion, flagLogDateTime      bool
	flagConfigFile, flagDbDir, flagPort, flagLogLevel, flagImportFiles string
)

func cliInit() {
	flag.BoolVar(&flagServer, "server", false, "Start the query server and keep listening after argument handling")
	flag.BoolVar(&flagDebug, "debug", false, "Collect additional information for debugging source files")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.BoolVar(&flagVersion, "version", false, "Show version information and exit")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Specify alternative path to `config.json`")
	flag.StringVar(&flagDbDir, "db_dir", "", "Directory to store bundled datasets (overrides the config file)")
	flag.StringVar(&flagPort, "port", "", "Port the http server listens on (overrides the config file)")
	flag.StringVar(&flagImportFiles, "import", "", "Bundle files into a dataset without the HTTP surface. Argument format: `<label>:<path.otf2dump|path.csv|path.dot|path.newick|path.log|path.physl|path.py|path.cpp>,...`")
	flag.StringVar(&flagLogLevel, "log_level", "", "Sets the logging level: `[debug, info, warn, err, crit]` (overrides the config file)")
	flag.Parse()
}

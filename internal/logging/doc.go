// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// The terminal UI owns stdout and stderr while it runs, so by default log
// output goes to a rotating file. Command-line tools that do not draw a UI
// may add a console writer on stderr.
//
// # Usage
//
//	logger, closer, err := logging.Setup(logging.Options{
//	    Level: cfg.Log.Level,
//	    File:  path,
//	})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
package logging

/*
Package log provides structured logging for the panel using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support filtering
by severity level for production debugging.

# Architecture

The panel's logging system provides structured JSON logging with minimal
overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("reset")                   │          │
	│  │  - WithNodeID(42)                           │          │
	│  │  - WithJob("usage-reset")                   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "reset",                    │          │
	│  │    "time": "2026-08-31T10:30:00Z",         │          │
	│  │    "message": "usage reset committed"       │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  10:30AM INF usage reset committed component=reset │   │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Initialize once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
	})

Create component loggers for contextual fields:

	logger := log.WithComponent("reset")
	logger.Info().Int("candidates", n).Msg("evaluated reset candidates")

	nodeLogger := log.WithNodeID(node.ID)
	nodeLogger.Warn().Err(err).Msg("status probe failed")

Console output (development) uses zerolog.ConsoleWriter with RFC3339
timestamps; JSON output is intended for production log shipping.
*/
package log

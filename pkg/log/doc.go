/*
Package log provides structured logging built on zerolog, with a small
set of child-logger constructors for the identifiers this system's
components log against most often.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	log.Logger.Info().Str("name", "server-1").Msg("qcfractal-server starting")

	taskLog := log.WithTaskID(task.ID)
	taskLog.Error().Err(err).Msg("adapter submit failed")

	managerLog := log.WithManagerName(cfg.ManagerName)
	managerLog.Warn().Int("count", n).Msg("reset orphaned running tasks")

Config.JSONOutput selects JSON (for log files and aggregation) versus a
human-readable console writer (for local/interactive use); Config.Output
defaults to stdout when nil.

# Design Patterns

Logger is a single package-level zerolog.Logger, initialized once via
Init. WithComponent/WithTaskID/WithResultID/WithManagerName each return
a child logger with one extra field attached, rather than requiring
callers to thread a *zerolog.Logger through every function signature.

# See Also

  - rs/zerolog: https://github.com/rs/zerolog
*/
package log

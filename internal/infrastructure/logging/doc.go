// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Components take a *zap.Logger and fall back to zap.NewNop() when none is
// given. Per-device loggers carry a "device" field so interleaved output from
// several devices can be told apart:
//
//	logger := logging.NewDefault()
//	devLog := logger.ForDevice("emulator-5554")
//	devLog.Info("poll round complete", zap.Int("installed", 12))
package logging

// Package logs turns raw device output into filtered, readable log records.
//
// Raw chunks flow through a Pipeline:
//
//	LogData -> level filter -> source-map rewrite -> DeviceLogEvent -> Renderer
//
// Device output mixes plain process output with console frames, records
// introduced by a marker such as "CONSOLE LOG:" or "CONSOLE WARN file.js:3:4:".
// SplitFrames reassembles a chunk into those records; the filter and the
// console renderer both work on frames rather than physical lines.
package logs

// Package transcode invokes the external ffmpeg transcoder with riptide's
// fixed HLS encoding contract and turns its progress stream into percentage
// callbacks against the probed source duration.
package transcode
